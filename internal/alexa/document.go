package alexa

import "maps"

// Document is a rendered response, ready to be marshalled and sent.
type Document struct {
	Context *Context `json:"context,omitempty"`
	Event   Event    `json:"event"`
}

// Context carries device state at the time of the response.
type Context struct {
	Properties []Property `json:"properties,omitempty"`
}

// Event is the event section of a response.
type Event struct {
	Header   Header         `json:"header"`
	Endpoint *Endpoint      `json:"endpoint,omitempty"`
	Payload  map[string]any `json:"payload"`
}

// Header identifies the response message.
type Header struct {
	Namespace        string `json:"namespace"`
	Name             string `json:"name"`
	MessageID        string `json:"messageId"`
	PayloadVersion   string `json:"payloadVersion"`
	CorrelationToken string `json:"correlationToken,omitempty"`
}

// Scope authenticates the event against the skill's account link.
type Scope struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Endpoint targets the device the response is about.
type Endpoint struct {
	Scope      Scope             `json:"scope"`
	EndpointID string            `json:"endpointId"`
	Cookie     map[string]string `json:"cookie,omitempty"`
}

// Cause explains why a state change happened.
type Cause struct {
	Type string `json:"type"`
}

// Change groups payload properties under a ChangeReport.
type Change struct {
	Cause      Cause      `json:"cause"`
	Properties []Property `json:"properties"`
}

// SetScopeToken replaces the bearer token in the event endpoint and, when the
// payload carries its own scope (discovery reports), in the payload scope.
func (d *Document) SetScopeToken(token string) {
	if d.Event.Endpoint != nil {
		d.Event.Endpoint.Scope.Token = token
	}

	switch scope := d.Event.Payload["scope"].(type) {
	case Scope:
		scope.Token = token
		d.Event.Payload["scope"] = scope
	case map[string]any:
		updated := maps.Clone(scope)
		updated["token"] = token
		d.Event.Payload["scope"] = updated
	}
}
