// Package alexa assembles Alexa Smart Home response documents.
package alexa

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

const (
	// InvalidToken is the placeholder for a scope token or endpoint id that
	// was never supplied. The event gateway rejects it.
	InvalidToken = "INVALID"

	ScopeBearerToken    = "BearerToken"
	PhysicalInteraction = "PHYSICAL_INTERACTION"

	AcceptGrantResponse = "AcceptGrant.Response"
	DiscoverResponse    = "Discover.Response"
)

// ResponseOptions configures a new Response. Empty fields take the defaults
// noted on each field.
type ResponseOptions struct {
	Namespace      string // "Alexa"
	Name           string // "Response"
	PayloadVersion string // "3"
	ScopeToken     string // InvalidToken
	EndpointID     string // InvalidToken
	Payload        map[string]any

	// CorrelationToken and Cookie are only rendered when non-empty.
	CorrelationToken string
	Cookie           map[string]string

	// OmitEndpoint drops the event endpoint for names other than
	// AcceptGrant.Response and Discover.Response, which never carry one.
	OmitEndpoint bool

	// Strict makes Render fail on placeholder scope tokens and endpoint ids.
	Strict bool

	Clock Clock
	IDs   IDSource
}

// Response accumulates the parts of one response document.
// A Response is not safe for concurrent use.
type Response struct {
	header   Header
	endpoint *Endpoint
	payload  map[string]any

	contextProperties []Property
	payloadProperties []Property
	payloadEndpoints  []PayloadEndpoint
	endpointsSet      bool
	payloadTimestamp  string

	strict bool
	clock  Clock
	ids    IDSource
}

// NewResponse creates a response with a fresh message id.
func NewResponse(opts ResponseOptions) *Response {
	r := &Response{
		strict: opts.Strict,
		clock:  opts.Clock,
		ids:    opts.IDs,
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.ids == nil {
		r.ids = randomIDs{}
	}

	r.header = Header{
		Namespace:        valueOr(opts.Namespace, "Alexa"),
		Name:             valueOr(opts.Name, "Response"),
		MessageID:        r.ids.MessageID(),
		PayloadVersion:   valueOr(opts.PayloadVersion, "3"),
		CorrelationToken: opts.CorrelationToken,
	}

	if !opts.OmitEndpoint && !omitsEndpoint(r.header.Name) {
		r.endpoint = &Endpoint{
			Scope: Scope{
				Type:  ScopeBearerToken,
				Token: valueOr(opts.ScopeToken, InvalidToken),
			},
			EndpointID: valueOr(opts.EndpointID, InvalidToken),
			Cookie:     maps.Clone(opts.Cookie),
		}
	}

	r.SetPayload(opts.Payload)
	return r
}

// The schema forbids an endpoint on these responses.
func omitsEndpoint(name string) bool {
	return name == AcceptGrantResponse || name == DiscoverResponse
}

// MessageID returns the identifier fixed at construction.
func (r *Response) MessageID() string {
	return r.header.MessageID
}

// AddContextProperty appends a property to context.properties.
func (r *Response) AddContextProperty(opts PropertyOptions) {
	r.contextProperties = append(r.contextProperties, newProperty(opts, r.clock()))
}

// AddPayloadProperty appends a property to payload.change.properties.
func (r *Response) AddPayloadProperty(opts PropertyOptions) {
	r.payloadProperties = append(r.payloadProperties, newProperty(opts, r.clock()))
}

// AddPayloadEndpoint appends a discovered device to payload.endpoints.
func (r *Response) AddPayloadEndpoint(opts EndpointOptions) {
	r.payloadEndpoints = append(r.payloadEndpoints, newPayloadEndpoint(opts, r.ids))
}

// AddPayloadTimestamp marks the response as caused by a physical interaction
// happening now.
func (r *Response) AddPayloadTimestamp() {
	r.payloadTimestamp = formatTimestamp(r.clock())
}

// AddCookie sets a key in the event endpoint cookie. It does nothing on
// responses without an endpoint.
func (r *Response) AddCookie(key, value string) {
	if r.endpoint == nil {
		return
	}
	if r.endpoint.Cookie == nil {
		r.endpoint.Cookie = make(map[string]string)
	}
	r.endpoint.Cookie[key] = value
}

// CreatePayloadEndpointCapability builds a capability for use in
// EndpointOptions. It does not modify the response.
func (r *Response) CreatePayloadEndpointCapability(opts CapabilityOptions) (Capability, error) {
	return NewCapability(opts)
}

// SetPayload replaces the payload body.
func (r *Response) SetPayload(payload map[string]any) {
	r.payload = maps.Clone(payload)
	if r.payload == nil {
		r.payload = make(map[string]any)
	}
}

// SetPayloadEndpoints replaces the discovered devices. From then on the
// rendered payload always has an endpoints key, even for an empty list.
func (r *Response) SetPayloadEndpoints(endpoints []PayloadEndpoint) {
	r.payloadEndpoints = slices.Clone(endpoints)
	r.endpointsSet = true
}

// RenderOption adjusts Render.
type RenderOption func(*renderConfig)

type renderConfig struct {
	removeEmpty bool
}

// KeepEmptyContext renders an empty context object instead of dropping it.
func KeepEmptyContext() RenderOption {
	return func(c *renderConfig) {
		c.removeEmpty = false
	}
}

// Render builds the document from the current state. The result shares no
// mutable maps or slices with the response, so Render can be called again
// after further changes.
//
// Builder managed payload keys (endpoints, change, cause, timestamp) replace
// caller supplied keys of the same name.
func (r *Response) Render(opts ...RenderOption) (Document, error) {
	cfg := renderConfig{removeEmpty: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := r.validate(); err != nil {
		return Document{}, err
	}

	doc := Document{
		Context: &Context{},
		Event: Event{
			Header:  r.header,
			Payload: cloneMap(r.payload),
		},
	}

	if r.endpoint != nil {
		endpoint := *r.endpoint
		endpoint.Cookie = maps.Clone(r.endpoint.Cookie)
		doc.Event.Endpoint = &endpoint
	}

	if len(r.contextProperties) > 0 {
		doc.Context.Properties = cloneProperties(r.contextProperties)
	}

	if len(r.payloadEndpoints) > 0 || r.endpointsSet {
		endpoints := make([]PayloadEndpoint, len(r.payloadEndpoints))
		for i, e := range r.payloadEndpoints {
			endpoints[i] = cloneEndpoint(e)
		}
		doc.Event.Payload["endpoints"] = endpoints
	}

	if len(r.payloadProperties) > 0 {
		doc.Event.Payload["change"] = Change{
			Cause:      Cause{Type: PhysicalInteraction},
			Properties: cloneProperties(r.payloadProperties),
		}
	}

	if r.payloadTimestamp != "" {
		doc.Event.Payload["cause"] = Cause{Type: PhysicalInteraction}
		doc.Event.Payload["timestamp"] = r.payloadTimestamp
	}

	if cfg.removeEmpty && len(doc.Context.Properties) == 0 {
		doc.Context = nil
	}

	return doc, nil
}

func (r *Response) validate() error {
	if !r.strict || r.endpoint == nil {
		return nil
	}
	if r.endpoint.Scope.Token == InvalidToken {
		return fmt.Errorf("%w: event.endpoint.scope.token", ErrMissingRequiredField)
	}
	if r.endpoint.EndpointID == InvalidToken {
		return fmt.Errorf("%w: event.endpoint.endpointId", ErrMissingRequiredField)
	}
	return nil
}
