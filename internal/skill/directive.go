package skill

import (
	"context"
	"errors"

	"alexa-gateway/internal/alexa"
)

var (
	// ErrUnknownEntity is returned when a directive targets an entity the
	// state store does not know.
	ErrUnknownEntity = errors.New("skill: unknown entity")

	// ErrUnsupported is returned for interface, property or directive
	// combinations the gateway cannot map.
	ErrUnsupported = errors.New("skill: unsupported")

	// ErrInvalidDirective is returned when a directive lacks a field its
	// name requires.
	ErrInvalidDirective = errors.New("skill: invalid directive")

	// ErrInvalidState is returned when entity state cannot be converted to
	// a property value.
	ErrInvalidState = errors.New("skill: invalid entity state")
)

// Request is the envelope Alexa sends to the skill.
type Request struct {
	Directive Directive `json:"directive"`
}

// Directive is an inbound Alexa command.
type Directive struct {
	Header   DirectiveHeader    `json:"header"`
	Endpoint *DirectiveEndpoint `json:"endpoint,omitempty"`
	Payload  map[string]any     `json:"payload"`
}

// DirectiveHeader identifies a directive.
type DirectiveHeader struct {
	Namespace        string `json:"namespace"`
	Name             string `json:"name"`
	MessageID        string `json:"messageId"`
	CorrelationToken string `json:"correlationToken,omitempty"`
	PayloadVersion   string `json:"payloadVersion"`
}

// DirectiveEndpoint is the device a directive targets.
type DirectiveEndpoint struct {
	Scope      alexa.Scope       `json:"scope"`
	EndpointID string            `json:"endpointId"`
	Cookie     map[string]string `json:"cookie,omitempty"`
}

// StateStore exposes the current state of every entity.
type StateStore interface {
	Entity(entityID string) (Entity, bool)
	Entities() []Entity
}

// ServiceCaller performs an action on the home automation side.
type ServiceCaller interface {
	Call(ctx context.Context, domain, service string, data map[string]any) error
}

// Authorizer exchanges an AcceptGrant code for gateway tokens.
type Authorizer interface {
	Grant(ctx context.Context, code string) error
}
