package skill

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"alexa-gateway/internal/alexa"
)

const (
	namespaceAuthorization = "Alexa.Authorization"
	namespaceDiscovery     = "Alexa.Discovery"

	manufacturerName  = "RABCBot"
	deviceDescription = "RABCBot SmartHome Device"
)

// Handler answers Alexa directives from entity state.
type Handler struct {
	store  StateStore
	caller ServiceCaller
	auth   Authorizer
	logger *zap.Logger

	clock alexa.Clock
	ids   alexa.IDSource

	counter string
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock sets the clock used for property timestamps.
func WithClock(clock alexa.Clock) Option {
	return func(h *Handler) { h.clock = clock }
}

// WithIDs sets the source of message and endpoint identifiers.
func WithIDs(ids alexa.IDSource) Option {
	return func(h *Handler) { h.ids = ids }
}

// WithRequestCounter names a counter entity incremented for every directive.
func WithRequestCounter(entityID string) Option {
	return func(h *Handler) { h.counter = entityID }
}

// NewHandler creates a directive handler.
func NewHandler(store StateStore, caller ServiceCaller, auth Authorizer, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		store:  store,
		caller: caller,
		auth:   auth,
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) newResponse(opts alexa.ResponseOptions) *alexa.Response {
	opts.Clock = h.clock
	opts.IDs = h.ids
	return alexa.NewResponse(opts)
}

// Handle dispatches a directive and returns the response document.
func (h *Handler) Handle(ctx context.Context, d Directive) (alexa.Document, error) {
	log := h.logger.With(
		zap.String("namespace", d.Header.Namespace),
		zap.String("name", d.Header.Name),
		zap.String("messageId", d.Header.MessageID),
	)
	log.Debug("directive received")
	h.countRequest(ctx, log)

	switch {
	case d.Header.Namespace == namespaceAuthorization && d.Header.Name == "AcceptGrant":
		return h.acceptGrant(ctx, d)
	case d.Header.Namespace == namespaceDiscovery:
		return h.discover(log)
	case d.Header.Name == "ReportState":
		return h.reportState(d)
	default:
		return h.control(ctx, log, d)
	}
}

// countRequest increments the request counter. A failed increment is
// logged and does not fail the directive.
func (h *Handler) countRequest(ctx context.Context, log *zap.Logger) {
	if h.counter == "" {
		return
	}
	err := h.caller.Call(ctx, "counter", "increment", map[string]any{"entity_id": h.counter})
	if err != nil {
		log.Warn("failed to increment request counter", zap.String("counter", h.counter), zap.Error(err))
	}
}

func (h *Handler) acceptGrant(ctx context.Context, d Directive) (alexa.Document, error) {
	grant, _ := d.Payload["grant"].(map[string]any)
	code, _ := grant["code"].(string)
	if code == "" {
		return alexa.Document{}, fmt.Errorf("%w: payload.grant.code", ErrInvalidDirective)
	}

	if err := h.auth.Grant(ctx, code); err != nil {
		return alexa.Document{}, fmt.Errorf("accept grant: %w", err)
	}

	return h.newResponse(alexa.ResponseOptions{
		Namespace: namespaceAuthorization,
		Name:      alexa.AcceptGrantResponse,
	}).Render()
}

func (h *Handler) discover(log *zap.Logger) (alexa.Document, error) {
	r := h.newResponse(alexa.ResponseOptions{
		Namespace:    namespaceDiscovery,
		Name:         "AddOrUpdateReport",
		OmitEndpoint: true,
		Payload: map[string]any{
			"scope": alexa.Scope{Type: alexa.ScopeBearerToken},
		},
	})

	for _, e := range h.store.Entities() {
		capabilities, err := endpointCapabilities(e)
		if err != nil {
			log.Warn("entity skipped from discovery", zap.String("entityId", e.EntityID), zap.Error(err))
			continue
		}
		if len(capabilities) == 0 {
			continue
		}

		friendlyName := e.attrString(AttrFriendlyName)
		if friendlyName == "" {
			friendlyName = e.EntityID
		}

		r.AddPayloadEndpoint(alexa.EndpointOptions{
			EndpointID:        e.EntityID,
			FriendlyName:      friendlyName,
			Description:       deviceDescription,
			ManufacturerName:  manufacturerName,
			DisplayCategories: []string{displayCategory(e)},
			Capabilities:      capabilities,
		})
	}

	return r.Render()
}

func endpointCapabilities(e Entity) ([]alexa.Capability, error) {
	ifaces := interfaces(e)
	capabilities := make([]alexa.Capability, 0, len(ifaces))
	for _, iface := range ifaces {
		c, err := capability(iface, e)
		if err != nil {
			return nil, err
		}
		capabilities = append(capabilities, c)
	}
	return capabilities, nil
}

// target resolves the endpoint and entity a directive addresses.
func (h *Handler) target(d Directive) (*DirectiveEndpoint, Entity, error) {
	if d.Endpoint == nil || d.Endpoint.EndpointID == "" {
		return nil, Entity{}, fmt.Errorf("%w: endpoint.endpointId", ErrInvalidDirective)
	}
	e, ok := h.store.Entity(d.Endpoint.EndpointID)
	if !ok {
		return nil, Entity{}, fmt.Errorf("%w: %s", ErrUnknownEntity, d.Endpoint.EndpointID)
	}
	return d.Endpoint, e, nil
}

func (h *Handler) reportState(d Directive) (alexa.Document, error) {
	endpoint, e, err := h.target(d)
	if err != nil {
		return alexa.Document{}, err
	}

	r := h.newResponse(alexa.ResponseOptions{
		Name:             "StateReport",
		CorrelationToken: d.Header.CorrelationToken,
		ScopeToken:       endpoint.Scope.Token,
		EndpointID:       endpoint.EndpointID,
		Cookie:           endpoint.Cookie,
	})

	for _, iface := range reportedInterfaces(e) {
		props, err := supportedProperties(iface)
		if err != nil {
			return alexa.Document{}, err
		}
		for _, name := range props {
			value, err := propertyValue(name, e)
			if errors.Is(err, errNoValue) {
				continue
			}
			if err != nil {
				return alexa.Document{}, err
			}
			r.AddContextProperty(alexa.PropertyOptions{
				Namespace: iface,
				Instance:  instance(iface, e),
				Name:      name,
				Value:     value,
			})
		}
	}

	return r.Render()
}

func (h *Handler) control(ctx context.Context, log *zap.Logger, d Directive) (alexa.Document, error) {
	endpoint, e, err := h.target(d)
	if err != nil {
		return alexa.Document{}, err
	}

	iface := d.Header.Namespace
	call, err := serviceFor(iface, d.Header.Name, d.Payload, e)
	if err != nil {
		return alexa.Document{}, err
	}

	log.Debug("calling service",
		zap.String("domain", call.Domain),
		zap.String("service", call.Service),
		zap.Any("data", call.Data),
	)
	if err := h.caller.Call(ctx, call.Domain, call.Service, call.Data); err != nil {
		return alexa.Document{}, fmt.Errorf("call %s.%s: %w", call.Domain, call.Service, err)
	}

	r := h.newResponse(alexa.ResponseOptions{
		CorrelationToken: d.Header.CorrelationToken,
		ScopeToken:       endpoint.Scope.Token,
		EndpointID:       endpoint.EndpointID,
		Cookie:           endpoint.Cookie,
	})

	props, err := supportedProperties(iface)
	if err != nil {
		return alexa.Document{}, err
	}
	for _, name := range props {
		value, err := expectedValue(name, call, e)
		if err != nil {
			return alexa.Document{}, err
		}
		r.AddContextProperty(alexa.PropertyOptions{
			Namespace: iface,
			Instance:  instance(iface, e),
			Name:      name,
			Value:     value,
		})
	}

	return r.Render()
}

// ChangeReports builds the proactive events for an entity whose state
// changed: one ChangeReport carrying every reportable property, and a
// DoorbellPress for each doorbell interface.
func (h *Handler) ChangeReports(entityID string) ([]alexa.Document, error) {
	e, ok := h.store.Entity(entityID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entityID)
	}

	change := h.newResponse(alexa.ResponseOptions{
		Name:       "ChangeReport",
		EndpointID: entityID,
	})
	hasChange := false
	var presses []alexa.Document

	for _, iface := range reportedInterfaces(e) {
		props, err := supportedProperties(iface)
		if err != nil {
			return nil, err
		}

		if len(props) == 0 {
			press := h.newResponse(alexa.ResponseOptions{
				Namespace:  iface,
				Name:       "DoorbellPress",
				EndpointID: entityID,
			})
			press.AddPayloadTimestamp()
			doc, err := press.Render()
			if err != nil {
				return nil, err
			}
			presses = append(presses, doc)
			continue
		}

		for _, name := range props {
			value, err := propertyValue(name, e)
			if errors.Is(err, errNoValue) {
				continue
			}
			if err != nil {
				return nil, err
			}
			change.AddPayloadProperty(alexa.PropertyOptions{
				Namespace: iface,
				Instance:  instance(iface, e),
				Name:      name,
				Value:     value,
			})
			hasChange = true
		}
	}

	if !hasChange {
		return presses, nil
	}
	doc, err := change.Render()
	if err != nil {
		return nil, err
	}
	return append([]alexa.Document{doc}, presses...), nil
}

// ErrorResponse describes a failed directive in Alexa's error format.
func (h *Handler) ErrorResponse(d Directive, err error) alexa.Document {
	opts := alexa.ResponseOptions{
		Namespace:        "Alexa",
		Name:             "ErrorResponse",
		CorrelationToken: d.Header.CorrelationToken,
		OmitEndpoint:     d.Endpoint == nil,
		Payload: map[string]any{
			"type":    errorType(err),
			"message": err.Error(),
		},
	}
	if d.Header.Namespace == namespaceAuthorization {
		opts.Namespace = namespaceAuthorization
		opts.OmitEndpoint = true
		opts.Payload["type"] = "ACCEPT_GRANT_FAILED"
	}
	if d.Endpoint != nil {
		opts.ScopeToken = d.Endpoint.Scope.Token
		opts.EndpointID = d.Endpoint.EndpointID
	}

	// A lenient response never fails to render.
	doc, _ := h.newResponse(opts).Render()
	return doc
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrUnknownEntity):
		return "NO_SUCH_ENDPOINT"
	case errors.Is(err, ErrInvalidDirective), errors.Is(err, ErrUnsupported):
		return "INVALID_DIRECTIVE"
	case errors.Is(err, ErrInvalidState):
		return "ENDPOINT_UNREACHABLE"
	}
	return "INTERNAL_ERROR"
}

// ShouldPost reports whether a document goes to the event gateway.
// Authorization responses are only returned to the caller.
func ShouldPost(doc alexa.Document) bool {
	return doc.Event.Header.Namespace != namespaceAuthorization
}
