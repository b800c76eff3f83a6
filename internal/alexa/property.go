package alexa

import "time"

// Property is a single reported state value.
type Property struct {
	Namespace                 string `json:"namespace"`
	Instance                  string `json:"instance,omitempty"`
	Name                      string `json:"name"`
	Value                     any    `json:"value"`
	TimeOfSample              string `json:"timeOfSample"`
	UncertaintyInMilliseconds int    `json:"uncertaintyInMilliseconds"`
}

// PropertyOptions describes a context or payload property.
// Zero values fall back to an EndpointHealth connectivity OK report.
type PropertyOptions struct {
	Namespace                 string
	Name                      string
	Value                     any
	UncertaintyInMilliseconds int
	Instance                  string
}

func newProperty(opts PropertyOptions, now time.Time) Property {
	value := opts.Value
	if value == nil {
		value = map[string]any{"value": "OK"}
	}

	return Property{
		Namespace:                 valueOr(opts.Namespace, "Alexa.EndpointHealth"),
		Instance:                  opts.Instance,
		Name:                      valueOr(opts.Name, "connectivity"),
		Value:                     value,
		TimeOfSample:              formatTimestamp(now),
		UncertaintyInMilliseconds: opts.UncertaintyInMilliseconds,
	}
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
