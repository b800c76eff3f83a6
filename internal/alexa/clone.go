package alexa

import (
	"maps"
	"slices"
)

// cloneValue copies the JSON-like containers a caller can pass as a value.
// Other types are returned as is.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]string:
		return maps.Clone(v)
	case []string:
		return slices.Clone(v)
	}
	return v
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneAnys(s []any) []any {
	if s == nil {
		return nil
	}
	return cloneValue(s).([]any)
}

func cloneProperties(props []Property) []Property {
	out := slices.Clone(props)
	for i := range out {
		out[i].Value = cloneValue(out[i].Value)
	}
	return out
}

func cloneEndpoint(e PayloadEndpoint) PayloadEndpoint {
	e.DisplayCategories = slices.Clone(e.DisplayCategories)
	e.Cookie = maps.Clone(e.Cookie)
	if e.Capabilities != nil {
		caps := make([]Capability, len(e.Capabilities))
		for i, c := range e.Capabilities {
			caps[i] = cloneCapability(c)
		}
		e.Capabilities = caps
	}
	return e
}

func cloneCapability(c Capability) Capability {
	if c.Properties != nil {
		p := *c.Properties
		p.Supported = cloneAnys(p.Supported)
		c.Properties = &p
	}
	c.CapabilityResources = cloneMap(c.CapabilityResources)
	if c.Configuration != nil {
		cfg := *c.Configuration
		if cfg.SupportedRange != nil {
			r := *cfg.SupportedRange
			cfg.SupportedRange = &r
		}
		if cfg.Ordered != nil {
			ordered := *cfg.Ordered
			cfg.Ordered = &ordered
		}
		cfg.Presets = cloneAnys(cfg.Presets)
		cfg.SupportedModes = cloneAnys(cfg.SupportedModes)
		cfg.Measurement = cloneValue(cfg.Measurement)
		cfg.Replenishment = cloneValue(cfg.Replenishment)
		c.Configuration = &cfg
	}
	if c.VerificationsRequired != nil {
		verifications := make([]Verification, len(c.VerificationsRequired))
		for i, v := range c.VerificationsRequired {
			v.Methods = slices.Clone(v.Methods)
			verifications[i] = v
		}
		c.VerificationsRequired = verifications
	}
	if c.Semantics != nil {
		s := *c.Semantics
		s.ActionMappings = cloneAnys(s.ActionMappings)
		s.StateMappings = cloneAnys(s.StateMappings)
		c.Semantics = &s
	}
	return c
}
