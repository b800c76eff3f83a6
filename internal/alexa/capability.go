package alexa

import (
	"fmt"
	"slices"
)

// Capability declares an interface an endpoint supports.
type Capability struct {
	Type                  string                `json:"type"`
	Interface             string                `json:"interface"`
	Version               string                `json:"version"`
	Instance              string                `json:"instance,omitempty"`
	SupportsDeactivation  bool                  `json:"supportsDeactivation,omitempty"`
	ProactivelyReported   bool                  `json:"proactivelyReported,omitempty"`
	Properties            *CapabilityProperties `json:"properties,omitempty"`
	CapabilityResources   map[string]any        `json:"capabilityResources,omitempty"`
	Configuration         *Configuration        `json:"configuration,omitempty"`
	VerificationsRequired []Verification        `json:"verificationsRequired,omitempty"`
	Semantics             *Semantics            `json:"semantics,omitempty"`
}

// CapabilityProperties lists the properties an interface reports.
type CapabilityProperties struct {
	Supported           []any `json:"supported"`
	ProactivelyReported bool  `json:"proactivelyReported"`
	Retrievable         bool  `json:"retrievable"`
}

// Configuration is the interface specific configuration block. Only one of
// the range, modes or measurement groups is populated.
type Configuration struct {
	SupportedRange *Range `json:"supportedRange,omitempty"`
	Presets        []any  `json:"presets,omitempty"`
	UnitOfMeasure  string `json:"unitOfMeasure,omitempty"`
	SupportedModes []any  `json:"supportedModes,omitempty"`
	Measurement    any    `json:"measurement,omitempty"`
	Replenishment  any    `json:"replenishment,omitempty"`
	Ordered        *bool  `json:"ordered,omitempty"`
}

// Range bounds a RangeController value.
type Range struct {
	MinimumValue float64 `json:"minimumValue"`
	MaximumValue float64 `json:"maximumValue"`
	Precision    float64 `json:"precision"`
}

// Verification asks Alexa to confirm a directive before sending it.
type Verification struct {
	Directive string               `json:"directive"`
	Methods   []VerificationMethod `json:"methods"`
}

// VerificationMethod names how a verification is performed.
type VerificationMethod struct {
	Type string `json:"@type"`
}

// Semantics maps utterances onto directives and states.
type Semantics struct {
	ActionMappings []any `json:"actionMappings"`
	StateMappings  []any `json:"stateMappings,omitempty"`
}

// CapabilityOptions describes a capability. Every optional group is emitted
// only when its trigger is set.
//
// Supported triggers the properties block; when it is set ProactivelyReported
// and Retrievable go inside that block instead of on the capability.
// ConfigurationRange, ConfigurationModes and ConfigurationMeasurement each
// select a configuration shape; when several are given the later one in that
// order wins. ConfigurationOrdered is merged into whichever shape exists.
type CapabilityOptions struct {
	Type      string
	Interface string
	Version   string

	Instance             string
	SupportsDeactivation bool

	Supported           []any
	ProactivelyReported bool
	Retrievable         bool

	CapabilityResources map[string]any

	ConfigurationRange         *Range
	Presets                    []any
	UnitOfMeasure              string
	ConfigurationModes         []any
	ConfigurationMeasurement   any
	ConfigurationReplenishment any
	ConfigurationOrdered       *bool

	VerificationsRequired []string

	SemanticsActions []any
	SemanticsStates  []any
}

// NewCapability builds a capability descriptor.
func NewCapability(opts CapabilityOptions) (Capability, error) {
	capability := Capability{
		Type:                 valueOr(opts.Type, "AlexaInterface"),
		Interface:            valueOr(opts.Interface, "Alexa"),
		Version:              valueOr(opts.Version, "3"),
		Instance:             opts.Instance,
		SupportsDeactivation: opts.SupportsDeactivation,
	}

	if len(opts.Supported) > 0 {
		capability.Properties = &CapabilityProperties{
			Supported:           slices.Clone(opts.Supported),
			ProactivelyReported: opts.ProactivelyReported,
			Retrievable:         opts.Retrievable,
		}
	} else {
		capability.ProactivelyReported = opts.ProactivelyReported
	}

	if len(opts.CapabilityResources) > 0 {
		capability.CapabilityResources = opts.CapabilityResources
	}

	if opts.ConfigurationRange != nil {
		capability.Configuration = &Configuration{
			SupportedRange: opts.ConfigurationRange,
			Presets:        slices.Clone(opts.Presets),
			UnitOfMeasure:  opts.UnitOfMeasure,
		}
	}
	if len(opts.ConfigurationModes) > 0 {
		capability.Configuration = &Configuration{
			SupportedModes: slices.Clone(opts.ConfigurationModes),
		}
	}
	if opts.ConfigurationMeasurement != nil {
		capability.Configuration = &Configuration{
			Measurement:   opts.ConfigurationMeasurement,
			Replenishment: opts.ConfigurationReplenishment,
		}
	}
	if opts.ConfigurationOrdered != nil {
		if capability.Configuration == nil {
			return Capability{}, fmt.Errorf("%w: %s configuration.ordered needs a range, modes or measurement",
				ErrConflictingConfiguration, capability.Interface)
		}
		ordered := *opts.ConfigurationOrdered
		capability.Configuration.Ordered = &ordered
	}

	for _, directive := range opts.VerificationsRequired {
		capability.VerificationsRequired = append(capability.VerificationsRequired, Verification{
			Directive: directive,
			Methods:   []VerificationMethod{{Type: "Confirmation"}},
		})
	}

	if len(opts.SemanticsActions) > 0 {
		capability.Semantics = &Semantics{ActionMappings: slices.Clone(opts.SemanticsActions)}
	}
	if len(opts.SemanticsStates) > 0 {
		if capability.Semantics == nil {
			return Capability{}, fmt.Errorf("%w: %s semantics.stateMappings needs actionMappings",
				ErrConflictingConfiguration, capability.Interface)
		}
		capability.Semantics.StateMappings = slices.Clone(opts.SemanticsStates)
	}

	return capability, nil
}

// SupportedProperties returns the supported list for a properties block.
func SupportedProperties(names ...string) []any {
	supported := make([]any, 0, len(names))
	for _, name := range names {
		supported = append(supported, map[string]any{"name": name})
	}
	return supported
}
