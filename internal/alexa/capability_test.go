package alexa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool {
	return &v
}

func TestNewCapability(t *testing.T) {
	tests := []struct {
		name string
		opts CapabilityOptions
		want string
	}{
		{
			name: "base interface",
			opts: CapabilityOptions{},
			want: `{"type": "AlexaInterface", "interface": "Alexa", "version": "3"}`,
		},
		{
			name: "supported properties take the reporting flags",
			opts: CapabilityOptions{
				Supported:           []any{"temperature"},
				ProactivelyReported: true,
				Retrievable:         true,
			},
			want: `{
				"type": "AlexaInterface", "interface": "Alexa", "version": "3",
				"properties": {"supported": ["temperature"], "proactivelyReported": true, "retrievable": true}
			}`,
		},
		{
			name: "bare proactively reported without supported",
			opts: CapabilityOptions{Interface: "Alexa.DoorbellEventSource", ProactivelyReported: true},
			want: `{
				"type": "AlexaInterface", "interface": "Alexa.DoorbellEventSource", "version": "3",
				"proactivelyReported": true
			}`,
		},
		{
			name: "retrievable alone is not emitted",
			opts: CapabilityOptions{Retrievable: true},
			want: `{"type": "AlexaInterface", "interface": "Alexa", "version": "3"}`,
		},
		{
			name: "instance and deactivation",
			opts: CapabilityOptions{
				Interface:            "Alexa.SceneController",
				Instance:             "Scene.Movie",
				SupportsDeactivation: true,
			},
			want: `{
				"type": "AlexaInterface", "interface": "Alexa.SceneController", "version": "3",
				"instance": "Scene.Movie", "supportsDeactivation": true
			}`,
		},
		{
			name: "range configuration",
			opts: CapabilityOptions{
				Interface:           "Alexa.RangeController",
				ConfigurationRange:  &Range{MinimumValue: 0, MaximumValue: 100, Precision: 1},
				UnitOfMeasure:       "Alexa.Unit.Percent",
				CapabilityResources: map[string]any{"friendlyNames": []any{map[string]any{"@type": "asset", "value": map[string]any{"assetId": "Alexa.Setting.Opening"}}}},
			},
			want: `{
				"type": "AlexaInterface", "interface": "Alexa.RangeController", "version": "3",
				"capabilityResources": {"friendlyNames": [{"@type": "asset", "value": {"assetId": "Alexa.Setting.Opening"}}]},
				"configuration": {
					"supportedRange": {"minimumValue": 0, "maximumValue": 100, "precision": 1},
					"unitOfMeasure": "Alexa.Unit.Percent"
				}
			}`,
		},
		{
			name: "modes replace range and keep ordered false",
			opts: CapabilityOptions{
				Interface:            "Alexa.ModeController",
				ConfigurationRange:   &Range{MaximumValue: 10, Precision: 1},
				ConfigurationModes:   []any{"Position.Up", "Position.Down"},
				ConfigurationOrdered: boolPtr(false),
			},
			want: `{
				"type": "AlexaInterface", "interface": "Alexa.ModeController", "version": "3",
				"configuration": {"supportedModes": ["Position.Up", "Position.Down"], "ordered": false}
			}`,
		},
		{
			name: "measurement with replenishment",
			opts: CapabilityOptions{
				Interface:                  "Alexa.InventoryLevelSensor",
				ConfigurationMeasurement:   map[string]any{"@type": "Percentage"},
				ConfigurationReplenishment: map[string]any{"@type": "DashReplenishmentId", "value": "x"},
			},
			want: `{
				"type": "AlexaInterface", "interface": "Alexa.InventoryLevelSensor", "version": "3",
				"configuration": {
					"measurement": {"@type": "Percentage"},
					"replenishment": {"@type": "DashReplenishmentId", "value": "x"}
				}
			}`,
		},
		{
			name: "replenishment without measurement is ignored",
			opts: CapabilityOptions{ConfigurationReplenishment: "x"},
			want: `{"type": "AlexaInterface", "interface": "Alexa", "version": "3"}`,
		},
		{
			name: "verifications",
			opts: CapabilityOptions{
				Interface:             "Alexa.LockController",
				VerificationsRequired: []string{"Unlock", "Lock"},
			},
			want: `{
				"type": "AlexaInterface", "interface": "Alexa.LockController", "version": "3",
				"verificationsRequired": [
					{"directive": "Unlock", "methods": [{"@type": "Confirmation"}]},
					{"directive": "Lock", "methods": [{"@type": "Confirmation"}]}
				]
			}`,
		},
		{
			name: "semantics",
			opts: CapabilityOptions{
				SemanticsActions: []any{map[string]any{"@type": "ActionsToDirective", "actions": []any{"Alexa.Actions.Open"}}},
				SemanticsStates:  []any{map[string]any{"@type": "StatesToValue", "states": []any{"Alexa.States.Open"}, "value": 100}},
			},
			want: `{
				"type": "AlexaInterface", "interface": "Alexa", "version": "3",
				"semantics": {
					"actionMappings": [{"@type": "ActionsToDirective", "actions": ["Alexa.Actions.Open"]}],
					"stateMappings": [{"@type": "StatesToValue", "states": ["Alexa.States.Open"], "value": 100}]
				}
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capability, err := NewCapability(tt.opts)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, toJSON(t, capability))
		})
	}
}

func TestNewCapability_Conflicts(t *testing.T) {
	tests := []struct {
		name string
		opts CapabilityOptions
	}{
		{name: "ordered without configuration", opts: CapabilityOptions{ConfigurationOrdered: boolPtr(true)}},
		{name: "states without actions", opts: CapabilityOptions{SemanticsStates: []any{"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCapability(tt.opts)
			assert.ErrorIs(t, err, ErrConflictingConfiguration)
		})
	}
}

func TestCreatePayloadEndpointCapability_DoesNotMutateResponse(t *testing.T) {
	r := newTestResponse(ResponseOptions{Name: DiscoverResponse})
	before := render(t, r)

	capability, err := r.CreatePayloadEndpointCapability(CapabilityOptions{
		Interface:           "Alexa.PowerController",
		Supported:           SupportedProperties("powerState"),
		ProactivelyReported: true,
		Retrievable:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, before, render(t, r))

	r.AddPayloadEndpoint(EndpointOptions{EndpointID: "switch.a", Capabilities: []Capability{capability}})
	endpoints := render(t, r).Event.Payload["endpoints"].([]PayloadEndpoint)
	require.Len(t, endpoints, 1)
	assert.JSONEq(t, `[{
		"type": "AlexaInterface", "interface": "Alexa.PowerController", "version": "3",
		"properties": {"supported": [{"name": "powerState"}], "proactivelyReported": true, "retrievable": true}
	}]`, toJSON(t, endpoints[0].Capabilities))
}
