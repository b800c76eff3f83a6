package skill

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyValue(t *testing.T) {
	tests := []struct {
		name     string
		property string
		entity   Entity
		want     any
	}{
		{"contact open", "detectionState", Entity{EntityID: "binary_sensor.door", State: "open"}, "DETECTED"},
		{"contact on", "detectionState", Entity{EntityID: "binary_sensor.door", State: "on"}, "DETECTED"},
		{"contact closed", "detectionState", Entity{EntityID: "binary_sensor.door", State: "off"}, "NOT_DETECTED"},
		{"presence", "humanPresenceDetectionState", Entity{EntityID: "binary_sensor.hall"}, map[string]any{"value": "DETECTED"}},
		{
			"sensor temperature",
			"temperature",
			Entity{EntityID: "sensor.outside", State: "71.5"},
			map[string]any{"value": 71.5, "scale": "FAHRENHEIT"},
		},
		{
			"target prefers temperature attribute",
			"targetSetpoint",
			Entity{EntityID: "climate.hall", Attributes: map[string]any{"temperature": 70, "current_temperature": 65}},
			map[string]any{"value": 70.0, "scale": "FAHRENHEIT"},
		},
		{"thermostat heat", "thermostatMode", Entity{EntityID: "climate.hall", State: "heat"}, "HEAT"},
		{"thermostat heat_cool", "thermostatMode", Entity{EntityID: "climate.hall", State: "heat_cool"}, "AUTO"},
		{"garage open", "mode", Entity{EntityID: "cover.garage", State: "open"}, "Position.Up"},
		{"garage closed", "mode", Entity{EntityID: "cover.garage", State: "closed"}, "Position.Down"},
		{"garage opening", "mode", Entity{EntityID: "cover.garage", State: "opening"}, "INVALID"},
		{
			"blind position",
			"rangeValue",
			Entity{EntityID: "cover.blind", Attributes: map[string]any{"current_position": json.Number("55")}},
			55,
		},
		{"counter value", "rangeValue", Entity{EntityID: "counter.visits", State: "12"}, 12},
		{"brightness percent", "brightness", Entity{EntityID: "light.desk", Attributes: map[string]any{"brightness": 128}}, 50},
		{"brightness off", "brightness", Entity{EntityID: "light.desk"}, 0},
		{
			"color without attributes",
			"color",
			Entity{EntityID: "light.desk"},
			map[string]any{"hue": 0.0, "saturation": 0.0, "brightness": 0.0},
		},
		{"power", "powerState", Entity{EntityID: "switch.fan", State: "on"}, "ON"},
		{"lock", "lockState", Entity{EntityID: "lock.front", State: "unlocked"}, "UNLOCKED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := propertyValue(tt.property, tt.entity)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPropertyValue_InvalidState(t *testing.T) {
	tests := []struct {
		property string
		entity   Entity
	}{
		{"temperature", Entity{EntityID: "sensor.outside", State: "unavailable"}},
		{"temperature", Entity{EntityID: "climate.hall"}},
		{"rangeValue", Entity{EntityID: "counter.visits", State: "many"}},
		{"rangeValue", Entity{EntityID: "cover.blind"}},
	}

	for _, tt := range tests {
		_, err := propertyValue(tt.property, tt.entity)
		assert.ErrorIs(t, err, ErrInvalidState, "%s of %s", tt.property, tt.entity.EntityID)
	}
}

func TestPropertyValue_MissingSetpoints(t *testing.T) {
	heating := Entity{EntityID: "climate.hall", State: "heat", Attributes: map[string]any{"temperature": 70.0}}

	for _, property := range []string{"lowerSetpoint", "upperSetpoint"} {
		_, err := propertyValue(property, heating)
		assert.ErrorIs(t, err, errNoValue, property)
		assert.NotErrorIs(t, err, ErrInvalidState, property)
	}
}

func TestInterfaces(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
		want   []string
	}{
		{"light", Entity{EntityID: "light.desk"}, []string{ifacePower, ifaceBrightness, ifaceColor, ifaceColorTemperature, ifaceBase}},
		{"script", Entity{EntityID: "script.movie"}, []string{ifacePower, ifaceBase}},
		{"input boolean", Entity{EntityID: "input_boolean.guest"}, []string{ifacePower, ifaceBase}},
		{"binary sensor", Entity{EntityID: "binary_sensor.window"}, []string{ifaceContactSensor, ifaceBase}},
		{"garage", Entity{EntityID: "cover.gate", Attributes: map[string]any{AttrDeviceClass: "gate"}}, []string{ifaceMode, ifaceBase}},
		{"shutter", Entity{EntityID: "cover.shutter", Attributes: map[string]any{AttrDeviceClass: "shutter"}}, []string{ifaceRange, ifaceBase}},
		{"plain cover", Entity{EntityID: "cover.unknown"}, nil},
		{"unmapped domain", Entity{EntityID: "media_player.tv"}, nil},
		{
			"override",
			Entity{EntityID: "binary_sensor.hall", Attributes: map[string]any{AttrAlexaInterface: ifaceMotionSensor}},
			[]string{ifaceMotionSensor, ifaceBase},
		},
		{"hidden", Entity{EntityID: "light.desk", Attributes: map[string]any{AttrAlexaInterface: "None"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, interfaces(tt.entity))
		})
	}
}

func TestInstance(t *testing.T) {
	garage := Entity{EntityID: "cover.garage", Attributes: map[string]any{AttrDeviceClass: "garage"}}
	blind := Entity{EntityID: "cover.blind", Attributes: map[string]any{AttrDeviceClass: "blind"}}
	counter := Entity{EntityID: "counter.visits"}

	assert.Equal(t, "GarageDoor.Position", instance(ifaceMode, garage))
	assert.Equal(t, "Blind.Lift", instance(ifaceRange, blind))
	assert.Equal(t, "Counter.Number", instance(ifaceRange, counter))
	assert.Empty(t, instance(ifaceBase, garage))
	assert.Empty(t, instance(ifacePower, counter))
}

func TestDisplayCategory(t *testing.T) {
	assert.Equal(t, "SMARTLOCK", displayCategory(Entity{EntityID: "lock.front"}))
	assert.Equal(t, "ACTIVITY_TRIGGER", displayCategory(Entity{EntityID: "script.movie"}))
	assert.Equal(t, "DOOR", displayCategory(Entity{EntityID: "cover.door", Attributes: map[string]any{AttrDeviceClass: "door"}}))
	assert.Equal(t, "OTHER", displayCategory(Entity{EntityID: "switch.fan"}))
	assert.Equal(t, "FAN", displayCategory(Entity{EntityID: "switch.fan", Attributes: map[string]any{AttrAlexaDisplay: "FAN"}}))
}

func TestCapability(t *testing.T) {
	blind := Entity{EntityID: "cover.blind", Attributes: map[string]any{AttrDeviceClass: "blind"}}
	c, err := capability(ifaceRange, blind)
	require.NoError(t, err)
	assert.Equal(t, "Blind.Lift", c.Instance)
	require.NotNil(t, c.Configuration)
	assert.Equal(t, "Alexa.Unit.Percent", c.Configuration.UnitOfMeasure)
	require.NotNil(t, c.Semantics)
	assert.Len(t, c.Semantics.ActionMappings, 4)
	assert.Len(t, c.Semantics.StateMappings, 2)

	thermostat, err := capability(ifaceThermostat, Entity{EntityID: "climate.hall"})
	require.NoError(t, err)
	require.NotNil(t, thermostat.Properties)
	assert.True(t, thermostat.Properties.ProactivelyReported)
	assert.False(t, thermostat.Properties.Retrievable)
	assert.Equal(t, []any{"HEAT", "COOL", "AUTO", "OFF"}, thermostat.Configuration.SupportedModes)

	counter, err := capability(ifaceRange, Entity{EntityID: "counter.visits"})
	require.NoError(t, err)
	assert.Empty(t, counter.Configuration.UnitOfMeasure)
	assert.Nil(t, counter.Semantics)

	_, err = capability(ifaceMode, Entity{EntityID: "switch.fan"})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = capability("Alexa.SpeakerController", Entity{EntityID: "media_player.tv"})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestServiceFor(t *testing.T) {
	light := Entity{EntityID: "light.desk"}
	climate := Entity{EntityID: "climate.hall", Attributes: map[string]any{"target_temp_high": 75.0, "target_temp_low": 65.0}}

	call, err := serviceFor(ifaceColor, "SetColor", map[string]any{
		"color": map[string]any{"hue": 350.5, "saturation": 0.7138, "brightness": 0.6524},
	}, light)
	require.NoError(t, err)
	assert.Equal(t, "turn_on", call.Service)
	hs := call.Data["hs_color"].([]float64)
	assert.InDelta(t, 350.5, hs[0], 1e-9)
	assert.InDelta(t, 71.38, hs[1], 1e-9)

	call, err = serviceFor(ifaceColorTemperature, "SetColorTemperature", map[string]any{"colorTemperatureInKelvin": 2700.0}, light)
	require.NoError(t, err)
	assert.Equal(t, 2700, call.Data["kelvin"])

	call, err = serviceFor(ifaceThermostat, "AdjustTargetTemperature", map[string]any{
		"targetSetpointDelta": map[string]any{"value": -2.0, "scale": "FAHRENHEIT"},
	}, climate)
	require.NoError(t, err)
	assert.Equal(t, 73.0, call.Data["target_temp_high"])
	assert.Equal(t, 63.0, call.Data["target_temp_low"])

	call, err = serviceFor(ifaceThermostat, "SetTargetTemperature", map[string]any{
		"upperSetpoint": map[string]any{"value": 78.0},
		"lowerSetpoint": map[string]any{"value": 68.0},
	}, climate)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"entity_id": "climate.hall", "target_temp_high": 78.0, "target_temp_low": 68.0}, call.Data)

	call, err = serviceFor(ifaceRange, "SetRangeValue", map[string]any{"rangeValue": 9.0}, Entity{EntityID: "counter.visits"})
	require.NoError(t, err)
	assert.Equal(t, "configure", call.Service)
	assert.Equal(t, 9, call.Data["value"])

	_, err = serviceFor(ifaceThermostat, "AdjustTargetTemperature", map[string]any{
		"targetSetpointDelta": map[string]any{"value": 1.0},
	}, Entity{EntityID: "climate.bare"})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = serviceFor(ifaceColor, "SetColor", map[string]any{"color": "red"}, light)
	assert.ErrorIs(t, err, ErrInvalidDirective)
}

func TestExpectedValue(t *testing.T) {
	light := Entity{EntityID: "light.desk", State: "off", Attributes: map[string]any{"brightness": 51}}

	got, err := expectedValue("brightness", serviceCall{Domain: "light", Service: "turn_on", Data: map[string]any{"brightness_pct": 40}}, light)
	require.NoError(t, err)
	assert.Equal(t, 40, got)

	got, err = expectedValue("powerState", serviceCall{Domain: "light", Service: "turn_on", Data: map[string]any{"brightness_pct": 40}}, light)
	require.NoError(t, err)
	assert.Equal(t, "ON", got)

	got, err = expectedValue("color", serviceCall{Service: "turn_on", Data: map[string]any{"hs_color": []float64{10, 20}}}, light)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"hue": 10.0, "saturation": 0.2, "brightness": 0.2}, got)

	got, err = expectedValue("rangeValue", serviceCall{Service: "decrement", Data: map[string]any{}}, Entity{EntityID: "counter.visits", State: "5"})
	require.NoError(t, err)
	assert.Equal(t, 4, got)

	got, err = expectedValue("lockState", serviceCall{Service: "lock"}, Entity{EntityID: "lock.front", State: "unlocked"})
	require.NoError(t, err)
	assert.Equal(t, "LOCKED", got)
}

func TestToNumber(t *testing.T) {
	for _, v := range []any{3.0, float32(3), 3, int64(3), json.Number("3"), "3"} {
		n, ok := toNumber(v)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, 3.0, n)
	}
	_, ok := toNumber(nil)
	assert.False(t, ok)
	_, ok = toNumber("three")
	assert.False(t, ok)
}
