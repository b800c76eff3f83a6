package skill

import (
	"fmt"
	"strings"
)

// serviceCall is the home automation action a control directive maps to.
type serviceCall struct {
	Domain  string
	Service string
	Data    map[string]any
}

func payloadNumber(payload map[string]any, path ...string) (float64, error) {
	var current any = payload
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("%w: payload.%s", ErrInvalidDirective, strings.Join(path, "."))
		}
		current = m[key]
	}
	value, ok := toNumber(current)
	if !ok {
		return 0, fmt.Errorf("%w: payload.%s is not a number", ErrInvalidDirective, strings.Join(path, "."))
	}
	return value, nil
}

func hasKey(payload map[string]any, key string) bool {
	_, ok := payload[key]
	return ok
}

// serviceFor maps a control directive onto a service call for the entity.
func serviceFor(iface, name string, payload map[string]any, e Entity) (serviceCall, error) {
	call := serviceCall{
		Domain: e.Domain(),
		Data:   map[string]any{"entity_id": e.EntityID},
	}
	isCover := e.Domain() == "cover"

	switch {
	case iface == ifaceMode && name == "SetMode":
		call.Service = "close_cover"
		if mode, _ := payload["mode"].(string); mode == "Position.Up" {
			call.Service = "open_cover"
		}

	case iface == ifaceRange && name == "AdjustRangeValue" && isCover:
		delta, err := payloadNumber(payload, "rangeValueDelta")
		if err != nil {
			return serviceCall{}, err
		}
		position, ok := e.attrNumber("current_position")
		if !ok {
			return serviceCall{}, fmt.Errorf("%w: %s has no current_position", ErrInvalidState, e.EntityID)
		}
		call.Service = "set_cover_position"
		call.Data["position"] = clampPercent(position + delta)

	case iface == ifaceRange && name == "SetRangeValue" && isCover:
		value, err := payloadNumber(payload, "rangeValue")
		if err != nil {
			return serviceCall{}, err
		}
		call.Service = "set_cover_position"
		call.Data["position"] = clampPercent(value)

	case iface == ifaceRange && name == "AdjustRangeValue":
		delta, err := payloadNumber(payload, "rangeValueDelta")
		if err != nil {
			return serviceCall{}, err
		}
		call.Service = "decrement"
		if delta > 0 {
			call.Service = "increment"
		}

	case iface == ifaceRange && name == "SetRangeValue":
		value, err := payloadNumber(payload, "rangeValue")
		if err != nil {
			return serviceCall{}, err
		}
		call.Service = "configure"
		call.Data["value"] = int(value)

	case iface == ifaceLock:
		call.Service = strings.ToLower(name)

	case iface == ifacePower:
		call.Service = "turn_on"
		if name == "TurnOff" {
			call.Service = "turn_off"
		}

	case iface == ifaceBrightness && name == "SetBrightness":
		brightness, err := payloadNumber(payload, "brightness")
		if err != nil {
			return serviceCall{}, err
		}
		call.Service = "turn_on"
		call.Data["brightness_pct"] = int(brightness)

	case iface == ifaceColor && name == "SetColor":
		hue, err := payloadNumber(payload, "color", "hue")
		if err != nil {
			return serviceCall{}, err
		}
		saturation, err := payloadNumber(payload, "color", "saturation")
		if err != nil {
			return serviceCall{}, err
		}
		call.Service = "turn_on"
		call.Data["hs_color"] = []float64{hue, 100 * saturation}

	case iface == ifaceColorTemperature && name == "SetColorTemperature":
		kelvin, err := payloadNumber(payload, "colorTemperatureInKelvin")
		if err != nil {
			return serviceCall{}, err
		}
		call.Service = "turn_on"
		call.Data["kelvin"] = int(kelvin)

	case iface == ifaceThermostat && name == "AdjustTargetTemperature":
		delta, err := payloadNumber(payload, "targetSetpointDelta", "value")
		if err != nil {
			return serviceCall{}, err
		}
		high, okHigh := e.attrNumber("target_temp_high")
		low, okLow := e.attrNumber("target_temp_low")
		if !okHigh || !okLow {
			return serviceCall{}, fmt.Errorf("%w: %s has no target range", ErrInvalidState, e.EntityID)
		}
		call.Service = "set_temperature"
		call.Data["target_temp_high"] = high + delta
		call.Data["target_temp_low"] = low + delta

	case iface == ifaceThermostat && name == "SetTargetTemperature":
		call.Service = "set_temperature"
		if hasKey(payload, "upperSetpoint") {
			upper, err := payloadNumber(payload, "upperSetpoint", "value")
			if err != nil {
				return serviceCall{}, err
			}
			call.Data["target_temp_high"] = upper
		}
		if hasKey(payload, "lowerSetpoint") {
			lower, err := payloadNumber(payload, "lowerSetpoint", "value")
			if err != nil {
				return serviceCall{}, err
			}
			call.Data["target_temp_low"] = lower
		}
		if hasKey(payload, "targetSetpoint") {
			target, err := payloadNumber(payload, "targetSetpoint", "value")
			if err != nil {
				return serviceCall{}, err
			}
			call.Data["target_temp_high"] = target + 4
			call.Data["target_temp_low"] = target - 4
		}

	default:
		return serviceCall{}, fmt.Errorf("%w: directive %s.%s", ErrUnsupported, iface, name)
	}

	return call, nil
}

func clampPercent(v float64) int {
	return int(min(max(v, 0), 100))
}

// expectedValue predicts the value of a property once call has completed,
// so the response can be sent without waiting for the state to settle.
func expectedValue(name string, call serviceCall, e Entity) (any, error) {
	switch name {
	case "mode":
		if call.Service == "open_cover" {
			return "Position.Up", nil
		}
		return "Position.Down", nil

	case "rangeValue":
		switch call.Service {
		case "set_cover_position":
			return call.Data["position"], nil
		case "configure":
			return call.Data["value"], nil
		}
		current, err := propertyValue(name, e)
		if err != nil {
			return nil, err
		}
		value, _ := current.(int)
		if call.Service == "increment" {
			return value + 1, nil
		}
		return value - 1, nil

	case "powerState":
		if call.Service == "turn_off" {
			return "OFF", nil
		}
		return "ON", nil

	case "lockState":
		switch call.Service {
		case "lock":
			return "LOCKED", nil
		case "unlock":
			return "UNLOCKED", nil
		}

	case "brightness":
		if pct, ok := call.Data["brightness_pct"]; ok {
			return pct, nil
		}

	case "color":
		if hs, ok := call.Data["hs_color"].([]float64); ok {
			brightness, _ := e.attrNumber("brightness")
			return map[string]any{"hue": hs[0], "saturation": hs[1] / 100, "brightness": brightness / 255}, nil
		}

	case "colorTemperatureInKelvin":
		if kelvin, ok := call.Data["kelvin"]; ok {
			return kelvin, nil
		}

	case "thermostatMode":
		return thermostatMode(e), nil

	case "lowerSetpoint":
		if low, ok := toNumber(call.Data["target_temp_low"]); ok {
			return temperature(low), nil
		}
		return attrTemperature(e, "target_temp_low")

	case "upperSetpoint":
		if high, ok := toNumber(call.Data["target_temp_high"]); ok {
			return temperature(high), nil
		}
		return attrTemperature(e, "target_temp_high")

	case "targetSetpoint":
		high, okHigh := toNumber(call.Data["target_temp_high"])
		low, okLow := toNumber(call.Data["target_temp_low"])
		if okHigh && okLow {
			return temperature((high + low) / 2), nil
		}
		return propertyValue(name, e)
	}

	return propertyValue(name, e)
}
