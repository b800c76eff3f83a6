package skill

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const scaleFahrenheit = "FAHRENHEIT"

// errNoValue marks an optional property the entity does not currently
// report, such as the range setpoints of a thermostat in heat mode.
var errNoValue = errors.New("skill: property has no value")

func temperature(value float64) map[string]any {
	return map[string]any{"value": value, "scale": scaleFahrenheit}
}

// propertyValue reads the current value of an Alexa property from entity state.
func propertyValue(name string, e Entity) (any, error) {
	switch name {
	case "humanPresenceDetectionState":
		return map[string]any{"value": "DETECTED"}, nil

	case "detectionState":
		switch strings.ToLower(e.State) {
		case "open", "on":
			return "DETECTED", nil
		}
		return "NOT_DETECTED", nil

	case "temperature":
		if e.Domain() == "climate" {
			return attrTemperature(e, "current_temperature")
		}
		value, ok := toNumber(e.State)
		if !ok {
			return nil, fmt.Errorf("%w: %s temperature %q", ErrInvalidState, e.EntityID, e.State)
		}
		return temperature(value), nil

	case "targetSetpoint":
		if _, ok := e.attrNumber("temperature"); ok {
			return attrTemperature(e, "temperature")
		}
		return attrTemperature(e, "current_temperature")

	case "lowerSetpoint":
		return optionalTemperature(e, "target_temp_low")

	case "upperSetpoint":
		return optionalTemperature(e, "target_temp_high")

	case "thermostatMode":
		return thermostatMode(e), nil

	case "mode":
		switch strings.ToLower(e.State) {
		case "open":
			return "Position.Up", nil
		case "closed":
			return "Position.Down", nil
		}
		return "INVALID", nil

	case "rangeValue":
		if e.Domain() == "cover" {
			position, ok := e.attrNumber("current_position")
			if !ok {
				return nil, fmt.Errorf("%w: %s has no current_position", ErrInvalidState, e.EntityID)
			}
			return int(position), nil
		}
		value, err := strconv.Atoi(e.State)
		if err != nil {
			return nil, fmt.Errorf("%w: %s range value %q", ErrInvalidState, e.EntityID, e.State)
		}
		return value, nil

	case "brightness":
		brightness, _ := e.attrNumber("brightness")
		return int(math.Round(brightness * 100 / 255)), nil

	case "color":
		return color(e), nil

	case "colorTemperatureInKelvin":
		kelvin, _ := e.attrNumber("color_temp_kelvin")
		return int(kelvin), nil
	}

	return strings.ToUpper(e.State), nil
}

func attrTemperature(e Entity, attr string) (any, error) {
	value, ok := e.attrNumber(attr)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s", ErrInvalidState, e.EntityID, attr)
	}
	return temperature(value), nil
}

func optionalTemperature(e Entity, attr string) (any, error) {
	value, ok := e.attrNumber(attr)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s", errNoValue, e.EntityID, attr)
	}
	return temperature(value), nil
}

func thermostatMode(e Entity) string {
	mode := strings.ToUpper(e.State)
	if mode == "HEAT_COOL" {
		return "AUTO"
	}
	return mode
}

// color converts the hs_color and brightness attributes. Missing
// attributes report black.
func color(e Entity) map[string]any {
	hue, saturation := 0.0, 0.0
	if hs, ok := e.Attributes["hs_color"].([]any); ok && len(hs) == 2 {
		hue, _ = toNumber(hs[0])
		saturation, _ = toNumber(hs[1])
	}
	brightness, _ := e.attrNumber("brightness")

	return map[string]any{
		"hue":        hue,
		"saturation": saturation / 100,
		"brightness": brightness / 255,
	}
}
