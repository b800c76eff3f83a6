package skill

import (
	"fmt"
	"slices"

	"alexa-gateway/internal/alexa"
)

const (
	ifaceBase                  = "Alexa"
	ifaceBrightness            = "Alexa.BrightnessController"
	ifaceColor                 = "Alexa.ColorController"
	ifaceColorTemperature      = "Alexa.ColorTemperatureController"
	ifaceContactSensor         = "Alexa.ContactSensor"
	ifaceDoorbell              = "Alexa.DoorbellEventSource"
	ifaceEventDetectionSensor  = "Alexa.EventDetectionSensor"
	ifaceLock                  = "Alexa.LockController"
	ifaceMode                  = "Alexa.ModeController"
	ifaceMotionSensor          = "Alexa.MotionSensor"
	ifacePower                 = "Alexa.PowerController"
	ifaceRange                 = "Alexa.RangeController"
	ifaceTemperatureSensor     = "Alexa.TemperatureSensor"
	ifaceThermostat            = "Alexa.ThermostatController"
	overrideNone               = "None"
	instanceGarageDoorPosition = "GarageDoor.Position"
	instanceBlindLift          = "Blind.Lift"
	instanceCounterNumber      = "Counter.Number"
)

var (
	garageClasses = []string{"garage", "door", "gate"}
	blindClasses  = []string{"awning", "blind", "curtain", "shade", "shutter", "window"}
)

func isGarage(e Entity) bool { return slices.Contains(garageClasses, e.deviceClass()) }
func isBlind(e Entity) bool  { return slices.Contains(blindClasses, e.deviceClass()) }

// interfaces lists the Alexa interfaces an entity exposes. The
// alexa_interface attribute overrides the domain mapping; "None" hides the
// entity.
func interfaces(e Entity) []string {
	switch override := e.attrString(AttrAlexaInterface); override {
	case "":
	case overrideNone:
		return nil
	case ifaceDoorbell:
		return []string{ifaceDoorbell}
	default:
		return []string{override, ifaceBase}
	}

	switch e.Domain() {
	case "lock":
		return []string{ifaceLock, ifaceBase}
	case "light":
		return []string{ifacePower, ifaceBrightness, ifaceColor, ifaceColorTemperature, ifaceBase}
	case "switch", "input_boolean", "script":
		return []string{ifacePower, ifaceBase}
	case "climate":
		return []string{ifaceTemperatureSensor, ifaceThermostat, ifaceBase}
	case "sensor", "binary_sensor":
		return []string{ifaceContactSensor, ifaceBase}
	case "cover":
		if isGarage(e) {
			return []string{ifaceMode, ifaceBase}
		}
		if isBlind(e) {
			return []string{ifaceRange, ifaceBase}
		}
	case "counter":
		return []string{ifaceRange, ifaceBase}
	}
	return nil
}

// reportedInterfaces drops the base interface, which has no properties.
func reportedInterfaces(e Entity) []string {
	return slices.DeleteFunc(interfaces(e), func(iface string) bool {
		return iface == ifaceBase
	})
}

// instance names the capability instance of multi-instance controllers.
func instance(iface string, e Entity) string {
	if iface != ifaceMode && iface != ifaceRange {
		return ""
	}
	switch {
	case isGarage(e):
		return instanceGarageDoorPosition
	case isBlind(e):
		return instanceBlindLift
	case iface == ifaceRange:
		return instanceCounterNumber
	}
	return ""
}

func assetID(e Entity) string {
	switch {
	case isGarage(e):
		return "Alexa.Setting.Mode"
	case isBlind(e):
		return "Alexa.Setting.Opening"
	}
	return ""
}

func displayCategory(e Entity) string {
	if category := e.attrString(AttrAlexaDisplay); category != "" {
		return category
	}

	switch e.Domain() {
	case "light":
		return "LIGHT"
	case "lock":
		return "SMARTLOCK"
	case "script":
		return "ACTIVITY_TRIGGER"
	case "climate":
		return "THERMOSTAT"
	case "camera":
		return "CAMERA"
	}

	switch {
	case e.deviceClass() == "garage":
		return "GARAGE_DOOR"
	case e.deviceClass() == "door", e.deviceClass() == "gate":
		return "DOOR"
	case isBlind(e):
		return "INTERIOR_BLIND"
	}
	return "OTHER"
}

var interfaceProperties = map[string][]string{
	ifaceContactSensor:        {"detectionState"},
	ifaceMotionSensor:         {"detectionState"},
	ifaceTemperatureSensor:    {"temperature"},
	ifaceThermostat:           {"targetSetpoint", "thermostatMode", "lowerSetpoint", "upperSetpoint"},
	ifacePower:                {"powerState"},
	ifaceBrightness:           {"brightness"},
	ifaceColor:                {"color"},
	ifaceColorTemperature:     {"colorTemperatureInKelvin"},
	ifaceEventDetectionSensor: {"humanPresenceDetectionState"},
	ifaceDoorbell:             {},
	ifaceMode:                 {"mode"},
	ifaceRange:                {"rangeValue"},
	ifaceLock:                 {"lockState"},
}

func supportedProperties(iface string) ([]string, error) {
	props, ok := interfaceProperties[iface]
	if !ok {
		return nil, fmt.Errorf("%w: supported properties for interface %s", ErrUnsupported, iface)
	}
	return props, nil
}

func friendlyNameAsset(id string) map[string]any {
	return map[string]any{"friendlyNames": []any{
		map[string]any{"@type": "asset", "value": map[string]any{"assetId": id}},
	}}
}

func friendlyNameText(text string) map[string]any {
	return map[string]any{"@type": "text", "value": map[string]any{"text": text, "locale": "en-US"}}
}

func actionToDirective(actions []string, name string, payload map[string]any) map[string]any {
	return map[string]any{
		"@type":     "ActionsToDirective",
		"actions":   actions,
		"directive": map[string]any{"name": name, "payload": payload},
	}
}

func statesToValue(states []string, value any) map[string]any {
	return map[string]any{"@type": "StatesToValue", "states": states, "value": value}
}

// capability describes one interface of an entity for discovery.
func capability(iface string, e Entity) (alexa.Capability, error) {
	opts := alexa.CapabilityOptions{Interface: iface}

	switch iface {
	case ifaceBase:
		return alexa.NewCapability(alexa.CapabilityOptions{})
	case ifaceDoorbell:
		opts.ProactivelyReported = true
		return alexa.NewCapability(opts)
	}

	props, err := supportedProperties(iface)
	if err != nil {
		return alexa.Capability{}, err
	}
	opts.Supported = alexa.SupportedProperties(props...)
	opts.ProactivelyReported = true
	opts.Retrievable = true

	switch iface {
	case ifaceLock, ifaceBrightness, ifacePower, ifaceTemperatureSensor, ifaceColor,
		ifaceColorTemperature, ifaceContactSensor, ifaceMotionSensor:
	case ifaceEventDetectionSensor:
		opts.Retrievable = false
	case ifaceThermostat:
		opts.Retrievable = false
		opts.ConfigurationModes = []any{"HEAT", "COOL", "AUTO", "OFF"}
	case ifaceRange:
		opts.Instance = instance(iface, e)
		opts.ConfigurationRange = &alexa.Range{MinimumValue: 0, MaximumValue: 100, Precision: 1}
		if !isBlind(e) {
			opts.CapabilityResources = map[string]any{"friendlyNames": []any{friendlyNameText("number")}}
			break
		}
		opts.CapabilityResources = friendlyNameAsset(assetID(e))
		opts.UnitOfMeasure = "Alexa.Unit.Percent"
		opts.SemanticsActions = []any{
			actionToDirective([]string{"Alexa.Actions.Close"}, "SetRangeValue", map[string]any{"rangeValue": 0}),
			actionToDirective([]string{"Alexa.Actions.Open"}, "SetRangeValue", map[string]any{"rangeValue": 100}),
			actionToDirective([]string{"Alexa.Actions.Lower"}, "AdjustRangeValue", map[string]any{"rangeValueDelta": -10, "rangeValueDeltaDefault": false}),
			actionToDirective([]string{"Alexa.Actions.Raise"}, "AdjustRangeValue", map[string]any{"rangeValueDelta": 10, "rangeValueDeltaDefault": false}),
		}
		opts.SemanticsStates = []any{
			statesToValue([]string{"Alexa.States.Closed"}, 0),
			map[string]any{
				"@type":  "StatesToRange",
				"states": []string{"Alexa.States.Open"},
				"range":  map[string]any{"minimumValue": 1, "maximumValue": 100},
			},
		}
	case ifaceMode:
		if !isGarage(e) {
			return alexa.Capability{}, fmt.Errorf("%w: %s for device class %q", ErrUnsupported, iface, e.deviceClass())
		}
		ordered := false
		opts.Instance = instance(iface, e)
		opts.CapabilityResources = friendlyNameAsset(assetID(e))
		opts.ConfigurationModes = []any{
			modeResource("Position.Up", "Alexa.Value.Open", "Open"),
			modeResource("Position.Down", "Alexa.Value.Close", "Closed"),
		}
		opts.ConfigurationOrdered = &ordered
		opts.SemanticsActions = []any{
			actionToDirective([]string{"Alexa.Actions.Close", "Alexa.Actions.Lower"}, "SetMode", map[string]any{"mode": "Position.Down"}),
			actionToDirective([]string{"Alexa.Actions.Open", "Alexa.Actions.Raise"}, "SetMode", map[string]any{"mode": "Position.Up"}),
		}
		opts.SemanticsStates = []any{
			statesToValue([]string{"Alexa.States.Closed"}, "Position.Down"),
			statesToValue([]string{"Alexa.States.Open"}, "Position.Up"),
		}
	default:
		return alexa.Capability{}, fmt.Errorf("%w: capability for interface %s", ErrUnsupported, iface)
	}

	return alexa.NewCapability(opts)
}

func modeResource(value, assetID, text string) map[string]any {
	return map[string]any{
		"value": value,
		"modeResources": map[string]any{"friendlyNames": []any{
			map[string]any{"@type": "asset", "value": map[string]any{"assetId": assetID}},
			friendlyNameText(text),
		}},
	}
}
