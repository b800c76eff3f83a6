package skill

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Entity attributes the gateway reads.
const (
	AttrDeviceClass    = "device_class"
	AttrFriendlyName   = "friendly_name"
	AttrAlexaInterface = "alexa_interface"
	AttrAlexaDisplay   = "alexa_display"
)

// Entity is the state of one home automation entity, addressed as
// "<domain>.<object_id>".
type Entity struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Domain returns the part of the entity id before the first dot.
func (e Entity) Domain() string {
	domain, _, _ := strings.Cut(e.EntityID, ".")
	return domain
}

func (e Entity) deviceClass() string {
	return e.attrString(AttrDeviceClass)
}

func (e Entity) attrString(name string) string {
	s, _ := e.Attributes[name].(string)
	return s
}

func (e Entity) attrNumber(name string) (float64, bool) {
	return toNumber(e.Attributes[name])
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
