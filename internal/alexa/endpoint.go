package alexa

import (
	"maps"
	"slices"
)

// PayloadEndpoint describes a device in a discovery payload.
type PayloadEndpoint struct {
	Capabilities      []Capability      `json:"capabilities"`
	Description       string            `json:"description"`
	DisplayCategories []string          `json:"displayCategories"`
	EndpointID        string            `json:"endpointId"`
	FriendlyName      string            `json:"friendlyName"`
	ManufacturerName  string            `json:"manufacturerName"`
	Cookie            map[string]string `json:"cookie,omitempty"`
}

// EndpointOptions describes a discovered device. An empty EndpointID gets a
// random endpoint_NNNNNN identifier.
type EndpointOptions struct {
	Capabilities      []Capability
	Description       string
	DisplayCategories []string
	EndpointID        string
	FriendlyName      string
	ManufacturerName  string
	Cookie            map[string]string
}

func newPayloadEndpoint(opts EndpointOptions, ids IDSource) PayloadEndpoint {
	capabilities := slices.Clone(opts.Capabilities)
	if capabilities == nil {
		capabilities = []Capability{}
	}

	categories := slices.Clone(opts.DisplayCategories)
	if len(categories) == 0 {
		categories = []string{"OTHER"}
	}

	endpointID := opts.EndpointID
	if endpointID == "" {
		endpointID = ids.EndpointID()
	}

	return PayloadEndpoint{
		Capabilities:      capabilities,
		Description:       valueOr(opts.Description, "Sample Endpoint Description"),
		DisplayCategories: categories,
		EndpointID:        endpointID,
		FriendlyName:      valueOr(opts.FriendlyName, "Sample Endpoint"),
		ManufacturerName:  valueOr(opts.ManufacturerName, "Sample Manufacturer"),
		Cookie:            maps.Clone(opts.Cookie),
	}
}
