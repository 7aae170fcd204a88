package maps

// GeocodeRequest is the operator lookup query.
type GeocodeRequest struct {
	Query string `form:"q" validate:"required,min=3,max=300"`
}

// GeocodeResponse is returned by the operator lookup endpoint.
type GeocodeResponse struct {
	Query string   `json:"query"`
	Found bool     `json:"found"`
	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
}

// nominatimResponse mirrors the relevant parts of the OSM search payload.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}
