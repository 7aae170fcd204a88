package maps

import (
	apphttp "permitleads_backend/internal/http"
	"permitleads_backend/platform/validator"
)

// Module wires the operator geocode lookup route.
type Module struct {
	handler *Handler
}

func NewModule(geocoder *Geocoder, val *validator.Validator) *Module {
	return &Module{handler: NewHandler(geocoder, val)}
}

func (m *Module) Name() string {
	return "maps"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/maps")
	group.GET("/geocode", m.handler.Lookup)
}

var _ apphttp.Module = (*Module)(nil)
