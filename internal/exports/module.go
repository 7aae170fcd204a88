package exports

import (
	apphttp "permitleads_backend/internal/http"
	"permitleads_backend/platform/logger"
	"permitleads_backend/platform/validator"
)

// Module is the exports bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the exports module.
func NewModule(leads LeadLister, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(leads, val, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// RegisterRoutes mounts export routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/export.csv", m.handler.ExportCSV)
}

var _ apphttp.Module = (*Module)(nil)
