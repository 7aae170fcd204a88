// Package sources provides the crawl source registry bounded context module.
package sources

import (
	apphttp "permitleads_backend/internal/http"
	"permitleads_backend/internal/sources/handler"
	"permitleads_backend/internal/sources/repository"
	"permitleads_backend/internal/sources/service"
	"permitleads_backend/platform/db"
	"permitleads_backend/platform/logger"
	"permitleads_backend/platform/validator"
)

// Module is the sources bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the sources module with all its dependencies.
func NewModule(q db.Querier, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(q), log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "sources"
}

// Service returns the service layer for the crawler.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts source routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/sources")
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.GetByID)
	group.POST("", m.handler.Create)
	group.PATCH("/:id", m.handler.Update)

	// Workflow tools register sources with the shared admin secret.
	ctx.V1.POST("/ingest/sources", ctx.AdminGuard.Require(), m.handler.Upsert)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
