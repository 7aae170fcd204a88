// Package leads provides the lead pipeline bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"permitleads_backend/internal/events"
	apphttp "permitleads_backend/internal/http"
	"permitleads_backend/internal/leads/handler"
	"permitleads_backend/internal/leads/ingest"
	"permitleads_backend/internal/leads/management"
	"permitleads_backend/internal/leads/ports"
	"permitleads_backend/internal/leads/repository"
	"permitleads_backend/platform/config"
	"permitleads_backend/platform/db"
	"permitleads_backend/platform/logger"
	"permitleads_backend/platform/validator"
)

// Dependencies are the collaborators the leads module is built from.
// Geocoder may be nil, in which case leads are stored without enrichment.
type Dependencies struct {
	DB           db.Querier
	Health       handler.Pinger
	EventBus     events.Bus
	Validator    *validator.Validator
	Jurisdiction config.Jurisdiction
	Geocoder     ports.Geocoder
	Logger       *logger.Logger
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	deps       Dependencies
	repo       *repository.Repository
	management *management.Service
	ingest     *ingest.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(deps Dependencies) *Module {
	// Create shared repository
	repo := repository.New(deps.DB)

	normalizer := ingest.NewJurisdictionNormalizer(deps.Jurisdiction)
	ingestSvc := ingest.NewService(normalizer, repo, deps.Geocoder, deps.EventBus, deps.Logger)
	mgmtSvc := management.New(repo, normalizer.Scorer(), deps.EventBus)

	return &Module{
		handler:    handler.New(mgmtSvc, deps.Validator),
		deps:       deps,
		repo:       repo,
		management: mgmtSvc,
		ingest:     ingestSvc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// IngestService returns the ingestion service so the crawler shares one pipeline.
func (m *Module) IngestService() *ingest.Service {
	return m.ingest
}

// Repository returns the lead repository for read-only consumers such as exports.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Operator routes require authentication
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))

	ih := handler.NewIngestHandler(m.ingest, m.deps.Validator, m.deps.Health, ctx.AdminGuard, m.deps.Logger)
	ctx.V1.GET("/ingest/health", ih.Health)

	ingestGroup := ctx.V1.Group("/ingest", ctx.AdminGuard.Require())
	ingestGroup.POST("/firecrawl", ih.Firecrawl)
	ingestGroup.POST("/n8n", ih.N8n)

	webhookGroup := ctx.V1.Group("/webhook/n8n", ctx.AdminGuard.Require())
	webhookGroup.POST("/leads", ih.WebhookLead)
	webhookGroup.POST("/batch", ih.WebhookBatch)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
