package di

import (
	"net/http"

	"gallery-backend/application/commands/bus"
	"gallery-backend/application/ports"
	querybus "gallery-backend/application/queries/bus"
	gallerysync "gallery-backend/application/sync"
	domainconfig "gallery-backend/domain/config"
	"gallery-backend/infrastructure/config"
	"gallery-backend/infrastructure/makecom"
	"gallery-backend/interfaces/http/rest"
	"gallery-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Gallery    *domainconfig.GalleryConfig
	Logger     *zap.Logger
	HTTPClient *http.Client
	Store      ports.DocumentStore
	Mirror     ports.TemplateMirror
	Cache      *InMemoryCache
	Metrics    *observability.Collector
	Fetcher    *makecom.Client
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Router     *rest.Router
	// Reconciler and Scheduler are nil when no mirror is configured
	Reconciler *gallerysync.Reconciler
	Scheduler  *gallerysync.Scheduler
}
