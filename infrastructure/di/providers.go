package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gallery-backend/application/commands"
	"gallery-backend/application/commands/bus"
	commandhandlers "gallery-backend/application/commands/handlers"
	"gallery-backend/application/ports"
	"gallery-backend/application/queries"
	querybus "gallery-backend/application/queries/bus"
	queryhandlers "gallery-backend/application/queries/handlers"
	gallerysync "gallery-backend/application/sync"
	domainconfig "gallery-backend/domain/config"
	"gallery-backend/infrastructure/config"
	"gallery-backend/infrastructure/makecom"
	"gallery-backend/infrastructure/messaging/eventbridge"
	"gallery-backend/infrastructure/openai"
	"gallery-backend/infrastructure/persistence/file"
	"gallery-backend/infrastructure/persistence/github"
	"gallery-backend/infrastructure/persistence/sqlite"
	"gallery-backend/infrastructure/persistence/supabase"
	"gallery-backend/interfaces/http/rest"
	"gallery-backend/interfaces/http/rest/middleware"
	"gallery-backend/pkg/auth"
	apperrors "gallery-backend/pkg/errors"
	"gallery-backend/pkg/observability"
	"gallery-backend/pkg/ratelimit"
	"gallery-backend/pkg/sanitize"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// mirrorSyncTimeout bounds one scheduled reconciliation
const mirrorSyncTimeout = 10 * time.Minute

// Limiters holds the two independent request budgets
type Limiters struct {
	Scrape ratelimit.Limiter
	Submit ratelimit.Limiter
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() || cfg.IsLambda {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		zcfg.Level = level
	}

	return zcfg.Build()
}

// ProvideGalleryConfig loads the gallery rules for the environment and
// overlays GALLERY_CONFIG_FILE when set.
func ProvideGalleryConfig(cfg *config.Config) (*domainconfig.GalleryConfig, error) {
	gallery := domainconfig.LoadGalleryConfig(cfg.Environment)
	if cfg.GalleryConfigFile != "" {
		if err := gallery.LoadFile(cfg.GalleryConfigFile); err != nil {
			return nil, err
		}
	}
	return gallery, nil
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("gallery")
}

// ProvideHTTPClient creates the client used for every outbound call
func ProvideHTTPClient(cfg *config.Config) *http.Client {
	client := &http.Client{Timeout: cfg.HTTPClientTimeout}
	if cfg.IsLambda {
		return observability.InstrumentHTTPClient(client)
	}
	return client
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, err
	}
	if cfg.IsLambda {
		observability.InstrumentAWS(&awsCfg)
	}
	return awsCfg, nil
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideDocumentStore selects the templates document backend
func ProvideDocumentStore(cfg *config.Config, httpClient *http.Client, logger *zap.Logger) (ports.DocumentStore, error) {
	switch cfg.StoreDriver {
	case config.StoreFile:
		return file.NewStore(cfg.TemplatesFile, logger), nil
	case config.StoreGitHub:
		return github.NewStore(github.Config{
			Token:  cfg.GitHubToken,
			Owner:  cfg.GitHubOwner,
			Repo:   cfg.GitHubRepo,
			Branch: cfg.GitHubBranch,
			Path:   cfg.GitHubTemplatesPath,
			APIURL: cfg.GitHubAPIURL,
		}, httpClient, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// ProvideMirror opens the relational mirror. It returns a nil mirror when
// MIRROR_DRIVER is none.
func ProvideMirror(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.TemplateMirror, func(), error) {
	switch cfg.MirrorDriver {
	case config.MirrorSupabase:
		m, err := supabase.NewMirror(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, logger)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {}, nil
	case config.MirrorSQLite:
		m, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {
			if err := m.Close(); err != nil {
				logger.Error("Failed to close sqlite mirror", zap.Error(err))
			}
		}, nil
	default:
		return nil, func() {}, nil
	}
}

// ProvideEventPublisher returns nil when no event bus is configured
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideLimiters creates the scrape and submission limiters
func ProvideLimiters(cfg *config.Config, client *awsdynamodb.Client) Limiters {
	if cfg.RateLimitBackend == config.RateLimitDynamoDB {
		return Limiters{
			Scrape: ratelimit.NewDynamoLimiter(client, cfg.RateLimitTable, "scrape", cfg.ScrapesPerHour, time.Hour),
			Submit: ratelimit.NewDynamoLimiter(client, cfg.RateLimitTable, "submit", cfg.SubmissionsPerHour, time.Hour),
		}
	}
	return Limiters{
		Scrape: ratelimit.NewMemoryLimiter(cfg.ScrapesPerHour, time.Hour),
		Submit: ratelimit.NewMemoryLimiter(cfg.SubmissionsPerHour, time.Hour),
	}
}

// ProvideCatalogCache creates the catalog cache and its janitor
func ProvideCatalogCache(cfg *config.Config, metrics *observability.Collector) (*InMemoryCache, func()) {
	cache := NewInMemoryCache(cfg.CatalogCacheTTL, metrics)
	return cache, cache.Stop
}

// ProvideOpenAIClient returns nil without an API key
func ProvideOpenAIClient(cfg *config.Config, gallery *domainconfig.GalleryConfig, httpClient *http.Client, metrics *observability.Collector, logger *zap.Logger) *openai.Client {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set; validation is unavailable and enhancement falls back")
		return nil
	}
	return openai.NewClient(openai.Config{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		ValidationModel: cfg.OpenAIValidationModel,
		EnhanceModel:    cfg.OpenAIEnhanceModel,
		Categories:      gallery.Categories,
	}, httpClient, metrics, logger)
}

// ProvideColorSource scrapes icon colors only when the feature is enabled
func ProvideColorSource(gallery *domainconfig.GalleryConfig, httpClient *http.Client, logger *zap.Logger) ports.ColorSource {
	if !gallery.EnableColorScraping {
		return makecom.NoColors{}
	}
	return makecom.NewPageColorSource(httpClient, logger)
}

// ProvideMakeClient creates the shared-scenario metadata client
func ProvideMakeClient(gallery *domainconfig.GalleryConfig, httpClient *http.Client, colors ports.ColorSource, metrics *observability.Collector, logger *zap.Logger) *makecom.Client {
	return makecom.NewClient(httpClient, colors, logger,
		makecom.WithMetrics(metrics),
		makecom.WithDefaultTitle(gallery.DefaultTitle),
	)
}

// ProvideImageProxy creates the allow-listed image proxy
func ProvideImageProxy(gallery *domainconfig.GalleryConfig, httpClient *http.Client) *makecom.ImageProxy {
	return makecom.NewImageProxy(httpClient, gallery.ImageDomains)
}

// ProvideSanitizer creates the submission sanitizer
func ProvideSanitizer(gallery *domainconfig.GalleryConfig) *sanitize.Sanitizer {
	return sanitize.New(gallery.ScenarioDomains, gallery.EmbedDomains)
}

// ProvideTokenValidator returns nil when no JWT secret is configured, in
// which case every request is anonymous.
func ProvideTokenValidator(cfg *config.Config) (middleware.TokenValidator, error) {
	if cfg.SupabaseJWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.SupabaseJWTSecret,
		Audience:  "authenticated",
		Leeway:    30 * time.Second,
	})
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	cfg *config.Config,
	store ports.DocumentStore,
	gallery *domainconfig.GalleryConfig,
	mirror ports.TemplateMirror,
	publisher ports.EventPublisher,
	cache *InMemoryCache,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	adapter := &zapLoggerAdapter{logger}
	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(adapter))

	publish := commandhandlers.NewPublishScenarioHandler(store, gallery, adapter,
		commandhandlers.WithMirror(mirror),
		commandhandlers.WithEventPublisher(publisher),
		commandhandlers.WithCatalogCache(cache),
		commandhandlers.WithMetrics(metrics),
		commandhandlers.WithMaxAttempts(cfg.PublishMaxAttempts),
	)
	if err := commandBus.Register(commands.PublishScenarioCommand{}, publish); err != nil {
		return nil, err
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers.
// Catalog reads are cached until the next publish or file change.
func ProvideQueryBus(
	cfg *config.Config,
	store ports.DocumentStore,
	mirror ports.TemplateMirror,
	gallery *domainconfig.GalleryConfig,
	source *makecom.Client,
	ai *openai.Client,
	cache *InMemoryCache,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	adapter := &zapLoggerAdapter{logger}
	queryBus := querybus.NewQueryBus()

	// Nil capabilities must reach the handlers as untyped nils
	var (
		moderator   ports.Moderator
		validator   ports.SubmissionValidator
		enhancer    ports.Enhancer
		categorizer ports.Categorizer
	)
	if ai != nil {
		validator, enhancer, categorizer = ai, ai, ai
		if gallery.EnableModeration {
			moderator = ai
		}
	}

	observed := querybus.NewMetricsMiddleware(metrics)
	cached := querybus.NewCachingMiddleware(cache, int(cfg.CatalogCacheTTL/time.Second))
	catalog := queryhandlers.NewCatalogHandler(store, gallery, cfg.SiteURL)

	registrations := []struct {
		query    querybus.Query
		handler  querybus.QueryHandler
		wrappers []querybus.Wrapper
	}{
		{queries.FetchScenarioQuery{}, queryhandlers.NewFetchScenarioHandler(source, categorizer, adapter), []querybus.Wrapper{observed}},
		{queries.ValidateSubmissionQuery{}, queryhandlers.NewValidateSubmissionHandler(moderator, validator, adapter), []querybus.Wrapper{observed}},
		{queries.EnhanceMetadataQuery{}, queryhandlers.NewEnhanceMetadataHandler(enhancer, metrics, adapter), []querybus.Wrapper{observed}},
		{queries.ListTemplatesQuery{}, catalog, []querybus.Wrapper{observed, cached}},
		{queries.GetTemplateQuery{}, catalog, []querybus.Wrapper{observed, cached}},
		{queries.ListCategoriesQuery{}, catalog, []querybus.Wrapper{observed, cached}},
		{queries.ListUserTemplatesQuery{}, queryhandlers.NewUserTemplatesHandler(mirror), []querybus.Wrapper{observed}},
	}
	for _, reg := range registrations {
		if err := queryBus.Register(reg.query, reg.handler, reg.wrappers...); err != nil {
			return nil, err
		}
	}

	return queryBus, nil
}

// ProvideReconciler returns nil when no mirror is configured
func ProvideReconciler(store ports.DocumentStore, mirror ports.TemplateMirror, metrics *observability.Collector, logger *zap.Logger) *gallerysync.Reconciler {
	if mirror == nil {
		return nil
	}
	return gallerysync.NewReconciler(store, mirror, metrics, logger, gallerysync.DefaultConcurrency)
}

// ProvideScheduler returns nil when there is nothing to reconcile or no
// schedule is set.
func ProvideScheduler(cfg *config.Config, reconciler *gallerysync.Reconciler, logger *zap.Logger) (*gallerysync.Scheduler, error) {
	if reconciler == nil || cfg.MirrorSyncSchedule == "" {
		return nil, nil
	}
	return gallerysync.NewScheduler(cfg.MirrorSyncSchedule, reconciler, mirrorSyncTimeout, logger)
}

// ProvideRouter assembles the HTTP surface
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	sanitizer *sanitize.Sanitizer,
	errHandler *apperrors.ErrorHandler,
	limiters Limiters,
	tokens middleware.TokenValidator,
	images *makecom.ImageProxy,
	store ports.DocumentStore,
	metrics *observability.Collector,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(rest.Dependencies{
		CommandBus:     commandBus,
		QueryBus:       queryBus,
		Sanitizer:      sanitizer,
		ErrorHandler:   errHandler,
		ScrapeLimiter:  limiters.Scrape,
		SubmitLimiter:  limiters.Submit,
		TokenValidator: tokens,
		Images:         images,
		Ready: func(ctx context.Context) error {
			_, err := store.Read(ctx)
			return err
		},
		Metrics: metrics,
		Logger:  logger,
	}, rest.Options{
		EnableCORS:    cfg.EnableCORS,
		CORSOrigins:   cfg.CORSOrigins,
		EnableMetrics: cfg.EnableMetrics,
	})
}

// zapLoggerAdapter adapts zap.Logger to the handlers.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Debug(msg string, fields ...interface{}) {
	a.logger.Debug(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Error(msg string, fields ...interface{}) {
	a.logger.Error(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) fieldsToZap(fields ...interface{}) []zap.Field {
	var zapFields []zap.Field
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, _ := fields[i].(string)
			zapFields = append(zapFields, zap.Any(key, fields[i+1]))
		}
	}
	return zapFields
}
