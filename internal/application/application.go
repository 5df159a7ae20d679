package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/psds-microservice/casework-service/internal/auth"
	"github.com/psds-microservice/casework-service/internal/config"
	"github.com/psds-microservice/casework-service/internal/database"
	"github.com/psds-microservice/casework-service/internal/handler"
	"github.com/psds-microservice/casework-service/internal/inference"
	"github.com/psds-microservice/casework-service/internal/kafka"
	"github.com/psds-microservice/casework-service/internal/router"
	"github.com/psds-microservice/casework-service/internal/searchindex"
	"github.com/psds-microservice/casework-service/internal/service"
	"github.com/psds-microservice/casework-service/internal/store"
	"go.uber.org/zap"
)

// API приложение: HTTP сервер (режим api).
type API struct {
	cfg     *config.Config
	logger  *zap.Logger
	httpSrv *http.Server
	closers []func() error
}

// Backend is an opened record store and what must be closed with it.
type Backend struct {
	Store   store.Store
	closers []func() error
}

func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStore opens the configured record store. With REDIS_ADDR set, change
// notifications travel over redis so every instance sees every commit.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	b := &Backend{}
	var feed store.Feed
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rf, err := store.NewRedisFeed(ctx, client, cfg.Redis.ChannelPrefix, logger)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis feed: %w", err)
		}
		b.closers = append(b.closers, client.Close, rf.Close)
		feed = rf
		logger.Info("store: change feed over redis", zap.String("addr", cfg.Redis.Addr))
	}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		b.Store = store.NewMemory(feed)
		logger.Warn("store: in-memory backend, data is lost on restart")
	default:
		if err := database.MigrateUp(ctx, cfg.DatabaseURL(), logger); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(cfg.DSN())
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("database: %w", err)
		}
		b.closers = append(b.closers, sqlDB.Close)
		b.Store = store.NewPostgres(db, feed, logger)
	}
	return b, nil
}

// NewAPI создаёт приложение для режима api.
func NewAPI(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	backend, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	s := backend.Store

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicCasework, logger)
	search := searchindex.NewClient(cfg.SearchServiceURL, logger)
	var comparer inference.Comparer
	if cfg.InferenceURL != "" {
		comparer = inference.NewClient(cfg.InferenceURL, cfg.InferenceTimeout, logger)
	} else {
		logger.Warn("inference: INFERENCE_URL not set, suggestions are disabled")
	}

	directory := service.NewDirectoryService(s, logger)
	apps := service.NewApplicationService(s, directory, comparer, producer, search, cfg.ScreeningCriteriaID, logger)
	tickets := service.NewTicketService(s, directory, producer, search, logger)
	visits := service.NewVisitService(s, loc, producer, logger)
	dashboard := service.NewDashboardService(s, directory, visits)
	chats := service.NewChatService(s, directory, logger)

	if cfg.AuthJWTSecret == "" {
		logger.Warn("auth: AUTH_JWT_SECRET not set, trusting the " + auth.HeaderCallerID + " header")
	}
	authn := auth.New(cfg.AuthJWTSecret, directory, logger)

	h := router.New(router.Handlers{
		Applications: handler.NewApplicationHandler(apps),
		Chats:        handler.NewChatHandler(chats, logger),
		Tickets:      handler.NewTicketHandler(tickets, logger),
		Visits:       handler.NewVisitHandler(visits),
		Directory:    handler.NewDirectoryHandler(directory, dashboard),
	}, authn.Middleware(), logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:     cfg,
		logger:  logger,
		httpSrv: httpSrv,
		closers: []func() error{producer.Close, backend.Close},
	}, nil
}

// Run запускает HTTP сервер, блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.logger.Info("http server listening",
		zap.String("addr", a.httpSrv.Addr),
		zap.String("swagger", base+"/swagger"),
		zap.String("health", base+"/health"),
		zap.String("api", base+"/api/v1/"),
		zap.String("store", a.cfg.StoreDriver),
		zap.String("kafka", strings.Join(a.cfg.KafkaBrokers, ",")))

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("http shutdown: %w", err)
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("shutdown: close", zap.Error(err))
		}
	}
	return runErr
}
