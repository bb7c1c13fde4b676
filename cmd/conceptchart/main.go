package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/conceptchart/internal/config"
	"github.com/ehr/conceptchart/internal/domain/hierarchy"
	"github.com/ehr/conceptchart/internal/platform/db"
	"github.com/ehr/conceptchart/internal/platform/middleware"
	"github.com/ehr/conceptchart/internal/platform/snowstorm"
)

const version = "0.1.0"

// snowstormSource adapts a snowstorm.Client to hierarchy.HierarchySource,
// keeping the terminology client free of domain types.
type snowstormSource struct {
	client *snowstorm.Client
}

// newHierarchySource returns nil when no terminology server is configured.
func newHierarchySource(cfg *config.Config) hierarchy.HierarchySource {
	client := snowstorm.NewClient(cfg.HierarchyServerURL, snowstorm.WithTimeout(cfg.HierarchyTimeout))
	if !client.Enabled() {
		return nil
	}
	return &snowstormSource{client: client}
}

// PartialHierarchy implements hierarchy.HierarchySource.
func (s *snowstormSource) PartialHierarchy(ctx context.Context, codes []string) ([]hierarchy.ConceptRecord, error) {
	nodes, err := s.client.PartialHierarchy(ctx, codes)
	if err != nil {
		return nil, err
	}
	records := make([]hierarchy.ConceptRecord, 0, len(nodes))
	for _, n := range nodes {
		records = append(records, hierarchy.ConceptRecord{
			Code:    n.Code,
			Term:    n.Term,
			Parents: n.Parents,
		})
	}
	return records, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "conceptchart",
		Short: "Concept hierarchy patient-count service",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(flattenCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the hierarchy API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	var (
		pool   *pgxpool.Pool
		events hierarchy.EventRepository
		cache  hierarchy.HierarchyCache
	)
	if cfg.HasDatabase() {
		ctx := context.Background()
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")

		events = hierarchy.NewEventRepoPG(pool)
		cache = hierarchy.NewHierarchyCachePG(pool)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, stored hierarchy endpoints return empty results")
	}

	source := newHierarchySource(cfg)
	if source == nil {
		logger.Warn().Msg("HIERARCHY_SERVER_URL not set, hierarchies use the single-level fallback")
	}

	engine := hierarchy.NewEngine(cfg.RootConcept, logger)
	svc := hierarchy.NewService(events, source, cache, engine, logger)

	e := newServer(cfg, svc, pool, logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("root_concept", cfg.RootConcept).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires middleware and routes. pool may be nil.
func newServer(cfg *config.Config, svc *hierarchy.Service, pool *pgxpool.Pool, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.MaxBodySize, cfg.FlattenBodySize))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool, db.PoolStatsFunc(pool)))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiV1 := e.Group("/api/v1")
	hierarchy.NewHandler(svc).RegisterRoutes(apiV1)

	return e
}
