package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"medibook/internal/config"
	"medibook/internal/knowledge"
	"medibook/internal/platform/medkb"
	"medibook/internal/report"
	"medibook/internal/triage"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	// 1. Infrastructure
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		for i := 0; i < 10; i++ {
			db, err = sql.Open("postgres", cfg.DatabaseURL)
			if err == nil {
				err = db.Ping()
			}
			if err == nil {
				break
			}
			logger.Info().Int("attempt", i+1).Msg("waiting for database")
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			logger.Warn().Err(err).Msg("could not connect to database, assessments will not be persisted")
			db = nil
		} else {
			logger.Info().Msg("connected to database")
			runMigrations(cfg, logger)
		}
	}

	// 2. Clients
	var fetcher knowledge.Fetcher
	var scorer triage.RemoteScorer
	if cfg.KnowledgeBaseURL != "" {
		client := medkb.NewClient(cfg.KnowledgeBaseURL, cfg.KnowledgeTimeout())
		fetcher = client
		scorer = client
	} else {
		logger.Info().Msg("KNOWLEDGE_BASE_URL not set, using built-in knowledge and local analysis only")
	}

	store := knowledge.NewStore(fetcher, cfg.KnowledgeTimeout(), logger)
	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.KnowledgeTimeout())
	store.Load(loadCtx)
	cancel()
	logger.Info().Str("source", store.Source()).Int("conditions", len(store.Conditions())).Msg("knowledge loaded")

	// 3. Services
	var repo triage.Repository
	if db != nil {
		repo = triage.NewRepository(db)
	}

	norm := triage.NewNormalizer()
	planner := triage.NewPlanner(norm)
	engine := triage.NewEngine(store, norm, weightsFrom(cfg))
	svc := triage.NewService(planner, engine, scorer, repo, nil, cfg.AnalysisTimeout(), logger)
	reportSvc := report.NewService()
	handler := triage.NewHandler(svc, store, repo, reportSvc)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			if r.Method == "OPTIONS" {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		triage.RegisterRoutes(r, handler)
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
	})

	logger.Info().Str("port", cfg.Port).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func runMigrations(cfg *config.Config, logger zerolog.Logger) {
	m, err := migrate.New(cfg.MigrationsPath, cfg.DatabaseURL)
	if err != nil {
		logger.Warn().Err(err).Msg("migration init failed")
		return
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		logger.Warn().Err(err).Msg("migration up failed")
		return
	}
	logger.Info().Msg("migrations applied")
}

// weightsFrom applies configured overrides on top of the default weights.
// Zero-valued overrides keep the default.
func weightsFrom(cfg *config.Config) triage.Weights {
	w := triage.DefaultWeights()
	override := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	override(&w.Primary, cfg.WeightPrimary)
	override(&w.Secondary, cfg.WeightSecondary)
	override(&w.SeverityBand, cfg.WeightSeverityBand)
	override(&w.RapidOnsetBonus, cfg.WeightRapidOnsetBonus)
	override(&w.ProlongedPenalty, cfg.WeightProlongedPenalty)
	override(&w.SmellTasteBoost, cfg.WeightSmellTasteBoost)
	override(&w.SmellTastePenalty, cfg.WeightSmellTastePenalty)
	override(&w.AllergyComboBoost, cfg.WeightAllergyComboBoost)
	override(&w.ReportThreshold, cfg.ReportThreshold)
	return w
}
