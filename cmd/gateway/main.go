package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	api "github.com/lexia-prep/exam-engine/internal/api/http"
	auth "github.com/lexia-prep/exam-engine/internal/auth/middleware"
	"github.com/lexia-prep/exam-engine/internal/config"
	"github.com/lexia-prep/exam-engine/internal/db"
	"github.com/lexia-prep/exam-engine/internal/eventlog"
	"github.com/lexia-prep/exam-engine/internal/exam"
	"github.com/lexia-prep/exam-engine/internal/quota"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := exam.NewSQLStore(dbh)

	quotas, err := exam.LoadAssemblyConfig(cfg.QuotaFile)
	if err != nil {
		log.Fatalf("quota config: %v", err)
	}

	var guard exam.QuotaGuard
	switch cfg.QuotaBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping failed: %v", err)
		}
		guard = quota.NewRedisGuard(rdb, cfg.FreeTestLimit)
	default:
		guard = quota.NewGuard(store.CountTests, cfg.FreeTestLimit)
	}

	events := eventlog.NewRepo(dbh)
	selector := exam.NewSelector(store, nil)
	assembler := exam.NewAssembler(selector, store, guard, quotas)
	svc := exam.NewService(store).WithEvents(events)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.Post("/tests/generate", api.GenerateTestHandler(assembler))
		pr.Get("/tests", api.ListTestsHandler(svc))
		pr.Get("/tests/{testID}", api.GetTestHandler(svc))

		pr.Post("/tests/{testID}/attempts", api.CreateAttemptHandler(svc))
		pr.Get("/tests/{testID}/attempts", api.ListAttemptsHandler(svc))
		pr.Post("/tests/{testID}/submit", api.SubmitAttemptHandler(svc))
		pr.Get("/tests/{testID}/results", api.GetResultsHandler(svc))

		pr.With(auth.RequireRole(quota.RoleAdmin)).
			Post("/content/import", api.ImportContentHandler(store))
	})

	log.Printf("exam-engine gateway listening on %s (db=%s, quota=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.QuotaBackend)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatalf("server: %v", err)
	}
}
