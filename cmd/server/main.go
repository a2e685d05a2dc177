package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/shecares/shecares-backend/internal/config"
	"github.com/shecares/shecares-backend/internal/database"
	"github.com/shecares/shecares-backend/internal/handler"
	"github.com/shecares/shecares-backend/internal/middleware"
	"github.com/shecares/shecares-backend/internal/queue"
	"github.com/shecares/shecares-backend/internal/repository"
	"github.com/shecares/shecares-backend/internal/router"
)

// sweepCutoff mirrors the bulk-miss endpoint: pending logs older than two
// hours are considered missed.
const sweepCutoff = 2 * time.Hour

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set env vars directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	rdb := config.NewRedisClient() // nil when Redis is unreachable; middleware degrade to no-ops
	if rdb == nil {
		log.Println("redis unavailable: rate limiting and response cache disabled")
	}
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	medicineRepo := repository.NewMedicineRepo(db)
	logRepo := repository.NewDosageLogRepo(db)
	incidentRepo := repository.NewIncidentRepo(db)

	medicineHandler := handler.NewMedicineHandler(medicineRepo, rdb, cacheCfg)
	logHandler := handler.NewDosageLogHandler(logRepo, medicineRepo, rdb, cacheCfg)
	incidentHandler := handler.NewIncidentHandler(incidentRepo)

	e := echo.New()
	router.RegisterRoutes(e, incidentHandler)
	router.RegisterAPI(e, logHandler, medicineHandler, incidentHandler,
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.NewTokenBucket(rateCfg, rdb),
		middleware.NewRedisCache(cacheCfg, rdb),
	)

	// Event consumer writes dose/incident events to logs/events.log and
	// reconnects on broker failures.
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	// Optional background sweep of stale pending logs across all users.
	// The bulk-miss endpoint remains available either way.
	if cfg.SweepInterval > 0 {
		go runSweeper(logRepo, cfg.SweepInterval)
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// runSweeper periodically flips pending logs older than the cutoff to
// missed, for every user.
func runSweeper(logs *repository.DosageLogRepo, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := logs.SweepMissedAll(ctx, time.Now().Add(-sweepCutoff))
		cancel()
		if err != nil {
			log.Printf("sweeper: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("sweeper: marked %d stale logs missed", n)
		}
	}
}
