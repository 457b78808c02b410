package main // Entry point package

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/temple-slot-admission/internal/admission"
	"github.com/iliyamo/temple-slot-admission/internal/advisor"
	"github.com/iliyamo/temple-slot-admission/internal/clock"
	"github.com/iliyamo/temple-slot-admission/internal/config"
	"github.com/iliyamo/temple-slot-admission/internal/database"
	"github.com/iliyamo/temple-slot-admission/internal/handler"
	"github.com/iliyamo/temple-slot-admission/internal/prediction"
	"github.com/iliyamo/temple-slot-admission/internal/queue"
	"github.com/iliyamo/temple-slot-admission/internal/repository"
	"github.com/iliyamo/temple-slot-admission/internal/router"
)

// zones returns the list of crowd zones the aggregation loop covers.
// Defaults to the three physical areas of the site when ZONES is unset.
func zones() []string {
	raw := os.Getenv("ZONES")
	if raw == "" {
		return []string{"gate", "hall", "exit"}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()
	advisorCfg := config.LoadAdvisorConfig()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; prediction cache is in-memory and rate limiting is disabled")
	}

	clk := clock.System{}
	publisher := queue.NewPublisher()

	slotRepo := repository.NewSlotRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	crowdRepo := repository.NewCrowdRepo(db)
	sosRepo := repository.NewSosRepo(db)

	cache := prediction.NewCache(rdb, crowdRepo, clk)
	adv := advisor.New(cache, crowdRepo, publisher, advisorCfg)
	engine := admission.NewEngine(slotRepo, reservationRepo, adv, publisher, clk, cfg.QRSecret)
	aggregator := prediction.NewAggregator(crowdRepo, cache, clk, zones(),
		advisorCfg.AggregationWindow, advisorCfg.PredictionTTL)

	bookingHandler := handler.NewBookingHandler(engine)
	slotHandler := handler.NewSlotHandler(slotRepo)
	crowdHandler := handler.NewCrowdHandler(crowdRepo, cache, adv, aggregator, clk)
	sosHandler := handler.NewSosHandler(sosRepo, publisher, clk)

	// Background workers: the pattern aggregation loop and the alert
	// consumer both run for the life of the process.
	go aggregator.Start(context.Background(), advisorCfg.AggregationInterval)
	go func() {
		if err := queue.StartAlertConsumer(); err != nil {
			log.Printf("alert consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e, slotHandler, crowdHandler)
	router.RegisterBooking(e, bookingHandler, sosHandler, crowdHandler, rlCfg, rdb)
	router.RegisterAuthenticated(e, bookingHandler, slotHandler, crowdHandler, sosHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
