package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental-backoffice/internal/cache"
	"github.com/iliyamo/car-rental-backoffice/internal/config"
	"github.com/iliyamo/car-rental-backoffice/internal/database"
	"github.com/iliyamo/car-rental-backoffice/internal/handler"
	"github.com/iliyamo/car-rental-backoffice/internal/middleware"
	"github.com/iliyamo/car-rental-backoffice/internal/queue"
	"github.com/iliyamo/car-rental-backoffice/internal/repository"
	"github.com/iliyamo/car-rental-backoffice/internal/router"
	queue_publisher "github.com/iliyamo/car-rental-backoffice/internal/service"
	"github.com/iliyamo/car-rental-backoffice/internal/sweeper"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the response cache and rate limiter; nil degrades both
	// to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: response cache and rate limiting disabled")
	}
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	customers := repository.NewCustomerRepo(db)
	reservations := repository.NewReservationRepo(db)
	contracts := repository.NewContractRepo(db)
	maintenance := repository.NewMaintenanceRepo(db)

	// Event publisher plus its consumers.  An unset AMQP_URL runs the
	// service without broker side effects.
	var events *queue_publisher.Publisher
	if cfg.AMQPURL != "" {
		events = queue_publisher.New(cfg.AMQPURL)
		go func() {
			if err := queue.StartNotificationConsumer(); err != nil {
				log.Printf("notification consumer stopped: %v", err)
			}
		}()
		if rdb != nil {
			inv := cache.NewInvalidator(rdb, cacheCfg.Prefix)
			go func() {
				if err := inv.Start(); err != nil {
					log.Printf("cache invalidator stopped: %v", err)
				}
			}()
		}
	} else {
		log.Println("AMQP_URL unset: broker events disabled")
	}

	// Expiration sweep: one algorithm behind both the background runner
	// and the scheduler-facing endpoint.
	sweepOpts := []sweeper.Option{}
	if events != nil {
		sweepOpts = append(sweepOpts, sweeper.WithNotifier(events))
	}
	sw := sweeper.New(sweeper.NewSQLStore(reservations, vehicles), sweepOpts...)
	runner := sweeper.StartRunner(context.Background(), sw, cfg.SweepInterval)
	defer runner.Stop()

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(rateCfg, rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterBackoffice(e, router.BackofficeHandlers{
		Vehicles:     handler.NewVehicleHandler(vehicles, reservations),
		Customers:    handler.NewCustomerHandler(customers),
		Reservations: handler.NewReservationHandler(reservations, vehicles, contracts, events),
		Contracts:    handler.NewContractHandler(contracts),
		Maintenance:  handler.NewMaintenanceHandler(maintenance, vehicles),
		Reports:      handler.NewReportHandler(reservations),
	}, cfg.JWTSecret, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterInternal(e, handler.NewExpirationHandler(sw))

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// Graceful shutdown: stop accepting requests, then stop the sweeper
	// (deferred above) so an in-flight cycle finishes.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
