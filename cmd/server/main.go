package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bs-shop/config"
	"bs-shop/internal/api"
	"bs-shop/internal/broker"
	"bs-shop/internal/redisclient"
	"bs-shop/internal/service"
	"bs-shop/internal/store"
	"bs-shop/internal/util"
	"bs-shop/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting bs-shop")

	tp, err := util.InitTracer("bs-shop", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	cartTTL := time.Duration(cfg.Business.CartTTLDays) * 24 * time.Hour
	cacheTTL := time.Duration(cfg.Business.CartCacheTTLSecs) * time.Second

	cartService := service.NewCartService(db, redisClient, cartTTL, cacheTTL, cfg.Business.MaxItemQuantity)
	checkoutService := service.NewCheckoutService(db, redisClient, eventPublisher)
	orderService := service.NewOrderService(db, eventPublisher)
	confirmationService := service.NewConfirmationService(db, service.NewWALinkNotifier(), cfg.Business.ShopPhone)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	confirmationWorker := worker.NewConfirmationWorker(orderConsumer, confirmationService)
	go func() {
		if err := confirmationWorker.Start(workerCtx); err != nil {
			log.Printf("Confirmation worker error: %v", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n, err := db.DeleteExpiredCartSessions(workerCtx); err != nil {
					log.Printf("Failed to purge expired cart sessions: %v", err)
				} else if n > 0 {
					log.Printf("Purged %d expired cart sessions", n)
				}
			}
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(cartService, checkoutService, orderService, db)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	confirmationWorker.Stop()

	log.Println("Server exited")
}
