package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-reservations/internal/auth"
	"ms-reservations/internal/cart"
	cart_api "ms-reservations/internal/cart/api"
	"ms-reservations/internal/config"
	"ms-reservations/internal/events"
	events_api "ms-reservations/internal/events/api"
	"ms-reservations/internal/identity"
	identity_api "ms-reservations/internal/identity/api"
	"ms-reservations/internal/kafka"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/notify"
	"ms-reservations/internal/order"
	order_api "ms-reservations/internal/order/api"
	order_db "ms-reservations/internal/order/db"
	"ms-reservations/internal/qr"
	"ms-reservations/internal/reservation"
	reservation_api "ms-reservations/internal/reservation/api"
	reservation_db "ms-reservations/internal/reservation/db"
	"ms-reservations/internal/storage"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	if cfg.Database.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func guestSessionHandler(secret string, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := auth.NewGuestSession(secret)
		if err != nil {
			log.Error("AUTH", fmt.Sprintf("failed to create guest session: %v", err))
			http.Error(w, "Failed to create guest session", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(session)
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Reservations Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()

	httpClient := &http.Client{
		Timeout: time.Second * 10,
	}
	ctx := context.Background()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	var reservationPublisher reservation.Publisher
	var orderPublisher order.Publisher
	if cfg.Kafka.Enabled {
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer kafkaProducer.Close()
		reservationPublisher = kafkaProducer
		orderPublisher = kafkaProducer
		log.Info("KAFKA", "Kafka producer initialized successfully")

		requiredTopics := []string{
			cfg.Kafka.Topics.ReservationCreated,
			cfg.Kafka.Topics.ReservationCancelled,
			cfg.Kafka.Topics.OrderFinalized,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Warn("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	storageClient := storage.NewClient(cfg.Storage.URL, cfg.Storage.ServiceKey, cfg.Storage.Bucket, httpClient, log)
	qrProvisioner := qr.NewProvisioner(storageClient, cfg.Site.BaseURL, log)

	dispatcher := notify.NewDispatcher(
		notify.NewSMTPSender(cfg.Email),
		notify.NewHTTPSMSSender(cfg.SMS, httpClient),
		log,
	)

	eventService := events.NewService(&events.DB{Bun: bunDB}, redisClient, qrProvisioner, cfg.Redis.EventTTL, log)

	reservationService := reservation.NewService(
		&reservation_db.DB{Bun: bunDB},
		eventService,
		qrProvisioner,
		dispatcher,
		reservationPublisher,
		cfg.Kafka.Topics,
		log,
	)

	stripeVerifier, err := order.NewStripeVerifier(cfg.Stripe.SecretKey, log)
	if err != nil {
		log.Fatal("STRIPE", fmt.Sprintf("Stripe initialization failed: %v", err))
	}

	cartDB := &cart.DB{Bun: bunDB}
	cartService := cart.NewService(cartDB, log)

	orderService := order.NewService(
		&order_db.DB{Bun: bunDB},
		cartDB,
		stripeVerifier,
		orderPublisher,
		cfg.Kafka.Topics,
		log,
	)

	resolver := identity.NewResolver(&identity.DB{Bun: bunDB}, log)

	reservationHandler := reservation_api.NewHandler(reservationService, log)
	orderHandler := order_api.NewHandler(orderService, log)
	cartHandler := cart_api.NewHandler(cartService, log)
	eventsHandler := events_api.NewHandler(eventService, log)
	identityHandler := identity_api.NewHandler(resolver, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Site.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes ---
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/events", eventsHandler.ListEvents)
	r.Get("/api/events/{eventId}", eventsHandler.GetEvent)
	r.Post("/api/reservations", reservationHandler.CreateReservation)
	r.Get("/api/reservations", reservationHandler.ListReservations)
	r.Get("/api/reservations/{reservationId}", reservationHandler.GetReservation)
	r.Post("/api/auth/guest", guestSessionHandler(cfg.Auth.GuestSecret, log))
	log.Info("ROUTER", "Public event and reservation routes registered")

	// --- Guest Cart Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.GuestMiddleware(cfg.Auth.GuestSecret))
		r.Route("/api/guest/cart", func(r chi.Router) {
			r.Get("/", cartHandler.ListGuestCart)
			r.Post("/", cartHandler.AddToGuestCart)
			r.Delete("/{itemId}", cartHandler.RemoveGuestCartItem)
		})
	})
	log.Info("ROUTER", "Guest cart routes registered under /api/guest/cart")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.OIDCIssuer))
		r.Use(resolver.Middleware())
		log.Info("AUTH", "OIDC middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			r.Get("/me", identityHandler.GetProfile)
			r.Put("/me", identityHandler.UpdateProfile)

			r.Delete("/reservations/{reservationId}", reservationHandler.CancelReservation)
			r.Post("/reservations/{reservationId}/qr", reservationHandler.RegenerateQR)
			r.Post("/events/{eventId}/qr", eventsHandler.BackfillQR)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.ListCart)
				r.Post("/", cartHandler.AddToCart)
				r.Post("/merge", cartHandler.MergeCart)
				r.Put("/{itemId}", cartHandler.UpdateCartItem)
				r.Delete("/{itemId}", cartHandler.RemoveCartItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/finalize", orderHandler.FinalizeOrder)
				r.Get("/", orderHandler.ListOrders)
				r.Get("/{orderId}", orderHandler.GetOrder)
			})
		})
	})
	log.Info("ROUTER", "Protected routes registered under /api")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Reservations Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Reservations Service shutdown complete")
	}
}
