package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restobar/auth"
	"restobar/catalog"
	"restobar/config"
	"restobar/controller"
	"restobar/database"
	"restobar/gateway"
	"restobar/logger"
	"restobar/media"
	"restobar/order"
	"restobar/payment"
	"restobar/production"
	"restobar/realtime"
	"restobar/report"
	"restobar/route"
	"restobar/shift"
	"restobar/staff"
	"restobar/tables"
	"restobar/utils"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLog := logger.New("restobar", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	db, err := database.InitDatabase(cfg, hub)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	store, err := media.FromConfig(&cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	for _, b := range bridges(ctx, cfg, hub, appLog) {
		b := b
		defer b.Close()
		go func() {
			if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				appLog.Error("", "realtime_bridge", "bridge stopped", err)
			}
		}()
	}

	gw := gateway.New(db, hub, store)
	tokens := utils.NewTokens(cfg.JWTSecret)

	authSvc := auth.NewService(gw, tokens, cfg.Timeouts.ProfileFetch, cfg.Timeouts.Failsafe, appLog)
	shiftSvc := shift.NewService(gw, cfg.Timeouts.ShiftCheck, appLog)
	orderSvc := order.NewService(gw, order.NewRegistry(), appLog)
	productionSvc := production.NewService(gw, appLog)
	presence := staff.NewPresence()

	authSvc.OnSignOut(func(userID uuid.UUID) {
		shiftSvc.Forget(userID)
		orderSvc.Drafts().ForgetUser(userID)
	})

	if err := productionSvc.Warm(ctx); err != nil {
		log.Fatalf("Failed to load production queue: %v", err)
	}
	go authSvc.Watch(ctx, gw)
	go productionSvc.Run(ctx, gw)

	ctl := &controller.Controller{
		Auth:       authSvc,
		Shift:      shiftSvc,
		Tables:     tables.NewService(gw, appLog),
		Orders:     orderSvc,
		Production: productionSvc,
		Payment:    payment.NewService(gw, appLog),
		Reports:    report.NewService(gw, appLog),
		Catalog:    catalog.NewService(gw, appLog),
		Staff:      staff.NewService(gw, authSvc.Resolver(), appLog),
		Presence:   presence,
		Feed:       gw,
		Log:        appLog,
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Println("Running in debug mode")
	}

	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(appLog))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))
	log.Println("CORS configured")

	if cfg.StorageBackend == "" || cfg.StorageBackend == "local" {
		router.Static(cfg.UploadURL, cfg.UploadDir)
	}

	route.Setup(router, ctl, tokens)
	log.Println("Routes configured successfully")

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// bridges connects the hub to the configured broker and, when a channel is
// set, to Postgres notifications. Connection failures are fatal.
func bridges(ctx context.Context, cfg config.Config, hub *realtime.Hub, appLog *logger.Logger) []realtime.Bridge {
	onError := func(err error) {
		appLog.Error("", "realtime_bridge", "bridge error", err)
	}
	var out []realtime.Bridge
	switch cfg.Realtime.Broker {
	case "nats":
		b, err := realtime.NewNATSBridge(cfg.Realtime.NATSURL, cfg.Realtime.NATSSubject, hub, onError)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		out = append(out, b)
	case "rabbitmq":
		b, err := realtime.NewRabbitBridge(cfg.Realtime.RabbitURL, cfg.Realtime.RabbitExchange, hub, onError)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		out = append(out, b)
	}
	if cfg.Realtime.PGListenChannel != "" {
		l, err := realtime.NewPGListener(ctx, cfg.DatabaseDSN, cfg.Realtime.PGListenChannel, hub, onError)
		if err != nil {
			log.Fatalf("Failed to listen on %s: %v", cfg.Realtime.PGListenChannel, err)
		}
		out = append(out, l)
	}
	return out
}
