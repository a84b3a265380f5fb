package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/Sachin7013/vision-connect/internal/adapter/driven/persistence/memory"
	"github.com/Sachin7013/vision-connect/internal/adapter/driven/persistence/postgres"
	"github.com/Sachin7013/vision-connect/internal/adapter/driven/qr"
	handler "github.com/Sachin7013/vision-connect/internal/adapter/driving/http"
	"github.com/Sachin7013/vision-connect/internal/config"
	"github.com/Sachin7013/vision-connect/internal/core/port"
	"github.com/Sachin7013/vision-connect/internal/core/service"
	"github.com/Sachin7013/vision-connect/internal/observability/metrics"
)

func main() {
	w := zerolog.ConsoleWriter{Out: os.Stdout}
	l := zerolog.New(w).With().Timestamp().Caller().Logger()
	zlog.Logger = l

	cfg := config.Load()
	metrics.MustRegister()

	var (
		devices port.DeviceRepository
		users   port.UserRepository
	)
	switch cfg.Storage {
	case "memory":
		l.Warn().Msg("using in-memory storage, records are lost on restart")
		devices = memory.NewDeviceRepository()
		users = memory.NewUserRepository()
	default:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to open database")
		}
		devices = postgres.NewDeviceRepository(db)
		users = postgres.NewUserRepository(db)
	}

	authService := service.NewAuthService(users, []byte(cfg.SigningKey), cfg.Issuer, cfg.AccessTTL)
	provisionService := service.NewProvisionService(devices, cfg.ServerURL)
	relayService := service.NewRelayService(devices)

	h := handler.NewHandler(authService, provisionService, relayService, qr.NewEncoder())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Info().Str("addr", cfg.Addr).Str("server_url", cfg.ServerURL).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	relayService.Stop()
	l.Info().Msg("Server exited")
}
