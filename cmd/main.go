package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpctx "github.com/parakeep/parakeep-server/internal/api/http/context"
	"github.com/parakeep/parakeep-server/internal/api/http/router"
	"github.com/parakeep/parakeep-server/internal/config"
	"github.com/parakeep/parakeep-server/internal/logger"
	"github.com/parakeep/parakeep-server/internal/model"
	"github.com/parakeep/parakeep-server/internal/password"
	"github.com/parakeep/parakeep-server/internal/repository/postgres"
	"github.com/parakeep/parakeep-server/internal/server"
	"github.com/parakeep/parakeep-server/internal/service"
	"github.com/parakeep/parakeep-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	particleRepo := postgres.NewParticleRepository(db)

	sessions := token.NewManager(cfg.Auth.TokenExpireHours, logger)
	passwords := password.NewManager(cfg.Auth.MinPasswordLength, cfg.Auth.MaxPasswordLength)

	authService := service.NewAuth(
		userRepo,
		sessions,
		passwords,
		cfg.Auth.MinUsernameLength,
		cfg.Auth.MaxUsernameLength,
		cfg.Auth.TokenExpireHours,
		logger,
	)
	particleService := service.NewParticle(particleRepo, service.ParticleLimits{
		MaxTitleLength:     cfg.Limits.MaxTitleLength,
		MaxContentLength:   cfg.Limits.MaxContentLength,
		MaxTagsPerParticle: cfg.Limits.MaxTagsPerParticle,
		MaxTagLength:       cfg.Limits.MaxTagLength,
	}, logger)

	ctxMgr := httpctx.NewManager()

	mux := router.New(
		authService,
		particleService,
		authService,
		ctxMgr,
		db,
		cfg.HTTP.CORSOrigins,
		logger,
	).Register()

	httpServer := server.NewHTTPServer(mux, fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(httpServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
