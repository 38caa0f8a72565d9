package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/config"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/plagiarism"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/storage"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
	"github.com/SAP-F-2025/evaluation-service/pkg"
)

// app is the wiring shared by every subcommand that touches attempts.
type app struct {
	db       *gorm.DB
	bus      *config.EventBus
	services services.ServiceManager
	closers  []func() error
	logger   *slog.Logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.db, err = pkg.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB, dbErr := a.db.DB(); dbErr == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	cacheService, closeCache, err := pkg.NewCacheService(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	blobs, err := storage.NewFSStore(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("open upload dir: %w", err)
	}

	a.bus, err = cfg.Events.CreateEventBus(logger)
	if err != nil {
		return nil, fmt.Errorf("create event bus: %w", err)
	}
	a.closers = append(a.closers, a.bus.Close)

	if !cfg.Plagiarism.Enabled() {
		logger.Warn("PLAGIARISM_URL not set, plagiarism checks stay pending")
	}

	a.services = services.NewServiceManager(services.Dependencies{
		Repo:  postgres.NewRepository(a.db, cacheService, logger),
		Blobs: blobs,
		Gateway: plagiarism.NewHTTPGateway(plagiarism.HTTPConfig{
			BaseURL: cfg.Plagiarism.URL,
			APIKey:  cfg.Plagiarism.APIKey,
			Timeout: cfg.Plagiarism.Timeout,
		}),
		Publisher: a.bus.Publisher,
		Queue:     a.bus.Queue,
		Validator: validator.New(),
		Clock:     services.SystemClock(),
		Attempts: services.AttemptOptions{
			Grace: cfg.SubmitGrace,
			Upload: validator.UploadPolicy{
				MaxBytes:          cfg.UploadMaxBytes,
				AllowedExtensions: cfg.UploadAllowedExt,
			},
		},
		Logger: logger,
	})
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to release resource", "error", err)
		}
	}
	a.closers = nil
}

// newTokenParser prefers Casdoor. Static dev tokens are accepted only
// outside production and only when Casdoor is not configured.
func newTokenParser(cfg *config.Config, devTokens []string) (auth.TokenParser, error) {
	if cfg.Casdoor.Endpoint != "" {
		return auth.NewCasdoorParser(cfg.Casdoor)
	}
	if cfg.IsProduction() {
		return nil, errors.New("CASDOOR_ENDPOINT is required in production")
	}
	if len(devTokens) == 0 {
		return nil, errors.New("no token parser: set CASDOOR_* or pass --dev-token")
	}
	return parseDevTokens(devTokens)
}

// parseDevTokens reads token=user:role pairs.
func parseDevTokens(specs []string) (auth.StaticParser, error) {
	parser := auth.StaticParser{}
	for _, spec := range specs {
		token, who, ok := strings.Cut(spec, "=")
		if !ok || token == "" {
			return nil, fmt.Errorf("invalid dev token %q", spec)
		}
		id, role, ok := strings.Cut(who, ":")
		if !ok || id == "" || !models.UserRole(role).Valid() {
			return nil, fmt.Errorf("invalid dev token %q: want token=user:role", spec)
		}
		parser[token] = models.Actor{ID: id, Role: models.UserRole(role)}
	}
	return parser, nil
}
