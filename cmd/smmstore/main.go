// Package main запускает HTTP-сервер SMM-витрины.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/smm-storefront/internal/config"
	"github.com/mmeshcher/smm-storefront/internal/handler"
	"github.com/mmeshcher/smm-storefront/internal/middleware"
	"github.com/mmeshcher/smm-storefront/internal/provider"
	"github.com/mmeshcher/smm-storefront/internal/repository"
	"github.com/mmeshcher/smm-storefront/internal/service"
)

const (
	shutdownTimeout   = 5 * time.Second
	limiterCleanup    = time.Minute
	limiterIdleWindow = 5 * time.Minute
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := openRepository(cfg, sugar)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	svc := service.NewService(repo, service.Options{
		Provider:        provider.NewClient(cfg.ProviderAddress),
		Logger:          logger,
		MutationTimeout: cfg.MutationTimeout,
		PollInterval:    cfg.ProviderPollInterval,
		AdminEmails:     cfg.AdminEmails,
		MaxReceiptBytes: cfg.MaxReceiptBytes,
	})
	defer svc.Close()

	if cfg.JWTSecret == "" {
		sugar.Warn("JWT_SECRET is not set, sessions will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, cfg.TokenTTL)

	var opts []handler.Option
	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
		opts = append(opts, handler.WithRateLimiter(limiter))
	}
	// тело запроса с чеком в data: URI может быть больше самого чека
	opts = append(opts, handler.WithMaxBodyBytes(int64(cfg.MaxReceiptBytes)+64<<10))

	h := handler.NewHandler(svc, logger, authMiddleware, opts...)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Фоновый опрос поставщика о статусах заказов
	g.Go(func() error {
		svc.StartProviderSync(ctx)
		return nil
	})

	if limiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(limiterCleanup)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					limiter.Cleanup(limiterIdleWindow)
				}
			}
		})
	}

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting smm storefront", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// openRepository выбирает хранилище: PostgreSQL при заданном DATABASE_URI,
// иначе хранилище в памяти.
func openRepository(cfg *config.Config, sugar *zap.SugaredLogger) (service.Repository, error) {
	if cfg.DatabaseURI == "" {
		sugar.Warn("DATABASE_URI is not set, using in-memory store")
		return repository.NewMemoryRepository(), nil
	}
	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
