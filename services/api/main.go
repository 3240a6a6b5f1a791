package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/academyportal/internal/auth"
	"github.com/academyportal/internal/config"
	"github.com/academyportal/internal/handler"
	"github.com/academyportal/internal/logger"
	"github.com/academyportal/internal/metrics"
	"github.com/academyportal/internal/model"
	"github.com/academyportal/internal/repository"
	"github.com/academyportal/internal/startup"
	"github.com/academyportal/internal/storage"
	"github.com/academyportal/internal/storage/memory"
	"github.com/academyportal/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL and demo users (no external DB required)")
	inMemory := flag.Bool("memory", false, "keep everything in process memory (no PostgreSQL, no Redis)")
	tokenFor := flag.Int64("token", 0, "print a bearer token for the given user id and exit")
	flag.Parse()
	defer logger.Flush()

	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	logger.Info("starting API service")

	var (
		messages storage.MessageStore
		users    storage.UserStore
		cache    storage.RecipientCache
	)

	if *inMemory {
		mem := memory.NewDemo()
		messages, users, cache = mem, mem, mem
		logger.Info("in-memory mode: demo users loaded, data is lost on exit")
	} else {
		if *dev {
			embeddedDB, err := startEmbeddedPostgres(cfg)
			if err != nil {
				logger.Errorf("embedded postgres: %v", err)
				exit(1)
			}
			defer func() {
				logger.Info("stopping embedded postgres...")
				if err := embeddedDB.Stop(); err != nil {
					logger.Errorf("embedded postgres stop: %v", err)
				}
			}()
		}

		poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
		if err != nil {
			logger.Errorf("parse db config: %v", err)
			exit(1)
		}
		poolCfg.MaxConns = int32(cfg.DBMaxConnections())
		poolCfg.MinConns = 2

		pool, err := startup.ConnectDBWithRetry(context.Background(), poolCfg, 60*time.Second)
		if err != nil {
			logger.Errorf("%v", err)
			exit(1)
		}
		defer pool.Close()

		if err := runMigrations(pool); err != nil {
			logger.Errorf("%v", err)
			exit(1)
		}
		if *migrate && !*dev {
			return
		}

		userRepo := repository.NewUserRepository(pool)
		if *dev {
			if err := seedDemoUsers(userRepo); err != nil {
				logger.Errorf("seed demo users: %v", err)
				exit(1)
			}
		}
		messages, users = repository.NewMessageRepository(pool), userRepo
		logger.Info("database connected, migrations applied")

		if cfg.Redis.URL != "" {
			rdb, err := startup.ConnectRedisWithRetry(context.Background(), cfg.Redis.URL, 30*time.Second)
			if err != nil {
				logger.Errorf("%v", err)
				exit(1)
			}
			cache = rdb
		} else {
			cache = memory.New()
			logger.Info("REDIS_URL not set, recipient cache in process memory")
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Errorf("cache close: %v", err)
			}
		}()
	}

	if *tokenFor != 0 {
		if err := printToken(cfg, users, *tokenFor); err != nil {
			logger.Errorf("token: %v", err)
			exit(1)
		}
		return
	}

	router := handler.NewRouter(handler.Deps{
		Config:   cfg,
		Messages: messages,
		Users:    users,
		Cache:    cache,
		Metrics:  metrics.New(),
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server error: %v", err)
			exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	srvWg.Wait()
	logger.Info("server stopped")
}

// exit сбрасывает очередь лога перед выходом.
func exit(code int) {
	logger.Flush()
	os.Exit(code)
}

// runMigrations применяет встроенные .sql по порядку имён. Миграции идемпотентны (IF NOT EXISTS).
func runMigrations(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	names, err := fs.Glob(migrations.Files, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := fs.ReadFile(migrations.Files, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("run migration %s: %w", name, err)
		}
	}
	logger.Infof("migrations applied: %d", len(names))
	return nil
}

func seedDemoUsers(repo *repository.UserRepository) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, u := range memory.DemoUsers() {
		if err := repo.Upsert(ctx, &u); err != nil {
			return err
		}
	}
	return nil
}

// printToken выпускает токен для существующего пользователя (локальная разработка и portalctl login).
func printToken(cfg *config.Config, users storage.UserStore, userID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user %d: %w", userID, err)
	}
	tok, err := auth.Issue(cfg.Auth.Secret, model.SessionUser{ID: u.ID, Name: u.Name, Role: u.Role}, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "portal"
		password = "portal_secret"
		database = "portal"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
