package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arx/internal/document"
	"arx/internal/facade"
	"arx/internal/platform/config"
	"arx/internal/platform/httpserver"
	"arx/internal/platform/logger"
	"arx/internal/platform/redis"
	"arx/internal/policy"
	"arx/internal/portfolio"
	"arx/internal/session"
	httptransport "arx/internal/transport/http"
	"arx/internal/vault"
	"arx/pkg/platform/sentinel"
)

const indexInterval = time.Hour

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Trust logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, cleanup, err := archiveFactory(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	secret := []byte(cfg.VaultSecret)
	f, err := facade.Open(ctx, factory, secret, facade.RolePrimary,
		facade.WithLogger(log), facade.WithIndexWorkers(cfg.IndexWorkers))
	if errors.Is(err, sentinel.ErrNotFound) {
		log.Info("no existing node found, setting up")
		f, err = bootstrap(ctx, cfg, factory, secret, log)
	}
	if err != nil {
		return fmt.Errorf("assemble node: %w", err)
	}
	log.Info("node ready", "entity", f.Portfolio().ID(), "tag", f.Tag())

	store, err := sessionStore(cfg)
	if err != nil {
		return err
	}
	tokens := session.NewTokens([]byte(cfg.JWTSigningKey), "arx")
	sessions := session.NewManager(store, tokens,
		session.WithTTL(cfg.SessionTTL),
		session.WithLogger(log),
	)

	handler := httptransport.NewHandler(f, sessions, httptransport.WithLogger(log))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", httptransport.NewRouter(handler))

	srv := httpserver.New(cfg.Addr, mux)
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go runTasks(ctx, f, log)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// bootstrap sets up a brand new node: entity portfolio first, facade around
// it.
func bootstrap(ctx context.Context, cfg config.Server, factory facade.ArchiveFactory, secret []byte, log *slog.Logger) (*facade.Facade, error) {
	pol := policy.New(policy.WithLogger(log))

	var (
		priv *portfolio.PrivatePortfolio
		err  error
	)
	switch kind := envOr("ARX_ENTITY_KIND", "church"); kind {
	case "person":
		priv, err = pol.SetupPerson(ctx, document.PersonData{
			GivenName:  envOr("ARX_GIVEN_NAME", "Node"),
			FamilyName: envOr("ARX_FAMILY_NAME", "Operator"),
			Born:       envOr("ARX_BORN", ""),
		})
	case "ministry":
		priv, err = pol.SetupMinistry(ctx, document.MinistryData{
			Ministry: envOr("ARX_MINISTRY", "default"),
			Vision:   envOr("ARX_VISION", ""),
			Founded:  envOr("ARX_FOUNDED", ""),
		})
	case "church":
		priv, err = pol.SetupChurch(ctx, document.ChurchData{
			City:    envOr("ARX_CITY", "default"),
			Region:  envOr("ARX_REGION", ""),
			Country: envOr("ARX_COUNTRY", ""),
			Founded: envOr("ARX_FOUNDED", ""),
		})
	default:
		return nil, fmt.Errorf("bootstrap: unknown entity kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return facade.Setup(ctx, factory, secret, facade.RolePrimary, cfg.ServerMode, priv,
		facade.WithLogger(log), facade.WithIndexWorkers(cfg.IndexWorkers))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// archiveFactory selects the storage backend: postgres when a database URL is
// configured, in-memory otherwise. Archives are memoized per tag so every
// component sees the same backend.
func archiveFactory(ctx context.Context, cfg config.Server) (facade.ArchiveFactory, func(), error) {
	if cfg.DatabaseURL == "" {
		var mu sync.Mutex
		archives := make(map[string]vault.Archive)
		factory := func(tag string) (vault.Archive, error) {
			mu.Lock()
			defer mu.Unlock()
			if a, ok := archives[tag]; ok {
				return a, nil
			}
			a := vault.NewMemoryArchive()
			archives[tag] = a
			return a, nil
		}
		return factory, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	var mu sync.Mutex
	archives := make(map[string]vault.Archive)
	factory := func(tag string) (vault.Archive, error) {
		mu.Lock()
		defer mu.Unlock()
		if a, ok := archives[tag]; ok {
			return a, nil
		}
		a := vault.NewPostgresArchive(db, tag)
		if err := a.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		archives[tag] = a
		return a, nil
	}
	return factory, func() { db.Close() }, nil
}

// sessionStore picks redis when configured, memory otherwise.
func sessionStore(cfg config.Server) (session.Store, error) {
	client, err := redis.New(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if client == nil {
		return session.NewMemoryStore(), nil
	}
	return session.NewRedisStore(client), nil
}

// runTasks runs the facade's background jobs on a fixed interval until the
// context ends.
func runTasks(ctx context.Context, f *facade.Facade, log *slog.Logger) {
	ticker := time.NewTicker(indexInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, task := range f.Tasks() {
				if err := task.Run(ctx); err != nil {
					log.Error("background task failed", "task", task.Name(), "error", err)
				}
			}
		}
	}
}
