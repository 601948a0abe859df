package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/kinger55555/thenailcasino/internal/arena"
	"github.com/kinger55555/thenailcasino/internal/auth"
	"github.com/kinger55555/thenailcasino/internal/config"
	"github.com/kinger55555/thenailcasino/internal/economy"
	"github.com/kinger55555/thenailcasino/internal/game"
	"github.com/kinger55555/thenailcasino/internal/guard"
	"github.com/kinger55555/thenailcasino/internal/repository"
	"github.com/kinger55555/thenailcasino/internal/story"
	grpcserver "github.com/kinger55555/thenailcasino/internal/transport/grpc"
	handlers "github.com/kinger55555/thenailcasino/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC trade service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// openStore returns the configured store and its closer.
func openStore(ctx context.Context, cfg config.Config, migrate bool) (repository.Store, func() error, error) {
	var store repository.Store = repository.NewMemory()
	closeStore := func() error { return nil }
	if cfg.Store == "postgres" {
		pg, err := repository.OpenPostgres(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		store, closeStore = pg, pg.Close
	}
	if m, ok := store.(repository.Migrator); ok && migrate {
		if err := m.Migrate(ctx); err != nil {
			closeStore()
			return nil, nil, err
		}
	}
	return store, closeStore, nil
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	rules, err := game.NewProvider(game.NewLoader(cfg.RulesDir), cfg.RulesProfile, log)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	log.Info("rules loaded", "profile", cfg.RulesProfile, "version", rules.Current().Version)

	store, closeStore, err := openStore(ctx, cfg, true)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	graph, err := loadGraph(cfg, rules.Current())
	if err != nil {
		return err
	}

	econ := economy.NewService(store, rules, economy.Options{Log: log})
	if err := econ.SeedCatalog(ctx); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	// reloaded rules must keep every story boss; the catalog is re-seeded so
	// new or changed nails reach the store
	rules.Check(func(r *game.Rules) error { return graph.Validate(r.Bosses) })
	rules.OnReload(func(*game.Rules) {
		seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := econ.SeedCatalog(seedCtx); err != nil {
			log.Error("catalog reseed failed", "err", err)
		}
	})
	rules.Watch(cfg.RulesReload)
	defer rules.Stop()

	battles := arena.NewService(store, rules, arena.Options{RunClock: true, Log: log})
	tokens := auth.NewTokenManager(cfg.JWTSecret)

	deps := handlers.Deps{
		Economy:        econ,
		Arena:          battles,
		Story:          story.NewService(store, graph, battles, rules, log),
		Rules:          rules,
		Tokens:         tokens,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		deps.Limiter = guard.NewRateLimiter(rdb)
		deps.Locks = guard.NewActionLock(rdb, 10*time.Second)
		log.Info("connected to redis", "addr", cfg.RedisAddr)
	}

	gin.SetMode(gin.ReleaseMode)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: handlers.NewRouter(deps), ReadHeaderTimeout: 10 * time.Second}
	grpcSrv := grpcserver.NewServer(tokens, grpcserver.NewTradeServer(econ, log))
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	errc := make(chan error, 2)
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		log.Info("grpc listening", "addr", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			errc <- fmt.Errorf("grpc: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errc:
		log.Error("server failed", "err", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		log.Error("http shutdown", "err", serr)
	}
	grpcSrv.GracefulStop()
	battles.Shutdown(shutdownCtx)
	return err
}

func loadGraph(cfg config.Config, rules *game.Rules) (*story.Graph, error) {
	if cfg.StoryGraph == "" {
		return story.DefaultGraph(rules.Bosses)
	}
	return story.LoadFile(cfg.StoryGraph, rules.Bosses)
}
