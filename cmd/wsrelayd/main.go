package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ramory-l/wsrelay"
	"github.com/ramory-l/wsrelay/redisplane"
	"github.com/ramory-l/wsrelay/transport"
)

func main() {
	var (
		configPath string
		addr       string
		redisAddr  string
	)

	rootCmd := &cobra.Command{
		Use:   "wsrelayd",
		Short: "Bidirectional websocket message relay",
		Long: `wsrelayd relays messages between websocket clients joined to named
rooms, fanning delivery out across relay processes through a Redis
backplane (pub/sub channels plus persisted per-identity membership).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if redisAddr != "" {
				cfg.Redis.Addr = redisAddr
			}
			return run(cfg)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")
	rootCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address (overrides config)")

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func setup(configPath string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	setupLogger(cfg.LogLevel)
	return cfg, nil
}

func run(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay, cleanup := buildRelay(ctx, cfg)
	defer cleanup()

	relay.On(func(ev wsrelay.Event) {
		slog.Debug("relay event", "kind", ev.Kind.String(), "conn", ev.ConnID,
			"identity", ev.Identity, "room", ev.Room)
	})

	ts := transport.NewServer(nil, slog.Default())
	ts.OnConnect(func(sess *transport.Session) {
		conn := relay.Accept(ctx, sess)
		sess.OnMessage(func(data []byte) {
			relay.HandleFrame(ctx, conn, data)
		})
		sess.OnClose(func(string) {
			relay.HandleClose(ctx, conn)
		})
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/ws", ts)
	r.Get("/healthz", healthHandler(relay))
	r.Get("/stats", statsHandler(relay))
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr, "backplane", cfg.Backplane)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	ts.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildRelay wires the relay server to the configured backplane and returns
// it with a teardown function.
func buildRelay(ctx context.Context, cfg Config) (*wsrelay.Server, func()) {
	if cfg.Backplane == "memory" {
		mb := wsrelay.NewMemoryBackplane()
		relay := wsrelay.NewServer(wsrelay.Config{
			Bus:     mb,
			Store:   mb,
			Logger:  slog.Default(),
			Metrics: prometheus.DefaultRegisterer,
		})
		mb.MarkReady(relay.State())
		return relay, func() {}
	}

	plane := redisplane.New(redisplane.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Logger:   slog.Default(),
	})
	relay := wsrelay.NewServer(wsrelay.Config{
		Bus:     plane,
		Store:   plane,
		Logger:  slog.Default(),
		Metrics: prometheus.DefaultRegisterer,
	})
	plane.Start(ctx, relay.State())
	return relay, func() { plane.Close() }
}

func setupLogger(level string) {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func healthHandler(relay *wsrelay.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := "ok"
		code := http.StatusOK
		if !relay.State().Ready() {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

func statsHandler(relay *wsrelay.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, conns := relay.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"rooms": rooms, "connections": conns})
	}
}
