// Command fruitbot-server starts the Fruitbot arcade game server.
//
// The server exposes a REST API, the gameplay WebSocket, and an /mcp HTTP
// endpoint. Configuration comes from the environment (see game/config);
// command line flags override the network fields. A "scores" subcommand
// prints recent final scores from the score database and exits.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"

	"github.com/arcadelab/fruitbot-server/api"
	"github.com/arcadelab/fruitbot-server/game/config"
	"github.com/arcadelab/fruitbot-server/game/engine"
	"github.com/arcadelab/fruitbot-server/game/score"
	"github.com/arcadelab/fruitbot-server/game/service"
	"github.com/arcadelab/fruitbot-server/game/session"
	"github.com/arcadelab/fruitbot-server/transport/mcp"
	"github.com/arcadelab/fruitbot-server/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Fruitbot Arcade Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	cmd := newRootCommand()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. Running without a subcommand serves.
func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "fruitbot-server",
		Usage:   "real-time Fruitbot game server",
		Version: Version,
		Flags:   serveFlags(),
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the game server (default)",
				Flags:  serveFlags(),
				Action: runServe,
			},
			{
				Name:  "scores",
				Usage: "print recent final scores and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "db", Usage: "path to the score database"},
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum number of scores to print"},
				},
				Action: runScores,
			},
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
		&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
		&cli.StringFlag{Name: "db", Usage: "path to the score database"},
		&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
	}
}

// overrideFromFlags applies explicitly set CLI flags on top of the
// environment-derived configuration.
func overrideFromFlags(cfg *config.Config, cmd *cli.Command) {
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("db") {
		cfg.ScoreDB = cmd.String("db")
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
}

func newLogger(debug bool) log15.Logger {
	log := log15.New()
	lvl := log15.LvlInfo
	if debug {
		lvl = log15.LvlDebug
	}
	log.SetHandler(log15.LvlFilterHandler(lvl, log15.StdoutHandler))
	return log
}

// runServe wires all services and blocks until a shutdown signal arrives.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	overrideFromFlags(cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg.Debug)
	log.Info("starting", "app", AppName, "version", Version,
		"input_mode", cfg.InputMode, "tick_rate", cfg.TickRate)

	// Score persistence is best-effort. A broken database file must not
	// keep players from connecting.
	var scores score.Sink
	if sink, err := score.Open(cfg.ScoreDB); err != nil {
		log.Warn("score database unavailable, scores will not be recorded",
			"path", cfg.ScoreDB, "err", err)
	} else {
		scores = sink
		defer sink.Close()
	}

	factory := func() (engine.Engine, error) {
		seed := cfg.EngineSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return engine.NewFruitbot(seed), nil
	}

	registry := session.NewRegistry(cfg.InputMode, log)
	hub := websocket.NewHub(registry, log)
	gameService := service.NewGameService(registry, hub, scores, factory, cfg, log)
	hub.SetService(gameService)

	apiServer := api.NewServer(gameService, hub, log)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	// Create MCP client for the /mcp endpoint
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Idle reaper: retire sessions whose player has no connections left.
	reaper := cron.New()
	if _, err := reaper.AddFunc(cfg.SweepSchedule, func() {
		if n := gameService.SweepStale(context.Background()); n > 0 {
			log.Info("swept stale sessions", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	reaper.Start()
	defer reaper.Stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", addr)
		log.Info("endpoints",
			"rest", fmt.Sprintf("http://%s/api", addr),
			"websocket", fmt.Sprintf("ws://%s/ws", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("received signal, shutting down", "signal", sig)
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		log.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}

	gameService.Shutdown(shutdownCtx)
	log.Info("server stopped")
	return nil
}

// runScores prints the most recent final scores from the score database.
func runScores(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.IsSet("db") {
		cfg.ScoreDB = cmd.String("db")
	}

	sink, err := score.Open(cfg.ScoreDB)
	if err != nil {
		return fmt.Errorf("open score database %s: %w", cfg.ScoreDB, err)
	}
	defer sink.Close()

	entries, err := sink.RecentScores(ctx, int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("query scores: %w", err)
	}

	fmt.Print(formatScoreTable(entries))
	return nil
}

func formatScoreTable(entries []score.Entry) string {
	if len(entries) == 0 {
		return "No scores recorded yet.\n"
	}

	out := fmt.Sprintf("%-20s %-20s %s\n", "PLAYER", "RECORDED", "SCORE")
	for _, e := range entries {
		out += fmt.Sprintf("%-20s %-20s %.1f\n", e.UserID, e.RecordedAt, e.Score)
	}
	return out
}
