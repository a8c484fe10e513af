// Command collab-board starts the collaborative board server.
//
// It supports two modes:
//  1. default – runs the HTTP server exposing the REST API, the /ws WebSocket, /metrics and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags (each also readable from the environment or a .env file) control
// host/port, the settings profile, logging, and optional ngrok tunneling for
// easy external access during development.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/collab-board/api"
	"github.com/wricardo/collab-board/board/config"
	"github.com/wricardo/collab-board/board/session"
	"github.com/wricardo/collab-board/board/store"
	"github.com/wricardo/collab-board/metrics"
	"github.com/wricardo/collab-board/transport/mcp"
	"github.com/wricardo/collab-board/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Collaborative Board Server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	cmd := newRootCommand()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd.Name, err)
		os.Exit(1)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "collab-board",
		Usage:   "real-time collaborative whiteboard and chat server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing board settings profiles",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "profile",
				Value:   config.DefaultProfile,
				Usage:   "Settings profile to load from the config directory",
				Sources: cli.EnvVars("BOARD_PROFILE"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.StringFlag{
				Name:    "env",
				Value:   "dev",
				Usage:   "Runtime environment; \"prod\" switches to JSON logs",
				Sources: cli.EnvVars("APP_ENV"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runHTTPServer,
		Commands: []*cli.Command{
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioMCP,
			},
		},
	}
}

// newLogger returns a slog.Logger with formatting + level based on env.
// prod logs JSON at INFO, others text at DEBUG; debug forces DEBUG.
func newLogger(w io.Writer, env string, debug bool) *slog.Logger {
	level := slog.LevelDebug
	if env == "prod" && !debug {
		level = slog.LevelInfo
	}
	var handler slog.Handler
	if env == "prod" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// loadSettings resolves the board settings profile. A missing config
// directory falls back to built-in defaults. The manager is returned so
// the API can list the available profiles.
func loadSettings(configDir, profile string, logger *slog.Logger) (*config.Settings, *config.Manager, error) {
	manager, err := config.NewManager(configDir)
	if err != nil {
		logger.Warn("config.fallback", "dir", configDir, "error", err)
		manager = config.NewDefaultsManager()
	}

	if profile == "" || profile == config.DefaultProfile {
		return manager.GetDefault(), manager, nil
	}
	settings, err := manager.LoadProfile(profile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile %q: %w", profile, err)
	}
	return settings, manager, nil
}

// board is the wired set of long-lived components.
type board struct {
	settings  *config.Settings
	profiles  *config.Manager
	store     *store.Store
	handler   *session.Handler
	collector *metrics.Collector
	hub       *websocket.Hub
	reaper    *store.Reaper
	logger    *slog.Logger
}

// newBoard wires the store, session handler, metrics, hub and reaper
// from settings.
func newBoard(settings *config.Settings, logger *slog.Logger) (*board, error) {
	st, err := store.New(store.Options{
		MaxUsers:       settings.MaxUsers,
		ChatLimit:      settings.ChatHistoryLimit,
		IDLength:       settings.RoomIDLength,
		PublicRoomName: settings.PublicRoomName,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create room store: %w", err)
	}

	collector := metrics.New()
	handler := session.NewHandler(st, session.Options{
		JoinHistory: settings.JoinHistory,
		IdleGrace:   settings.IdleGrace(),
		CardWidth:   settings.CardWidth,
		CardHeight:  settings.CardHeight,
		Placement:   settings.RoomPlacement(),
		Recorder:    collector,
		Logger:      logger,
	})
	collector.Watch(handler)

	hub := websocket.NewHub(handler, websocket.Options{
		SendBuffer:      settings.SendBuffer,
		MaxMessageBytes: settings.MaxMessageBytes,
		Logger:          logger,
	})

	return &board{
		settings:  settings,
		store:     st,
		handler:   handler,
		collector: collector,
		hub:       hub,
		reaper:    store.NewReaper(handler, settings.ReapInterval(), logger),
		logger:    logger,
	}, nil
}

// start runs the hub loop and the idle-room reaper until ctx is done.
func (b *board) start(ctx context.Context) {
	go b.hub.Run(ctx)
	go b.reaper.Run(ctx)
}

// routes mounts the REST API, WebSocket and metrics at root and the MCP
// proxy at /mcp. The MCP client calls back into baseURL.
func (b *board) routes(baseURL string) http.Handler {
	opts := api.Options{
		Metrics: b.collector.Handler(),
		Logger:  b.logger,
	}
	if b.profiles != nil {
		opts.Profiles = b.profiles
	}
	apiServer := api.NewServer(b.handler, b.hub, opts)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.Handle("/mcp", mcp.NewClient(baseURL).HTTPHandler())
	return mainRouter
}

func setup(cmd *cli.Command, logOut io.Writer) (*board, *slog.Logger, error) {
	logger := newLogger(logOut, cmd.String("env"), cmd.Bool("debug"))
	slog.SetDefault(logger)

	settings, manager, err := loadSettings(cmd.String("config-dir"), cmd.String("profile"), logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("config.loaded", "profile", settings.Name, "max_users", settings.MaxUsers, "chat_history_limit", settings.ChatHistoryLimit)

	b, err := newBoard(settings, logger)
	if err != nil {
		return nil, nil, err
	}
	b.profiles = manager
	return b, logger, nil
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	b, logger, err := setup(cmd, os.Stdout)
	if err != nil {
		return err
	}
	logger.Info("server.starting", "app", AppName, "version", Version)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.start(runCtx)

	mainRouter := b.routes(fmt.Sprintf("http://%s", addr))
	httpServer := &http.Server{
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server.listening",
			"addr", addr,
			"rest", fmt.Sprintf("http://%s/api", addr),
			"websocket", fmt.Sprintf("ws://%s/ws", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
			"metrics", fmt.Sprintf("http://%s/metrics", addr))
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.failed", "error", err)
		}
	}()

	operations := map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"board": func(ctx context.Context) error {
			cancel()
			select {
			case <-b.hub.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	if cmd.Bool("ngrok") {
		tun, err := startTunnel(runCtx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter, logger)
		if err != nil {
			logger.Error("ngrok.failed", "error", err)
		} else {
			operations["ngrok"] = func(context.Context) error {
				return tun.Close()
			}
		}
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, operations)
	exitCode := <-wait
	logger.Info("server.stopped", "exit_code", exitCode)
	if exitCode != 0 {
		return cli.Exit("shutdown did not complete cleanly", exitCode)
	}
	return nil
}

// startTunnel serves handler through an ngrok tunnel in the background.
func startTunnel(ctx context.Context, authToken, domain string, handler http.Handler, logger *slog.Logger) (ngrok.Tunnel, error) {
	if authToken == "" {
		return nil, errors.New("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
	}

	var tunnel ngrokConfig.Tunnel = ngrokConfig.HTTPEndpoint()
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("ngrok.domain", "domain", domain)
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		return nil, fmt.Errorf("failed to start ngrok tunnel: %w", err)
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok.established",
		"url", ngrokURL,
		"rest", ngrokURL+"/api",
		"websocket", ngrokURL+"/ws",
		"mcp", ngrokURL+"/mcp")

	go func() {
		if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("ngrok.serve", "error", err)
		}
		logger.Info("ngrok.closed")
	}()
	return tun, nil
}

// runStdioMCP runs an MCP stdio server.
// It reuses a board already listening on host:port; if unavailable, it
// starts an internal board bound to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the MCP protocol
	logger := newLogger(os.Stderr, cmd.String("env"), cmd.Bool("debug"))

	externalURL := fmt.Sprintf("http://%s:%d", cmd.String("host"), cmd.Int("port"))
	baseURL := externalURL
	if !healthy(externalURL) {
		logger.Info("mcp.internal_server", "reason", "no board at "+externalURL)

		b, _, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		b.start(runCtx)

		httpServer := &http.Server{Handler: b.routes(baseURL)}
		defer httpServer.Close()
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("mcp.internal_server_failed", "error", err)
			}
		}()
	}

	logger.Info("mcp.ready", "base_url", baseURL)
	mcpClient := mcp.NewClient(baseURL)
	return server.ServeStdio(mcpClient.GetMCPServer())
}

// healthy reports whether a board answers /healthz at baseURL.
func healthy(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
