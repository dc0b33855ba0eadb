// Command battleship starts the multiplayer Battleship server.
//
// It supports two modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, the
//     WebSocket game endpoint, and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP
//     API if none is reachable
//
// Every flag can also be set through the environment (and a .env file).
// Lifecycle events go to NATS when --nats-url is set, the instance registers
// with Consul when --consul-addr is set, and --ngrok opens a public tunnel.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/battleship/api"
	"github.com/wricardo/mcp-training/battleship/discovery"
	"github.com/wricardo/mcp-training/battleship/game/config"
	"github.com/wricardo/mcp-training/battleship/game/service"
	"github.com/wricardo/mcp-training/battleship/game/session"
	"github.com/wricardo/mcp-training/battleship/transport/mcp"
	natspub "github.com/wricardo/mcp-training/battleship/transport/nats"
	"github.com/wricardo/mcp-training/battleship/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Battleship Server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. The root action runs the HTTP server.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "battleship",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: config.DefaultHost, Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: config.DefaultPort, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "log-level", Value: config.DefaultLogLevel, Usage: "trace, debug, info, warn or error", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.DurationFlag{Name: "match-interval", Value: config.DefaultMatchInterval, Usage: "how often the matchmaker pairs queued players", Sources: cli.EnvVars("MATCH_INTERVAL")},
			&cli.IntFlag{Name: "send-buffer", Value: config.DefaultSendBuffer, Usage: "outbound events buffered per connection", Sources: cli.EnvVars("SEND_BUFFER")},
			&cli.StringFlag{Name: "static-dir", Usage: "directory served at / (disabled when empty)", Sources: cli.EnvVars("STATIC_DIR")},
			&cli.StringFlag{Name: "nats-url", Usage: "publish lifecycle events to this NATS server", Sources: cli.EnvVars("NATS_URL")},
			&cli.StringFlag{Name: "nats-prefix", Value: config.DefaultNatsPrefix, Usage: "subject prefix for lifecycle events", Sources: cli.EnvVars("NATS_PREFIX")},
			&cli.StringFlag{Name: "consul-addr", Usage: "register with this Consul agent", Sources: cli.EnvVars("CONSUL_HTTP_ADDR")},
			&cli.StringFlag{Name: "service-name", Value: config.DefaultServiceName, Usage: "Consul service name", Sources: cli.EnvVars("SERVICE_NAME")},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			return runHTTPServer(ctx, cfg, logger)
		},
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, logger, err := setup(cmd)
					if err != nil {
						return err
					}
					return runHTTPServer(ctx, cfg, logger)
				},
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, logger, err := setup(cmd)
					if err != nil {
						return err
					}
					return runStdioMCP(ctx, cfg, logger)
				},
			},
		},
	}
}

// configFromCommand reads flag values into a config
func configFromCommand(cmd *cli.Command) config.Config {
	return config.Config{
		Host:          cmd.String("host"),
		Port:          cmd.Int("port"),
		LogLevel:      cmd.String("log-level"),
		MatchInterval: cmd.Duration("match-interval"),
		SendBuffer:    cmd.Int("send-buffer"),
		StaticDir:     cmd.String("static-dir"),
		NatsURL:       cmd.String("nats-url"),
		NatsPrefix:    cmd.String("nats-prefix"),
		ConsulAddr:    cmd.String("consul-addr"),
		ServiceName:   cmd.String("service-name"),
		Ngrok: config.NgrokConfig{
			Enabled:   cmd.Bool("ngrok"),
			AuthToken: cmd.String("ngrok-auth"),
			Domain:    cmd.String("ngrok-domain"),
		},
	}
}

func setup(cmd *cli.Command) (config.Config, hclog.Logger, error) {
	cfg := configFromCommand(cmd)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	// stderr keeps stdout free for the MCP stdio transport
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "battleship",
		Level:  cfg.Level(),
		Output: os.Stderr,
	})
	logger.Info("starting", "app", AppName, "version", Version, "command", cmd.Name)
	return cfg, logger, nil
}

// app is the wired set of in-process components
type app struct {
	sessions   *session.Manager
	service    service.GameService
	matchmaker *service.Matchmaker
	hub        *websocket.Hub
	handler    http.Handler
}

// newApp wires the registry, service, matchmaker and transports. The
// matchmaker is not started.
func newApp(cfg config.Config, publisher service.Publisher, logger hclog.Logger) *app {
	sessions := session.NewManager()
	svc := service.NewGameService(sessions, publisher, logger.Named("service"))
	hub := websocket.NewHub(svc, cfg.SendBuffer, logger.Named("ws"))
	apiServer := api.NewServer(svc, hub, cfg.StaticDir, logger.Named("api"))

	mcpClient := mcp.NewClient(cfg.BaseURL())

	router := http.NewServeMux()
	router.Handle("/", apiServer)
	router.Handle("/mcp", mcpHandler(mcpClient.GetMCPServer(), logger.Named("mcp")))

	return &app{
		sessions:   sessions,
		service:    svc,
		matchmaker: service.NewMatchmaker(sessions, cfg.MatchInterval, publisher, logger.Named("matchmaker")),
		hub:        hub,
		handler:    router,
	}
}

// mcpHandler serves single JSON-RPC messages over HTTP POST
func mcpHandler(mcpServer *server.MCPServer, logger hclog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Warn("failed to write mcp response", "error", err)
		}
	}
}

// connectPublisher returns the NATS publisher when configured. The returned
// close func is never nil.
func connectPublisher(cfg config.Config, logger hclog.Logger) (service.Publisher, func() error, error) {
	if cfg.NatsURL == "" {
		return service.NopPublisher{}, func() error { return nil }, nil
	}
	pub, err := natspub.Connect(cfg.NatsURL, cfg.NatsPrefix, logger.Named("nats"))
	if err != nil {
		return nil, nil, err
	}
	return pub, pub.Close, nil
}

// runHTTPServer serves until ctx is cancelled, then shuts everything down
func runHTTPServer(ctx context.Context, cfg config.Config, logger hclog.Logger) (err error) {
	publisher, closePublisher, err := connectPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closePublisher()) }()

	a := newApp(cfg, publisher, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.matchmaker.Run(ctx)
	}()

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     a.handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		logger.Info("endpoints", "rest", "http://"+addr+"/api", "ws", "ws://"+addr+"/ws", "mcp", "http://"+addr+"/mcp")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
		close(serveErr)
	}()

	if cfg.ConsulAddr != "" {
		deregister, regErr := discovery.Register(discovery.Config{
			ConsulAddr:  cfg.ConsulAddr,
			ServiceName: cfg.ServiceName,
			Host:        cfg.Host,
			Port:        cfg.Port,
			Tags:        []string{"battleship", "websocket"},
		}, logger.Named("consul"))
		if regErr != nil {
			logger.Warn("consul registration failed", "error", regErr)
		} else {
			defer func() { err = multierr.Append(err, deregister()) }()
		}
	}

	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveNgrok(ctx, cfg.Ngrok, a.handler, logger.Named("ngrok"))
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	a.hub.Close()
	shutdownErr := httpServer.Shutdown(shutdownCtx)
	wg.Wait()

	logger.Info("server stopped")
	return shutdownErr
}

// serveNgrok exposes handler through an ngrok tunnel until ctx ends
func serveNgrok(ctx context.Context, cfg config.NgrokConfig, handler http.Handler, logger hclog.Logger) {
	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		logger.Info("using custom ngrok domain", "domain", cfg.Domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	url := tun.URL()
	logger.Info("ngrok tunnel established", "url", url, "ws", url+"/ws", "mcp", url+"/mcp")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server. It reuses a server already listening
// on the configured address; otherwise it starts an internal API on a random
// loopback port.
func runStdioMCP(ctx context.Context, cfg config.Config, logger hclog.Logger) error {
	baseURL := cfg.BaseURL()

	if !apiReachable(ctx, baseURL) {
		logger.Info("no external API server found, starting internal HTTP server", "probed", baseURL)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("listen for internal server: %w", err)
		}

		internal := cfg
		internal.Host = "127.0.0.1"
		internal.Port = listener.Addr().(*net.TCPAddr).Port
		baseURL = internal.BaseURL()

		a := newApp(internal, service.NopPublisher{}, logger)
		go a.matchmaker.Run(ctx)

		httpServer := &http.Server{Handler: a.handler}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()
	}

	logger.Info("MCP stdio server ready", "api", baseURL)
	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

// apiReachable reports whether a battleship API answers at baseURL
func apiReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+discovery.HealthPath, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
