// Command racelobby starts the race lobby server.
//
// It supports two modes:
//  1. "server" (default) – runs the lobby registry tick loop and the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal lobby server if none is available
//
// Flags control host/port, level directory, debug logging and optional ngrok
// tunneling for easy external access during development. Lobby policy is read
// from LOBBY_* environment variables (see config.Settings).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/racelobby/api"
	"github.com/wricardo/racelobby/game/config"
	"github.com/wricardo/racelobby/game/gameplay"
	"github.com/wricardo/racelobby/game/player"
	"github.com/wricardo/racelobby/game/resource"
	"github.com/wricardo/racelobby/game/service"
	"github.com/wricardo/racelobby/game/session"
	"github.com/wricardo/racelobby/transport/mcp"
	"github.com/wricardo/racelobby/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Race Lobby Server"
)

// main loads .env and runs the command line app
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		// Only log if it's not a "file not found" error
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree. Flags are shared by every mode.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "racelobby",
		Usage:   AppName,
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
				Usage:   "Directory containing level configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
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
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runHTTPServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, starting an internal lobby server if needed",
				Action:  runStdioMCPWithInternalServer,
			},
		},
		Action: runHTTPServer,
	}
}

func setupLogging(cmd *cli.Command) {
	if cmd.Bool("debug") {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

// stack is every long-lived component of one lobby server
type stack struct {
	settings   config.Settings
	levels     *config.Manager
	loader     *resource.MemoryLoader
	directory  *player.Directory
	scoreboard *gameplay.Scoreboard
	registry   *session.Registry
	hub        *websocket.Hub
	service    service.LobbyService
}

// buildStack wires the registry, its collaborators and the websocket hub.
// Nothing runs until start is called.
func buildStack(configDir string, settings config.Settings) (*stack, error) {
	levels, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if settings.OverrideLevel != "" {
		if err := levels.SetOverride(settings.OverrideLevel); err != nil {
			return nil, fmt.Errorf("failed to set level override: %w", err)
		}
	}

	s := &stack{
		settings:   settings,
		levels:     levels,
		loader:     resource.NewMemoryLoader(),
		directory:  player.NewDirectory(),
		scoreboard: gameplay.NewScoreboard(),
	}

	// The hub needs the registry as its handler and the registry needs the
	// hub as its publisher, so the publisher resolves the hub late.
	publisher := session.PublisherFunc(func(sessionID, event string, payload any) {
		s.hub.Publish(sessionID, event, payload)
	})

	s.registry = session.NewRegistry(session.Config{
		Policy:            settings.Policy(),
		StrictMatchmaking: settings.StrictMatchmaking,
		JoinWarn:          settings.JoinWarn,
	},
		session.WithPublisher(publisher),
		session.WithLoader(s.loader),
		session.WithPlayers(s.directory),
		session.WithGameplay(s.scoreboard),
		session.WithSelector(levels),
	)

	s.hub = websocket.NewHub(
		service.NewClientHandler(s.registry, s.directory),
		websocket.WithRateLimit(settings.MessageRate, settings.MessageBurst),
	)
	s.service = service.NewLobbyService(s.registry, s.loader, s.scoreboard, levels)
	return s, nil
}

// start runs the hub and the tick loop until ctx is done
func (s *stack) start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		runTicker(ctx, s.registry, s.settings.TickInterval)
		s.registry.Close()
	}()
}

type ticker interface {
	Tick()
}

// runTicker drives t at the given interval until ctx is done
func runTicker(ctx context.Context, t ticker, interval time.Duration) {
	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			t.Tick()
		}
	}
}

// newRouter mounts the API at root and the MCP proxy at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()

	// Mount API server at root
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

	return mainRouter
}

// runHTTPServer starts the lobby server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("invalid lobby settings: %w", err)
	}

	log.Printf("Starting %s v%s (mode: server)", AppName, Version)

	s, err := buildStack(cmd.String("config-dir"), settings)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), int(cmd.Int("port")))

	// The /mcp endpoint proxies back into this server's REST API
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newRouter(api.NewServer(s.service, s.hub), mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	s.start(ctx, &wg)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter)
		}()
	}

	select {
	case <-ctx.Done():
		log.Println("Received shutdown signal. Shutting down...")
	case err := <-serverErr:
		stop()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Wait for hub, tick loop and tunnel to finish
	wg.Wait()
	log.Println("Server stopped")
	return nil
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	// Configure ngrok endpoint
	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx,
		tunnel,
		ngrok.WithAuthtoken(authToken),
	)
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	// Serving stops once the tunnel closes
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse a lobby server at --host/--port; if unavailable, it starts
// an internal lobby server bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	// stdout belongs to the MCP protocol
	log.SetOutput(os.Stderr)

	externalURL := fmt.Sprintf("http://%s:%d", cmd.String("host"), int(cmd.Int("port")))
	log.Printf("Checking for external lobby server at %s...", externalURL)

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External lobby server found at %s, using it for MCP", externalURL)
	} else {
		log.Printf("No external lobby server found, starting internal one")

		settings, err := config.LoadSettings()
		if err != nil {
			return fmt.Errorf("invalid lobby settings: %w", err)
		}
		s, err := buildStack(cmd.String("config-dir"), settings)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()
		log.Printf("Starting internal lobby server on %s for MCP stdio", internalAddr)

		ctx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup
		s.start(ctx, &wg)

		httpServer := &http.Server{Handler: api.NewServer(s.service, s.hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer func() {
			httpServer.Close()
			cancel()
			wg.Wait()
		}()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (using %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
