package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/triad-ai/triad/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the triad HTTP API.

Turns are answered on POST /api/v1/turns, sessions are browsed under
/api/v1/sessions and turn progress streams from /api/v1/sse/events.

Examples:
  # Start with defaults (127.0.0.1:8080)
  triad serve

  # Start on custom host and port
  triad serve --host 0.0.0.0 --port 3000

  # Disable CORS (for production behind a reverse proxy)
  triad serve --no-cors`,
	RunE: runServe,
}

var (
	serveHost   string
	servePort   int
	serveNoCORS bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"host address to bind to (default: server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"port to listen on (default: server.port)")
	serveCmd.Flags().BoolVar(&serveNoCORS, "no-cors", false,
		"disable CORS headers")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(runContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			appLogger.Warn("closing resources failed", "error", cerr)
		}
	}()

	cfg := serverConfig()
	opts := []web.ServerOption{
		web.WithEventBus(a.bus),
		web.WithLogger(appLogger),
	}
	if a.sessions != nil {
		opts = append(opts, web.WithSessionStore(a.sessions))
	}
	srv := web.New(cfg, a.orchestrator, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	appLogger.Info("serving", "addr", srv.Addr(), "cors", cfg.EnableCORS)
	return g.Wait()
}

// serverConfig merges configuration with command flags.
func serverConfig() web.Config {
	cfg := web.DefaultConfig()
	if appConfig != nil {
		if appConfig.Server.Host != "" {
			cfg.Host = appConfig.Server.Host
		}
		if appConfig.Server.Port != 0 {
			cfg.Port = appConfig.Server.Port
		}
		if len(appConfig.Server.CORSOrigins) > 0 {
			cfg.CORSOrigins = appConfig.Server.CORSOrigins
		}
	}
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	cfg.EnableCORS = !serveNoCORS
	return cfg
}
