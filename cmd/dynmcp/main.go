// dynmcp - dynamic MCP tools server
// Serves a REST API and an MCP endpoint backed by a shared tool registry;
// tools can be added and removed at runtime without a restart.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/matiasleandrokruk/dynmcp/internal/api"
	"github.com/matiasleandrokruk/dynmcp/internal/domain/inventory"
	"github.com/matiasleandrokruk/dynmcp/internal/domain/registry"
	"github.com/matiasleandrokruk/dynmcp/internal/infra/config"
	"github.com/matiasleandrokruk/dynmcp/internal/infra/eventbus"
	"github.com/matiasleandrokruk/dynmcp/internal/infra/logging"
	"github.com/matiasleandrokruk/dynmcp/internal/infra/sqlite"
	"github.com/matiasleandrokruk/dynmcp/internal/mcpserver"
	"github.com/matiasleandrokruk/dynmcp/internal/server"
	"github.com/matiasleandrokruk/dynmcp/internal/version"
)

const (
	modeHTTP  = "http"
	modeStdio = "stdio"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("dynmcp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")
	mode := fs.String("mode", modeHTTP, "Serve mode: http or stdio")
	host := fs.String("host", "", "Bind address (overrides DYNMCP_HOST)")
	port := fs.Int("port", 0, "Listen port (overrides DYNMCP_PORT)")
	configPath := fs.String("config", "", "Path to a YAML config file")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if *showHelp {
		printHelp(out)
		return 0
	}

	if *mode != modeHTTP && *mode != modeStdio {
		fmt.Fprintf(out, "unknown mode %q (want http or stdio)\n", *mode) //nolint:errcheck
		return 2
	}

	cfg := config.Load()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(cfg, *configPath)
		if err != nil {
			fmt.Fprintln(out, err) //nolint:errcheck
			return 1
		}
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}

	// Logs go to stderr in both modes; in stdio mode stdout carries
	// protocol frames and must stay clean.
	log := logging.NewDefault(cfg.LogLevel)

	if err := serve(*mode, cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		return 1
	}
	return 0
}

func serve(mode string, cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := sqlite.MigrateUp(db); err != nil {
		db.Close()
		return fmt.Errorf("run migrations: %w", err)
	}

	bus := eventbus.New()
	reg := registry.New(bus, cfg.InvokeTimeout)
	items := inventory.NewService(db)

	if err := mcpserver.RegisterStatic(reg, items); err != nil {
		db.Close()
		return fmt.Errorf("register static tools: %w", err)
	}

	bridge := mcpserver.New(reg, log)
	bridge.Start(ctx, bus)
	log.Info().Int("tools", len(reg.List())).Str("mode", mode).Msg("tool registry ready")

	if mode == modeStdio {
		defer db.Close()
		return bridge.ServeStdio(ctx)
	}

	router := api.NewRouter(items, reg, bridge.HTTPHandler())
	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Host
	srvCfg.Port = cfg.Port
	srv := server.NewServer(router, db, srvCfg, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printHelp(out io.Writer) {
	helpText := `dynmcp - dynamic MCP tools server

Usage:
  dynmcp [options]

Options:
  --version        Show version information
  --help           Show this help message
  --mode string    Serve mode: http (REST + /mcp) or stdio (default "http")
  --host string    Bind address (overrides DYNMCP_HOST)
  --port int       Listen port (overrides DYNMCP_PORT)
  --config string  Path to a YAML config file

Examples:
  dynmcp --version
  dynmcp --mode http --port 8000
  dynmcp --mode stdio`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
