// TCP Reflector — CLI entry point.
//
// The relay accepts clients on one TCP port; every framed packet a client
// sends is rebroadcast to all other connected clients. Browser peers can
// join the same fan-out through an optional WebSocket listener.
//
// Configuration comes from an optional TOML file (-config) with CLI flags
// (-host, -port, -verbose, -ws, -queue) taking precedence.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	"github.com/1ureka/tcpreflector/internal/config"
	"github.com/1ureka/tcpreflector/internal/relay"
	"github.com/1ureka/tcpreflector/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// CLI flags.
	configPath := flag.String("config", "", "Path to a TOML config file")
	host := flag.String("host", "", "IP address or hostname to serve on (default: all interfaces)")
	port := flag.Int("port", config.DefaultPort, "TCP port to serve on")
	verbose := flag.Bool("verbose", false, "Print verbose messages")
	wsAddr := flag.String("ws", "", "Also accept WebSocket peers on this address, e.g. :9335")
	queue := flag.Int("queue", config.DefaultQueueDepth, "Per-session transmit queue depth")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags given explicitly override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = *host
		case "port":
			cfg.Port = *port
		case "verbose":
			cfg.Verbose = *verbose
		case "ws":
			cfg.WebSocketAddr = *wsAddr
		case "queue":
			cfg.QueueDepth = *queue
		}
	})

	if err := cfg.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	if cfg.Verbose {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("TCP Reflector — v%s", version))
	pterm.Println()

	if err := run(ctx, cfg); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	util.LogInfo("relay stopped")
}

// run serves until ctx is cancelled or a listener fails.
func run(ctx context.Context, cfg config.Config) error {
	srv := relay.NewServer(relay.Options{
		QueueDepth: cfg.QueueDepth,
		PopTimeout: cfg.PopTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Addr())
	})

	if cfg.WebSocketAddr != "" {
		g.Go(func() error {
			return srv.ListenAndServeWebSocket(gctx, cfg.WebSocketAddr)
		})
	}

	if cfg.StatsInterval > 0 {
		g.Go(func() error {
			util.RunStatsReporter(gctx, cfg.StatsInterval)
			return nil
		})
	}

	return g.Wait()
}
