package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/roundlink/internal/client"
	"github.com/1ureka/roundlink/internal/config"
	"github.com/1ureka/roundlink/internal/connection"
	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/report"
	"github.com/1ureka/roundlink/internal/util"
)

// frameInterval is how often the client is updated.
const frameInterval = time.Second / 60

type connectOptions struct {
	configPath  string
	endpoint    string
	name        string
	metricsAddr string
	iceServers  []string
	say         []string
	debug       bool
}

func connectCmd() *cobra.Command {
	var opts connectOptions

	cmd := &cobra.Command{
		Use:   "connect [endpoint]",
		Short: "Join a server",
		Long: `Join a server and stay in its lobby until Ctrl+C.

Endpoints:
  ws://host:port/path       direct WebSocket
  wss://host/path           WebSocket over TLS
  rtc+ws://host:port/path   WebRTC, signaled through the WebSocket
  rtc+wss://host/path       WebRTC, signaled over TLS`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.endpoint = args[0]
			}
			return runConnect(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "server endpoint (overrides the config)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "player name (overrides the config)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringSliceVar(&opts.iceServers, "ice", []string{"stun:stun.l.google.com:19302"}, "ICE servers for WebRTC endpoints")
	cmd.Flags().StringArrayVar(&opts.say, "say", nil, "chat line to send once joined (repeatable)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	return cmd
}

func runConnect(parent context.Context, opts connectOptions) error {
	// Cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	if opts.debug {
		util.EnableDebug()
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.endpoint != "" {
		cfg.Endpoint = opts.endpoint
	}
	if opts.name != "" {
		cfg.PlayerName = opts.name
	}
	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ep, err := connection.ParseEndpoint(cfg.Endpoint)
	if err != nil {
		return err
	}

	pterm.Info.Println(fmt.Sprintf("roundlink v%s", version))
	pterm.Println()

	if cfg.MetricsAddr != "" {
		serveMetrics(ctx, cfg.MetricsAddr)
	}
	util.StartStatsReporter(ctx)

	world := newHeadlessWorld(cfg.DownloadDir)
	console := newConsole()
	c := client.New(client.Options{
		Config:      cfg,
		Clock:       clockwork.NewRealClock(),
		Conn:        connection.NewManager(connection.NewDialer(opts.iceServers)),
		World:       world,
		Prompter:    console,
		Screen:      console,
		Reports:     report.NewWriter(cfg.ReportDir),
		ContentHash: world.ContentHash(),
	})
	c.Join(ctx, ep)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	said := false
	for {
		select {
		case <-ctx.Done():
			if c.Approved() {
				c.Leave()
			}
			util.LogInfo("left %s", ep)
			return nil

		case <-console.quit:
			return errors.New("session ended")

		case <-ticker.C:
			c.Update()
			if !said && c.Approved() {
				said = true
				for _, line := range opts.say {
					if err := c.SendChat(protocol.ChatDefault, line); err != nil {
						util.LogWarning("chat not sent: %v", err)
					}
				}
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		util.LogInfo("serving metrics on http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.LogError("metrics server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
}
