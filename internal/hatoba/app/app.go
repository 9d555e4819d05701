// Package app wires the Hatoba gateway together: configuration, sinks, the
// webhook handler and the HTTP server.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bdobrica/Hatoba/common/redact"
	"github.com/bdobrica/Hatoba/common/version"
	"github.com/bdobrica/Hatoba/internal/hatoba/config"
	"github.com/bdobrica/Hatoba/internal/hatoba/event"
	"github.com/bdobrica/Hatoba/internal/hatoba/metrics"
	"github.com/bdobrica/Hatoba/internal/hatoba/observability"
	"github.com/bdobrica/Hatoba/internal/hatoba/sink"
	"github.com/bdobrica/Hatoba/internal/hatoba/webhook"
)

// Options are the process-level settings that are not part of the config
// document.
type Options struct {
	// ConfigFile is the YAML document to load. Empty uses defaults plus
	// environment.
	ConfigFile string
	// Stdout receives records when the stdout sink is enabled. Defaults to
	// os.Stdout.
	Stdout io.Writer
}

// App is the running gateway.
type App struct {
	loader  *config.Loader
	handler *webhook.Handler
	server  *Server
}

// New loads the configuration and builds every component. Nothing listens
// until Run.
func New(opts Options) (*App, error) {
	loader := config.NewLoader()
	if err := loader.LoadFile(opts.ConfigFile); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := loader.Config()
	observability.Setup(cfg.Log.Level, cfg.Log.Format)
	slog.Info("hatoba starting", "version", version.Info(), "config", redact.Map(cfg.Summary()))

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	sinks, err := buildSinks(cfg, stdout)
	if err != nil {
		return nil, err
	}

	a := &App{loader: loader}
	a.handler = webhook.New(handlerSettings(cfg), sinks)
	a.server = NewServer(cfg.Server.Addr, a)
	a.handler.RegisterRoutes(a.server)
	return a, nil
}

// Handler returns the server's HTTP handler.
func (a *App) Handler() *Server { return a.server }

// Stats implements statusProvider.
func (a *App) Stats() webhook.Stats { return a.handler.Stats() }

// ConfigHash implements statusProvider.
func (a *App) ConfigHash() string { return a.loader.Hash() }

// Run serves until SIGINT or SIGTERM. SIGHUP reloads the configuration.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.server.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			a.Reload()
			continue
		}
		slog.Info("received shutdown signal", "signal", sig.String())
		break
	}
	a.server.Stop()
	slog.Info("hatoba stopped")
	return nil
}

// Reload re-reads the config file and applies the pipeline, secret and rate
// limit settings. A rejected document keeps the live settings. Sink, listen
// address and log settings take effect on restart only.
func (a *App) Reload() {
	if err := a.loader.Reload(); err != nil {
		metrics.ConfigReloads.WithLabelValues("rejected").Inc()
		slog.Error("config reload rejected, keeping live config", "err", err)
		return
	}
	a.handler.Update(handlerSettings(a.loader.Config()))
	metrics.ConfigReloads.WithLabelValues("applied").Inc()
	slog.Info("config reloaded", "hash", a.loader.Hash())
}

func handlerSettings(cfg *config.Config) webhook.Settings {
	return webhook.Settings{
		Source:    cfg.Source,
		Pipeline:  event.New(cfg.PipelineOptions()),
		Secret:    cfg.Server.Secret,
		RateLimit: cfg.Server.RateLimit,
	}
}

// buildSinks creates the sinks enabled in cfg.
func buildSinks(cfg *config.Config, stdout io.Writer) (sink.Sink, error) {
	var sinks sink.Multi
	if cfg.Sinks.Stdout {
		sinks = append(sinks, sink.NewWriterSink(stdout))
	}
	if f := cfg.Sinks.Forward; f.Enabled() {
		sinks = append(sinks, sink.NewForwardSink(f.URL, f.Token, f.Timeout))
		slog.Info("forward sink enabled", "url", redact.URL(f.URL))
	}
	if m := cfg.Sinks.Matrix; m.Enabled() {
		client, err := sink.NewMatrixClient(m.Homeserver, m.UserID, m.AccessToken)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink.NewMatrixSink(client, m.RoomID))
		slog.Info("matrix sink enabled", "room", m.RoomID)
	}
	if len(sinks) == 0 {
		return sink.Discard{}, nil
	}
	return sinks, nil
}
