// Package xenon runs the proxy together with its optional services:
// metrics, the admin API, the MQTT event exporter and config auto-reload.
package xenon

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"golang.org/x/sync/errgroup"

	"github.com/xenoncommunity/xenon/pkg/api"
	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/internal/reload"
	"github.com/xenoncommunity/xenon/pkg/metrics"
	"github.com/xenoncommunity/xenon/pkg/modules"
	"github.com/xenoncommunity/xenon/pkg/mqtt"
	"github.com/xenoncommunity/xenon/pkg/proxy"
	"github.com/xenoncommunity/xenon/pkg/store"
	"github.com/xenoncommunity/xenon/pkg/util/errs"
	"github.com/xenoncommunity/xenon/pkg/util/interrupt"
)

// Options are the options to Start.
type Options struct {
	// Config is the initial configuration. Required.
	Config *config.Config
	// ConfigFile is watched and reloaded on change if set.
	ConfigFile string
	// Reload reads the configuration again.
	// Used by the reload command and ConfigFile watching.
	Reload func() (*config.Config, error)
	// Plugins are initialized after the bundled modules.
	Plugins []proxy.Plugin
}

// Start runs the proxy and the enabled services. It blocks until ctx is
// canceled, a termination signal is received or a component failed.
func Start(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if cfg == nil {
		return errs.ErrMissingConfig
	}
	log := logr.FromContextOrDiscard(ctx)

	warns, errList := cfg.Validate()
	for _, w := range warns {
		log.Info("config validation warning", "warn", w.Error())
	}
	if len(errList) != 0 {
		for _, e := range errList {
			log.Info("config validation error", "error", e.Error())
		}
		return fmt.Errorf("config has %d validation error(s)", len(errList))
	}

	ctx, stopSignals := interrupt.TerminationContext(ctx)
	defer stopSignals()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := store.New(ctx, cfg.Reconnect)
	if err != nil {
		return fmt.Errorf("error opening reconnect store: %w", err)
	}
	if st != nil {
		defer func() { _ = st.Close() }()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	mgr := event.New()
	p, err := proxy.New(proxy.Options{
		Config:         cfg,
		Event:          mgr,
		ReconnectStore: st,
		Metrics:        m,
		Plugins:        append(modules.Plugins(), opts.Plugins...),
		Reloader:       opts.Reload,
	})
	if err != nil {
		return fmt.Errorf("error creating proxy: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer cancel()
		return p.Start(ctx)
	})
	if m != nil {
		eg.Go(func() error { return m.Serve(ctx, cfg.Metrics.Bind) })
	}
	for _, svc := range services(p) {
		eg.Go(func() error { return svc.run(ctx, mgr, cfg) })
	}
	if opts.ConfigFile != "" && opts.Reload != nil {
		eg.Go(func() error {
			return reload.Watch(ctx, opts.ConfigFile, func() error {
				next, err := opts.Reload()
				if err != nil {
					return err
				}
				return p.Reload(next)
			})
		})
	}

	if err = eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func services(p *proxy.Proxy) []*service {
	return []*service{
		{
			name:    "api",
			section: func(c *config.Config) any { return c.API },
			enabled: func(c *config.Config) bool { return c.API.Enabled },
			start: func(ctx context.Context, c *config.Config) error {
				return api.New(p, c.API).Start(ctx)
			},
		},
		{
			name:    "mqtt",
			section: func(c *config.Config) any { return c.MQTT },
			enabled: func(c *config.Config) bool { return c.MQTT.Enabled },
			start: func(ctx context.Context, c *config.Config) error {
				return mqtt.New(c.MQTT).Start(ctx, p)
			},
		},
	}
}
