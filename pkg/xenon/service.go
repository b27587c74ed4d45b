package xenon

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"sync"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/internal/reload"
)

// service is an optional component that is restarted whenever its
// config section changes on reload.
type service struct {
	name    string
	section func(*config.Config) any
	enabled func(*config.Config) bool
	start   func(ctx context.Context, c *config.Config) error
}

// run keeps the service in sync with the config until ctx is canceled.
// Failures of the service are logged and do not stop the proxy.
func (s *service) run(ctx context.Context, mgr event.Manager, initial *config.Config) error {
	log := logr.FromContextOrDiscard(ctx).WithName(s.name)
	ctx = logr.NewContext(ctx, log)

	var (
		mu      sync.Mutex
		stop    context.CancelFunc
		current []byte
	)
	trigger := func(c *config.Config) {
		hash, err := sectionHash(s.section(c))
		if err != nil {
			log.Error(err, "error hashing config")
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if current != nil && bytes.Equal(hash, current) {
			return
		}
		current = hash

		if stop != nil {
			stop()
			stop = nil
		}
		if !s.enabled(c) {
			return
		}

		var runCtx context.Context
		runCtx, stop = context.WithCancel(ctx)
		go func() {
			if err := s.start(runCtx, c); err != nil {
				log.Error(err, "service failed")
				return
			}
			log.V(1).Info("service stopped")
		}()
	}

	defer reload.Subscribe(mgr, func(e *reload.ConfigUpdateEvent[config.Config]) {
		trigger(e.Config)
	})()

	trigger(initial)

	<-ctx.Done()
	mu.Lock()
	if stop != nil {
		stop()
	}
	mu.Unlock()
	return nil
}

func sectionHash(section any) ([]byte, error) {
	j, err := json.Marshal(section)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(j)
	return h[:], nil
}
