package xenon

import (
	"context"
	"testing"
	"time"

	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/internal/reload"
)

func TestService_RestartsOnSectionChange(t *testing.T) {
	starts := make(chan string, 10)
	stops := make(chan string, 10)
	svc := &service{
		name:    "test",
		section: func(c *config.Config) any { return c.API },
		enabled: func(c *config.Config) bool { return c.API.Enabled },
		start: func(ctx context.Context, c *config.Config) error {
			starts <- c.API.Bind
			<-ctx.Done()
			stops <- c.API.Bind
			return nil
		},
	}

	mgr := event.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	cfg := config.DefaultConfig
	cfg.API.Enabled = true
	cfg.API.Bind = "127.0.0.1:8081"
	go func() { done <- svc.run(ctx, mgr, &cfg) }()
	assert.Equal(t, "127.0.0.1:8081", receive(t, starts))

	// Unrelated change keeps the service running.
	require.Eventually(t, func() bool {
		return mgr.HasSubscriber(&reload.ConfigUpdateEvent[config.Config]{})
	}, time.Second, 5*time.Millisecond)
	other := cfg
	other.Motd = "changed"
	reload.FireConfigUpdate(mgr, &other, &cfg)
	select {
	case s := <-starts:
		t.Fatalf("unexpected restart with %s", s)
	case <-time.After(50 * time.Millisecond):
	}

	next := cfg
	next.API.Bind = "127.0.0.1:8082"
	reload.FireConfigUpdate(mgr, &next, &cfg)
	assert.Equal(t, "127.0.0.1:8081", receive(t, stops))
	assert.Equal(t, "127.0.0.1:8082", receive(t, starts))

	disabled := next
	disabled.API.Enabled = false
	reload.FireConfigUpdate(mgr, &disabled, &next)
	assert.Equal(t, "127.0.0.1:8082", receive(t, stops))

	cancel()
	require.NoError(t, receiveErr(t, done))
}

func TestService_DisabledNeverStarts(t *testing.T) {
	svc := &service{
		name:    "test",
		section: func(c *config.Config) any { return c.MQTT },
		enabled: func(c *config.Config) bool { return c.MQTT.Enabled },
		start: func(context.Context, *config.Config) error {
			t.Error("service must not start")
			return nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := config.DefaultConfig
	require.NoError(t, svc.run(ctx, event.New(), &cfg))
}

func TestStart_MissingConfig(t *testing.T) {
	require.Error(t, Start(context.Background(), Options{}))
}

func TestStart_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Bind = ""
	err := Start(context.Background(), Options{Config: &cfg})
	require.ErrorContains(t, err, "validation error")
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out")
		return ""
	}
}

func receiveErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(time.Second):
		t.Fatal("timed out")
		return nil
	}
}
