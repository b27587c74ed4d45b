// Package mqtt publishes player events of the proxy to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/proxy"
)

// Event names, published under "<topic>/<event>".
const (
	EventLogin      = "login"
	EventDisconnect = "disconnect"
	EventSwitch     = "switch"
)

// Message is the JSON payload of a published event.
type Message struct {
	Event     string `json:"event"`
	Player    string `json:"player"`
	ID        string `json:"id"`
	Server    string `json:"server,omitempty"`
	Previous  string `json:"previous,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Publisher is the part of the paho client used to publish.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
}

// Exporter publishes proxy events to MQTT.
type Exporter struct {
	cfg    config.MQTT
	client paho.Client
	pub    Publisher
	log    logr.Logger
	now    func() time.Time
}

// New returns an exporter for cfg. Start connects it.
func New(cfg config.MQTT) *Exporter {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetKeepAlive(60 * time.Second)
	e := &Exporter{cfg: cfg, log: logr.Discard(), now: time.Now}
	opts.SetOnConnectHandler(func(paho.Client) { e.log.Info("connected to mqtt broker", "broker", cfg.Broker) })
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		e.log.Info("lost connection to mqtt broker", "error", err)
	})
	e.client = paho.NewClient(opts)
	e.pub = e.client
	return e
}

// Start connects to the broker, subscribes to the events of p and blocks
// until ctx is canceled.
func (e *Exporter) Start(ctx context.Context, p *proxy.Proxy) error {
	e.log = logr.FromContextOrDiscard(ctx).WithName("mqtt")
	token := e.client.Connect()
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		return fmt.Errorf("error connecting to mqtt broker %s: %w", e.cfg.Broker, tokenErr(token))
	}
	unsubscribe := e.Subscribe(p.Event())
	defer unsubscribe()

	<-ctx.Done()
	e.client.Disconnect(1000)
	return nil
}

func tokenErr(t paho.Token) error {
	if err := t.Error(); err != nil {
		return err
	}
	return fmt.Errorf("timed out")
}

// Subscribe publishes login, disconnect and server switch events fired on
// mgr. The returned func unsubscribes.
func (e *Exporter) Subscribe(mgr event.Manager) func() {
	unsubs := []func(){
		event.Subscribe(mgr, -1000, func(ev *proxy.PostLoginEvent) {
			e.publish(EventLogin, ev.Player(), nil, nil)
		}),
		event.Subscribe(mgr, -1000, func(ev *proxy.PlayerDisconnectEvent) {
			e.publish(EventDisconnect, ev.Player(), ev.Server(), nil)
		}),
		event.Subscribe(mgr, -1000, func(ev *proxy.ServerConnectedEvent) {
			e.publish(EventSwitch, ev.Player(), ev.Server(), ev.Previous())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (e *Exporter) publish(name string, pl *proxy.Session, server, previous *proxy.RegisteredServer) {
	msg := Message{
		Event:     name,
		Player:    pl.Username(),
		ID:        pl.ID().String(),
		Timestamp: e.now().UTC().Format(time.RFC3339),
	}
	if server != nil {
		msg.Server = server.Name()
	}
	if previous != nil {
		msg.Previous = previous.Name()
	}
	e.send(name, msg)
}

func (e *Exporter) send(name string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		e.log.Error(err, "error encoding mqtt message", "event", name)
		return
	}
	topic := Topic(e.cfg.Topic, name)
	token := e.pub.Publish(topic, 1, false, data)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			e.log.Info("failed publishing mqtt message", "topic", topic, "error", token.Error())
		}
	}()
}

// Topic returns the topic of event below base.
func Topic(base, event string) string {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return event
	}
	return base + "/" + event
}
