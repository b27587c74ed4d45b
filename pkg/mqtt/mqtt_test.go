package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenoncommunity/xenon/pkg/config"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type recorder struct {
	mu   sync.Mutex
	msgs []published
}

func (r *recorder) Publish(topic string, qos byte, _ bool, payload any) paho.Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return doneToken{}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "xenon/login", Topic("xenon", EventLogin))
	assert.Equal(t, "net/xenon/switch", Topic("net/xenon/", EventSwitch))
	assert.Equal(t, "disconnect", Topic("", EventDisconnect))
}

func TestExporter_Send(t *testing.T) {
	rec := &recorder{}
	e := &Exporter{
		cfg: config.MQTT{Topic: "xenon"},
		pub: rec,
		log: logr.Discard(),
		now: func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	e.send(EventSwitch, Message{
		Event:    EventSwitch,
		Player:   "Steve",
		ID:       "8667ba71-b85a-4004-af54-457a9734eed7",
		Server:   "games",
		Previous: "lobby",
	})

	require.Len(t, rec.msgs, 1)
	msg := rec.msgs[0]
	assert.Equal(t, "xenon/switch", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var got Message
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "Steve", got.Player)
	assert.Equal(t, "games", got.Server)
	assert.Equal(t, "lobby", got.Previous)
}

func TestMessage_OmitsEmptyServers(t *testing.T) {
	data, err := json.Marshal(Message{Event: EventLogin, Player: "Alex", ID: "x", Timestamp: "t"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"login","player":"Alex","id":"x","timestamp":"t"}`, string(data))
}
