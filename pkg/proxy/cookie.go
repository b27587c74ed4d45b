package proxy

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/gammazero/deque"
	"go.minekube.com/common/minecraft/key"

	"github.com/xenoncommunity/xenon/pkg/internal/future"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/cookie"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

// ErrCookiesUnsupported is returned for clients older than 1.20.5.
var ErrCookiesUnsupported = errors.New("cookies require 1.20.5 or newer")

// cookieQueue holds cookie requests of the proxy waiting for their
// response. Clients answer requests in order.
type cookieQueue struct {
	mu      sync.Mutex
	pending deque.Deque[*cookieRequest]
}

type cookieRequest struct {
	key key.Key
	fut *future.Future[[]byte]
}

func (q *cookieQueue) add(k key.Key) *cookieRequest {
	r := &cookieRequest{key: k, fut: future.New[[]byte]()}
	q.mu.Lock()
	q.pending.PushBack(r)
	q.mu.Unlock()
	return r
}

// cancel removes r wherever it is queued and completes it without payload.
func (q *cookieQueue) cancel(r *cookieRequest) {
	q.mu.Lock()
	if i := q.pending.Index(func(e *cookieRequest) bool { return e == r }); i != -1 {
		q.pending.Remove(i)
	}
	q.mu.Unlock()
	r.fut.Complete(nil)
}

// onResponse completes the oldest request if it is for k and reports
// whether the response was claimed.
func (q *cookieQueue) onResponse(k key.Key, payload []byte) bool {
	q.mu.Lock()
	if q.pending.Len() == 0 || q.pending.Front().key.String() != k.String() {
		q.mu.Unlock()
		return false
	}
	r := q.pending.PopFront()
	q.mu.Unlock()
	r.fut.Complete(payload)
	return true
}

// cancelAll completes all pending requests without payload.
func (q *cookieQueue) cancelAll() {
	q.mu.Lock()
	var list []*cookieRequest
	for q.pending.Len() != 0 {
		list = append(list, q.pending.PopFront())
	}
	q.mu.Unlock()
	for _, r := range list {
		r.fut.Complete(nil)
	}
}

func (q *cookieQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// parseCookieKey parses name, the minecraft namespace is assumed if missing.
func parseCookieKey(name string) (key.Key, error) {
	if !strings.Contains(name, ":") {
		name = key.MinecraftNamespace + ":" + name
	}
	k, err := key.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("invalid cookie key %q: %w", name, err)
	}
	return k, nil
}

// RetrieveCookie asks the client for the cookie stored under name.
// The future completes with nil if the client has no such cookie or disconnects.
func (s *Session) RetrieveCookie(name string) (*future.Future[[]byte], error) {
	if s.Protocol().Lower(version.Minecraft_1_20_5) {
		return nil, ErrCookiesUnsupported
	}
	k, err := parseCookieKey(name)
	if err != nil {
		return nil, err
	}
	r := s.cookies.add(k)
	err = s.exec().Post(func() {
		if err := s.writePacket(&cookie.Request{Key: k}); err != nil {
			s.cookies.cancel(r)
		}
	})
	if err != nil {
		s.cookies.cancel(r)
	}
	return r.fut, nil
}

// StoreCookie stores a cookie of at most 5 KiB on the client.
func (s *Session) StoreCookie(name string, payload []byte) error {
	if s.Protocol().Lower(version.Minecraft_1_20_5) {
		return ErrCookiesUnsupported
	}
	if len(payload) > cookie.MaxPayloadSize {
		return fmt.Errorf("cookie payload of %d bytes exceeds %d bytes", len(payload), cookie.MaxPayloadSize)
	}
	k, err := parseCookieKey(name)
	if err != nil {
		return err
	}
	return s.exec().Post(func() {
		_ = s.writePacket(&cookie.Store{Key: k, Payload: payload})
	})
}

// Transfer asks the client to connect to another proxy or server.
func (s *Session) Transfer(host string, port int) error {
	if s.Protocol().Lower(version.Minecraft_1_20_5) {
		return ErrCookiesUnsupported
	}
	if host == "" || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid transfer target %s", net.JoinHostPort(host, strconv.Itoa(port)))
	}
	return s.exec().Post(func() {
		s.log.Info("transferring player", "target", net.JoinHostPort(host, strconv.Itoa(port)))
		_ = s.writePacket(&packet.Transfer{Host: host, Port: port})
	})
}
