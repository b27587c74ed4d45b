// Package forge handles the legacy Forge (FML) handshake of 1.8 to 1.12.2 clients.
package forge

import (
	"bytes"
	"errors"
	"strings"
	"sync"

	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/util/profile"
)

const (
	// HandshakeHostnameToken is appended to the hostname of the handshake
	// by clients connecting to a Forge server.
	HandshakeHostnameToken = "\x00FML\x00"
	// LegacyHandshakeChannel is the channel of the FML handshake.
	LegacyHandshakeChannel = "FML|HS"
	// LegacyChannel carries FML messages besides the handshake.
	LegacyChannel = "FML"

	ResetDataDiscriminator   = 0xFE
	AckDiscriminator         = 0xFF
	ServerHelloDiscriminator = 0
	ClientHelloDiscriminator = 1
	ModListDiscriminator     = 2
	RegistryDiscriminator    = 3

	// Profile properties forwarded to backends with legacy forwarding.
	LoginProfileProperty = "forgeClient"
	ExtraDataProperty    = "extraData"
)

// Mod is a mod announced by a client.
type Mod struct {
	ID      string `json:"modid"`
	Version string `json:"version"`
}

// ResetPacket returns a new reset packet, sent to a client that finished a
// handshake before it is switched to another Forge server.
func ResetPacket() *plugin.Message {
	return &plugin.Message{Channel: LegacyHandshakeChannel, Data: []byte{ResetDataDiscriminator, 0}}
}

// IsHandshakeMessage reports whether m belongs to the FML handshake.
func IsHandshakeMessage(m *plugin.Message) bool {
	return m != nil && strings.EqualFold(m.Channel, LegacyHandshakeChannel)
}

// Discriminator returns the first byte of a handshake message.
func Discriminator(m *plugin.Message) (byte, bool) {
	if !IsHandshakeMessage(m) || len(m.Data) == 0 {
		return 0, false
	}
	return m.Data[0], true
}

// ReadMods parses the mod list of a ModList handshake message.
// Returns nil without error for other handshake messages.
func ReadMods(m *plugin.Message) ([]Mod, error) {
	if !IsHandshakeMessage(m) {
		return nil, errors.New("message is not a FML handshake message")
	}
	buf := bytes.NewReader(m.Data)
	d, err := buf.ReadByte()
	if err != nil || d != ModListDiscriminator {
		return nil, nil
	}
	count, err := util.ReadVarInt(buf)
	if err != nil {
		return nil, err
	}
	if count < 0 || count > buf.Len() {
		return nil, errors.New("invalid mod count")
	}
	mods := make([]Mod, 0, count)
	for i := 0; i < count; i++ {
		id, err := util.ReadString(buf)
		if err != nil {
			return nil, err
		}
		ver, err := util.ReadString(buf)
		if err != nil {
			return nil, err
		}
		mods = append(mods, Mod{ID: id, Version: ver})
	}
	return mods, nil
}

// ForwardingProperties returns the profile properties that tell a legacy
// forwarding backend about the Forge client and its extra handshake data.
func ForwardingProperties(extraData string) []profile.Property {
	return []profile.Property{
		{Name: LoginProfileProperty, Value: "true"},
		// NUL would split the forwarded host prematurely
		{Name: ExtraDataProperty, Value: strings.ReplaceAll(extraData, "\x00", "\x01")},
	}
}

// ClientHandler tracks the handshake state of one client.
type ClientHandler struct {
	mu              sync.Mutex
	tokenInHost     bool
	mods            []Mod
	handshakeActive bool
	handshakeDone   bool
}

// NewClientHandler returns a handler for a client whose handshake host
// carried extraData.
func NewClientHandler(extraData string) *ClientHandler {
	return &ClientHandler{tokenInHost: strings.Contains(extraData, HandshakeHostnameToken)}
}

// TokenInHandshake reports whether the client announced FML in the handshake host.
func (h *ClientHandler) TokenInHandshake() bool { return h.tokenInHost }

// HandleClient consumes a handshake message from the client and passes it
// to the backend through send while the handshake is running. Messages
// after the handshake completed, and invalid ones, are dropped.
func (h *ClientHandler) HandleClient(m *plugin.Message, send func(*plugin.Message)) error {
	d, ok := Discriminator(m)
	if !ok {
		return errors.New("empty FML handshake message")
	}
	h.mu.Lock()
	if h.handshakeDone && !h.handshakeActive {
		h.mu.Unlock()
		return nil
	}
	switch d {
	case ClientHelloDiscriminator:
		h.handshakeActive = true
	case ModListDiscriminator:
		mods, err := ReadMods(m)
		if err != nil {
			h.mu.Unlock()
			return err
		}
		h.mods = mods
	case AckDiscriminator:
		// the client acks phases WAITINGSERVERDATA (2) to COMPLETE (5)
		if len(m.Data) > 1 && m.Data[1] >= 5 {
			h.handshakeActive = false
			h.handshakeDone = true
		}
	}
	h.mu.Unlock()
	if send != nil {
		send(m)
	}
	return nil
}

// Modded reports whether the client sent a mod list.
func (h *ClientHandler) Modded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mods != nil
}

// Mods returns the mods announced by the client.
func (h *ClientHandler) Mods() []Mod {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Mod(nil), h.mods...)
}

// ResetNeeded reports whether the client must be sent a ResetPacket before
// the next Forge server handshake and marks the reset as done.
func (h *ClientHandler) ResetNeeded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.handshakeDone && !h.handshakeActive {
		return false
	}
	h.handshakeDone = false
	h.handshakeActive = false
	return true
}
