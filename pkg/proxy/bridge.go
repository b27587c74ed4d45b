package proxy

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/go-logr/logr"

	"github.com/xenoncommunity/xenon/pkg/command"
	"github.com/xenoncommunity/xenon/pkg/netmc"
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/chat"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/config"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/cookie"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/proxy/forge"
	"github.com/xenoncommunity/xenon/pkg/proxy/message"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
	"github.com/xenoncommunity/xenon/pkg/util/validation"
)

// Interception is the verdict of the proxy on a client packet.
type Interception uint8

const (
	Forward          Interception = iota // relay the packet to the backend
	Suppress                             // drop the packet
	SuppressAndClose                     // drop the packet, the client is disconnected
)

// maxPluginMessageSize is the largest plugin message a vanilla backend accepts.
const maxPluginMessageSize = 32767

// clientPlaySessionHandler bridges the client connection of a player to
// its backend.
type clientPlaySessionHandler struct {
	s *Session

	nopSessionHandler
}

func newClientPlaySessionHandler(s *Session) *clientPlaySessionHandler {
	return &clientPlaySessionHandler{s: s}
}

func (h *clientPlaySessionHandler) PlayerLog() logr.Logger { return h.s.log }

func (h *clientPlaySessionHandler) Disconnected() { h.s.teardown() }

func (h *clientPlaySessionHandler) HandlePacket(pc *proto.PacketContext) {
	s := h.s
	if s.Closed() {
		return
	}
	switch h.intercept(pc) {
	case Forward:
		s.forwardToBackend(pc)
	case Suppress:
		if pc.KnownPacket() {
			s.proxy.metrics.PacketSuppressed(packetKind(pc.Packet))
		}
	case SuppressAndClose:
		s.proxy.metrics.PacketSuppressed(packetKind(pc.Packet))
		if !netmc.Closed(s.conn) {
			_ = s.conn.Close()
		}
	}
}

func packetKind(p proto.Packet) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", p), "*")
}

func (h *clientPlaySessionHandler) intercept(pc *proto.PacketContext) Interception {
	if !pc.KnownPacket() {
		return Forward
	}
	s := h.s
	switch p := pc.Packet.(type) {
	case *packet.KeepAlive:
		return s.handleKeepAlive(p, time.Now())
	case *chat.LegacyChat:
		if strings.HasPrefix(p.Message, "/") {
			return s.handleCommand(pc, p.Message[1:], false)
		}
		return s.handleChat(pc, p.Message)
	case *chat.KeyedPlayerChat:
		return s.handleChat(pc, p.Message)
	case *chat.SessionPlayerChat:
		return s.handleChat(pc, p.Message)
	case *chat.KeyedPlayerCommand:
		return s.handleCommand(pc, p.Command, !p.Unsigned())
	case *chat.SessionPlayerCommand:
		return s.handleCommand(pc, p.Command, p.Signed())
	case *chat.UnsignedPlayerCommand:
		return s.handleCommand(pc, p.Command, false)
	case *packet.TabCompleteRequest:
		return s.handleTabComplete(p)
	case *plugin.Message:
		return s.handleClientPluginMessage(p)
	case *cookie.Response:
		return s.handleCookieResponse(p)
	case *packet.ClientSettings:
		s.updateSettings(p)
		return Forward
	case *packet.LoginAcknowledged:
		s.conn.SetState(state.Config)
		s.completeTransition()
		return Suppress
	case *config.AcknowledgeConfiguration:
		return s.handleAcknowledgeConfiguration()
	case *config.FinishedUpdate:
		return s.handleClientFinished()
	}
	return Forward
}

// activeLink is the backend the client currently exchanges packets with.
func (s *Session) activeLink() *backendLink {
	if t := s.transition; t != nil && t.configuring {
		return t
	}
	return s.backend
}

// forwardToBackend relays a raw client packet. Packets decoded in another
// state than the backend encodes are dropped.
func (s *Session) forwardToBackend(pc *proto.PacketContext) {
	l := s.activeLink()
	if l == nil || !l.active() {
		return
	}
	if l.conn.EncodeState() != s.conn.State() {
		return
	}
	payload := pc.Payload
	if s.rewrite != nil && s.conn.State() == state.Play {
		payload = s.rewrite.RewriteServerBound(payload, s.clientEntityID, s.serverEntityID)
	}
	_ = l.conn.Write(payload)
}

// handleKeepAlive measures the ping from a keep-alive answer matching the
// oldest pending keep-alive of the backend. The backend got its answer
// from the proxy, so keep-alives of the client are never relayed.
func (s *Session) handleKeepAlive(p *packet.KeepAlive, now time.Time) Interception {
	l := s.activeLink()
	if l == nil {
		return Suppress
	}
	if d, ok := l.answerKeepAlive(p.RandomID, now); ok {
		s.ping.Store(d)
		s.proxy.metrics.Ping(d)
	}
	return Suppress
}

// chatViolation returns the message key a chat message violates, empty if valid.
func chatViolation(msg string) (message.Key, string) {
	for _, r := range msg {
		if !validation.ChatAllowedCharacter(r) {
			return message.IllegalChatCharacters, fmt.Sprintf("%U", r)
		}
	}
	if strings.IndexFunc(msg, func(r rune) bool { return !unicode.IsSpace(r) }) == -1 {
		return message.EmptyChat, ""
	}
	return "", ""
}

// validateChat disconnects the player for an invalid chat message.
func (s *Session) validateChat(msg string) bool {
	key, arg := chatViolation(msg)
	if key == "" {
		return true
	}
	if key == message.IllegalChatCharacters {
		s.Disconnect(s.proxy.messages.Component(s.Locale(), key, arg))
	} else {
		s.Disconnect(s.proxy.messages.Component(s.Locale(), key))
	}
	return false
}

func (s *Session) handleChat(pc *proto.PacketContext, msg string) Interception {
	if !s.validateChat(msg) {
		return SuppressAndClose
	}
	e := &ChatEvent{player: s, message: msg}
	s.proxy.event.Fire(e)
	if e.Cancelled() || s.Closed() {
		return Suppress
	}
	if e.Message() == msg {
		return Forward
	}
	if l := s.activeLink(); l != nil {
		if pkt := rewriteChat(pc.Packet, e.Message()); pkt != nil {
			_ = l.write(pkt)
		} else {
			s.log.V(1).Info("signed chat message can not be changed", "message", msg)
			return Forward
		}
	}
	return Suppress
}

// handleCommand runs proxy commands and passes the others to the backend.
// cmdline is without the leading slash.
func (s *Session) handleCommand(pc *proto.PacketContext, cmdline string, signed bool) Interception {
	if !s.validateChat(cmdline) {
		return SuppressAndClose
	}
	e := &ChatEvent{player: s, message: "/" + cmdline, command: true}
	s.proxy.event.Fire(e)
	if e.Cancelled() || s.Closed() {
		return Suppress
	}
	next := strings.TrimPrefix(e.Message(), "/")
	if s.proxy.config().LogCommands {
		s.log.Info("player executed command", "command", next)
	}

	name, _, _ := strings.Cut(next, " ")
	if s.proxy.command.HasFor(s.Context(), s, name) {
		err := s.proxy.command.Do(s.Context(), s, next)
		if !errors.Is(err, command.ErrForward) {
			if err != nil {
				s.log.V(1).Info("error executing command", "command", next, "error", err)
				_ = s.SendMessage(componentutil.MustLegacy("&c" + err.Error()))
			}
			s.acknowledgeSigned(pc, signed)
			return Suppress
		}
	}
	if next == cmdline {
		return Forward
	}
	if l := s.activeLink(); l != nil {
		if pkt := rewriteChat(pc.Packet, next); pkt != nil {
			_ = l.write(pkt)
			return Suppress
		}
	}
	return Forward
}

// acknowledgeSigned keeps the chat session of the backend in sync when the
// proxy consumed a signed command of a 1.19.3+ client.
func (s *Session) acknowledgeSigned(pc *proto.PacketContext, signed bool) {
	p, ok := pc.Packet.(*chat.SessionPlayerCommand)
	if !ok || !signed || s.Protocol().Lower(version.Minecraft_1_19_3) {
		return
	}
	if l := s.activeLink(); l != nil {
		_ = l.write(&chat.ChatAcknowledgement{Offset: p.LastSeen.Offset})
	}
}

// rewriteChat returns pkt with msg as content, nil if pkt is signed.
func rewriteChat(pkt proto.Packet, msg string) proto.Packet {
	switch p := pkt.(type) {
	case *chat.LegacyChat:
		return &chat.LegacyChat{Message: msg, Type: p.Type, Sender: p.Sender}
	case *chat.KeyedPlayerChat:
		if !p.Unsigned() {
			return nil
		}
		c := *p
		c.Message = msg
		return &c
	case *chat.SessionPlayerChat:
		if p.Signed() {
			return nil
		}
		c := *p
		c.Message = msg
		return &c
	case *chat.KeyedPlayerCommand:
		if !p.Unsigned() {
			return nil
		}
		c := *p
		c.Command = strings.TrimPrefix(msg, "/")
		return &c
	case *chat.SessionPlayerCommand:
		if p.Signed() {
			return nil
		}
		c := *p
		c.Command = strings.TrimPrefix(msg, "/")
		return &c
	case *chat.UnsignedPlayerCommand:
		return &chat.UnsignedPlayerCommand{Command: strings.TrimPrefix(msg, "/")}
	}
	return nil
}

// handleTabComplete answers completions of proxy commands and event
// subscribers, other requests go to the backend.
func (s *Session) handleTabComplete(p *packet.TabCompleteRequest) Interception {
	if s.tabLimiter != nil && !s.tabLimiter.Allow() {
		return Suppress
	}
	cursor := p.Command
	var suggestions []string
	isCommand := strings.HasPrefix(cursor, "/")
	proxyCommand := false
	if isCommand {
		name, _, _ := strings.Cut(cursor[1:], " ")
		if s.proxy.command.HasFor(s.Context(), s, name) {
			proxyCommand = true
			suggestions, _ = s.proxy.command.OfferSuggestions(s.Context(), s, cursor[1:])
		}
	}
	e := &TabCompleteEvent{player: s, cursor: cursor, suggestions: suggestions}
	s.proxy.event.Fire(e)
	if e.Cancelled() {
		return Suppress
	}
	if len(e.Suggestions()) != 0 {
		_ = s.writePacket(tabCompleteResponse(s.Protocol(), p, e.Suggestions()))
		return Suppress
	}
	if proxyCommand {
		return Suppress
	}
	return Forward
}

func tabCompleteResponse(protocol proto.Protocol, req *packet.TabCompleteRequest, suggestions []string) *packet.TabCompleteResponse {
	res := &packet.TabCompleteResponse{TransactionID: req.TransactionID}
	if protocol.GreaterEqual(version.Minecraft_1_13) {
		// Suggestions replace the last word of the input.
		// The range counts UTF-16 units like the client does.
		i := strings.LastIndex(req.Command, " ") + 1
		res.Start = utf16Len(req.Command[:i])
		res.Length = utf16Len(req.Command[i:])
	}
	for _, text := range suggestions {
		res.Offers = append(res.Offers, packet.TabCompleteOffer{Text: text})
	}
	return res
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// handleClientPluginMessage enforces the channel limits and consumes
// messages addressed to the proxy.
func (s *Session) handleClientPluginMessage(p *plugin.Message) Interception {
	cfg := s.proxy.config()
	if plugin.IsBungeeCord(p) {
		return Suppress
	}
	if cfg.ForgeSupport {
		if res, handled := s.handleForgeMessage(p); handled {
			return res
		}
	}
	switch {
	case plugin.IsRegister(p):
		channels := plugin.Channels(p)
		for _, ch := range channels {
			if len(ch) > cfg.PluginChannelNameLimit {
				s.Disconnect(s.proxy.messages.Component(s.Locale(), message.ChannelNameTooLong))
				return SuppressAndClose
			}
		}
		s.channels.Insert(channels...)
		if s.channels.Len() > cfg.PluginChannelLimit {
			s.Disconnect(s.proxy.messages.Component(s.Locale(), message.TooManyChannels))
			return SuppressAndClose
		}
		return Forward
	case plugin.IsUnregister(p):
		s.channels.Delete(plugin.Channels(p)...)
		return Forward
	case plugin.McBrand(p):
		s.setClientBrand(plugin.ReadBrand(p.Data))
		return Forward
	}
	e := &PluginMessageEvent{
		source:  FromPlayer,
		player:  s,
		server:  s.CurrentServer(),
		channel: p.Channel,
		data:    p.Data,
	}
	s.proxy.event.Fire(e)
	if e.Cancelled() {
		return Suppress
	}
	return Forward
}

// handleForgeMessage intercepts client plugin messages when Forge support
// is enabled. handled is false for messages taking the regular path.
func (s *Session) handleForgeMessage(p *plugin.Message) (res Interception, handled bool) {
	switch {
	case p.Channel == forge.LegacyChannel && len(p.Data) != 0 && p.Data[0] == 1:
		// Forge sends these racing the handshake of the backend.
		return Suppress, true
	case forge.IsHandshakeMessage(p):
		err := s.forge.HandleClient(p, func(m *plugin.Message) {
			l := s.forgeLink
			if l == nil || !l.active() {
				l = s.activeLink()
			}
			if l != nil {
				_ = l.write(m)
			}
		})
		if err != nil {
			s.log.V(1).Info("invalid forge handshake message", "error", err)
		}
		return Suppress, true
	}
	// Checked after the mod list so that it is known even if the first
	// backend is vanilla.
	if l := s.activeLink(); l != nil && !l.forge && len(p.Data) > maxPluginMessageSize {
		s.log.V(1).Info("dropping oversized plugin message", "channel", p.Channel, "size", len(p.Data))
		return Suppress, true
	}
	return Forward, false
}

// handleCookieResponse completes proxy requests and routes other responses
// to the backend that asked.
func (s *Session) handleCookieResponse(p *cookie.Response) Interception {
	if s.cookies.onResponse(p.Key, p.Payload) {
		return Suppress
	}
	e := &CookieReceiveEvent{player: s, key: p.Key, payload: p.Payload}
	s.proxy.event.Fire(e)
	res := &cookie.Response{Key: p.Key, Payload: e.Payload()}
	for _, l := range s.pendingConnects {
		if l == nil || len(l.cookieKeys) == 0 || l.cookieKeys[0].String() != p.Key.String() {
			continue
		}
		l.cookieKeys = l.cookieKeys[1:]
		_ = l.write(res)
		return Suppress
	}
	if l := s.activeLink(); l != nil && l.conn.EncodeState() == s.conn.State() {
		_ = l.write(res)
	}
	return Suppress
}

// handleAcknowledgeConfiguration moves the client decoder into the config
// state after a StartUpdate.
func (s *Session) handleAcknowledgeConfiguration() Interception {
	s.conn.SetDecodeState(state.Config)
	if s.transition != nil {
		s.completeTransition()
		return Suppress
	}
	if l := s.backend; l != nil && l.configuring && l.active() {
		// Reconfiguration requested by the current backend.
		_ = l.conn.WritePacket(&config.AcknowledgeConfiguration{})
		l.conn.SetEncodeState(state.Config)
	}
	return Suppress
}

// handleClientFinished completes the configuration of the client.
func (s *Session) handleClientFinished() Interception {
	s.conn.SetDecodeState(state.Play)
	l := s.activeLink()
	if l == nil || !l.active() {
		return Suppress
	}
	l.configuring = false
	_ = l.conn.WritePacket(&config.FinishedUpdate{})
	l.conn.SetEncodeState(state.Play)
	return Suppress
}
