package proxy

import (
	"bytes"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

// detachBackend drops the current backend before the client enters a
// new configuration phase.
func (s *Session) detachBackend() {
	link := s.backend
	if link == nil {
		return
	}
	link.obsolete.Store(true)
	link.disconnect()
	link.server.removePlayer(s)
	s.backend = nil
}

// completeTransition acknowledges the login of the link in transition once
// the client entered the config state.
func (s *Session) completeTransition() {
	l := s.transition
	if l == nil || l.configuring || !l.active() {
		return
	}
	if err := l.conn.WritePacket(&packet.LoginAcknowledged{}); err != nil {
		return
	}
	l.conn.SetState(state.Config)
	l.configuring = true
	l.conn.SetSessionHandler(&backendConfigSessionHandler{link: l})
	// The client may have sent brand and settings before the backend was ready.
	if brand := s.ClientBrand(); brand != "" {
		_ = l.write(brandMessage(s.Protocol(), brand))
	}
	if p := s.settingsPacket(); p != nil {
		_ = l.write(p)
	}
	if err := s.conn.Flush(); err != nil {
		s.log.V(1).Info("error flushing client connection", "error", err)
	}
}

// joined completes the connect of l with the first JoinGame of the backend.
func (s *Session) joined(l *backendLink, pc *proto.PacketContext, jg *packet.JoinGame) {
	if !l.finish() {
		return
	}
	prev := s.backend
	previous := l.previous
	if prev != nil {
		previous = prev.server
		prev.obsolete.Store(true)
		prev.disconnect()
		prev.server.removePlayer(s)
	}
	if s.transition == l {
		s.transition = nil
	}
	l.joined = true
	s.backend = l
	s.current.Store(l.server)
	l.server.addPlayer(s)

	if err := s.writeJoin(pc, jg); err != nil {
		s.log.V(1).Info("error writing join game", "error", err)
		return
	}
	s.announceClient(l)

	s.proxy.metrics.BackendConnect(l.server.Name(), Success.String())
	s.log.Info("player connected to server", "server", l.server.Name(), "previous", serverName(previous))
	s.proxy.event.Fire(&ServerConnectedEvent{player: s, server: l.server, previous: previous})
	l.req.done(Success, nil)
}

// writeJoin sends the world of a new backend to the client.
func (s *Session) writeJoin(pc *proto.PacketContext, jg *packet.JoinGame) error {
	protocol := s.Protocol()
	if !s.spawned || protocol.GreaterEqual(version.Minecraft_1_20_2) {
		s.spawned = true
		s.clientEntityID, s.serverEntityID = jg.EntityID, jg.EntityID
		return s.conn.Write(pc.Payload)
	}

	tempDim := 0
	if jg.Dimension == 0 {
		tempDim = -1
	}
	fake := &packet.Respawn{
		Dimension:         tempDim,
		PartialHashedSeed: jg.PartialHashedSeed,
		Difficulty:        jg.Difficulty,
		Gamemode:          jg.Gamemode,
		LevelType:         jg.LevelType,
	}
	if s.rewrite != nil {
		// The client keeps its entity id, the new server id is rewritten.
		s.serverEntityID = jg.EntityID
		if err := s.conn.BufferPacket(fake); err != nil {
			return err
		}
		if err := s.conn.BufferPacket(packet.RespawnFromJoinGame(jg)); err != nil {
			return err
		}
		return s.conn.Flush()
	}

	s.clientEntityID, s.serverEntityID = jg.EntityID, jg.EntityID
	if err := s.conn.BufferPayload(pc.Payload); err != nil {
		return err
	}
	if protocol.Lower(version.Minecraft_1_16) {
		if err := s.conn.BufferPacket(fake); err != nil {
			return err
		}
	}
	if err := s.conn.BufferPacket(packet.RespawnFromJoinGame(jg)); err != nil {
		return err
	}
	return s.conn.Flush()
}

// announceClient resends the brand and channels of the client to a new backend.
func (s *Session) announceClient(l *backendLink) {
	if s.Protocol().GreaterEqual(version.Minecraft_1_20_2) {
		// Sent during the config phase.
		return
	}
	if brand := s.ClientBrand(); brand != "" {
		_ = l.write(brandMessage(s.Protocol(), brand))
	}
	if s.channels.Len() != 0 {
		_ = l.write(plugin.ConstructChannelsPacket(s.Protocol(), s.channels.UnsortedList()...))
	}
}

func brandMessage(protocol proto.Protocol, brand string) *plugin.Message {
	buf := new(bytes.Buffer)
	_ = util.WriteString(buf, brand)
	return &plugin.Message{Channel: plugin.BrandChannelFor(protocol), Data: buf.Bytes()}
}
