package proxy

import (
	"bytes"
	"io"
	"strings"

	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
	"github.com/xenoncommunity/xenon/pkg/util/netutil"
)

// bungeeRequest is a request of a backend plugin on the BungeeCord channel.
// Requests are handled on the executor of the player whose connection
// carried them.
type bungeeRequest struct {
	link *backendLink
	in   *bytes.Reader
}

// handleBungeeMessage answers a request of a backend plugin.
func (l *backendLink) handleBungeeMessage(p *plugin.Message) {
	s := l.session
	if !s.proxy.config().BungeePluginChannel {
		return
	}
	r := &bungeeRequest{link: l, in: bytes.NewReader(p.Data)}
	sub, err := util.ReadUTF(r.in)
	if err != nil {
		return
	}
	switch sub {
	case "Connect":
		r.connect()
	case "ConnectOther":
		r.connectOther()
	case "IP":
		r.ip()
	case "UUID":
		r.reply("UUID", s.ID().Undashed())
	case "UUIDOther":
		r.uuidOther()
	case "PlayerCount":
		r.playerCount()
	case "PlayerList":
		r.playerList()
	case "GetServers":
		r.reply("GetServers", strings.Join(r.serverNames(), ", "))
	case "GetServer":
		r.reply("GetServer", l.server.Name())
	case "Message":
		r.message(componentutil.FromLegacy)
	case "MessageRaw":
		r.message(jsonComponent)
	case "ServerIP":
		r.serverIP()
	case "KickPlayer":
		r.kick()
	case "Forward":
		r.forward()
	case "ForwardToPlayer":
		r.forwardToPlayer()
	default:
		l.log.V(1).Info("unknown BungeeCord subchannel", "subchannel", sub)
	}
}

func bungeeChannel(protocol proto.Protocol) string {
	if protocol.GreaterEqual(version.Minecraft_1_13) {
		return plugin.BungeeCordChannel
	}
	return plugin.BungeeCordChannelLegacy
}

// reply writes UTF strings as response to the requesting backend.
func (r *bungeeRequest) reply(fields ...any) {
	b := new(bytes.Buffer)
	for _, f := range fields {
		switch v := f.(type) {
		case string:
			_ = util.WriteUTF(b, v)
		case int32:
			_ = util.WriteInt32(b, v)
		case int16:
			_ = util.WriteInt16(b, v)
		}
	}
	r.link.sendBungee(b.Bytes())
}

func (l *backendLink) sendBungee(data []byte) {
	_ = l.write(&plugin.Message{Channel: bungeeChannel(l.conn.Protocol()), Data: data})
}

func (r *bungeeRequest) readServer() *RegisteredServer {
	name, err := util.ReadUTF(r.in)
	if err != nil {
		return nil
	}
	return r.link.session.proxy.Server(name)
}

func (r *bungeeRequest) readPlayer() *Session {
	name, err := util.ReadUTF(r.in)
	if err != nil {
		return nil
	}
	return r.link.session.proxy.Player(name)
}

func (r *bungeeRequest) connect() {
	if target := r.readServer(); target != nil {
		r.link.session.Connect(&ConnectRequest{Target: target, Reason: PluginConnect, SendFeedback: true})
	}
}

func (r *bungeeRequest) connectOther() {
	player := r.readPlayer()
	target := r.readServer()
	if player != nil && target != nil {
		player.Connect(&ConnectRequest{Target: target, Reason: PluginConnect, SendFeedback: true})
	}
}

func (r *bungeeRequest) ip() {
	host, port := netutil.HostPort(r.link.session.RemoteAddr())
	r.reply("IP", host, int32(port))
}

func (r *bungeeRequest) uuidOther() {
	if p := r.readPlayer(); p != nil {
		r.reply("UUIDOther", p.Username(), p.ID().Undashed())
	}
}

func (r *bungeeRequest) playerCount() {
	target, err := util.ReadUTF(r.in)
	if err != nil {
		return
	}
	p := r.link.session.proxy
	if strings.EqualFold(target, "ALL") {
		r.reply("PlayerCount", "ALL", int32(p.PlayerCount()))
		return
	}
	if s := p.Server(target); s != nil {
		r.reply("PlayerCount", s.Name(), int32(s.PlayerCount()))
	}
}

func (r *bungeeRequest) playerList() {
	target, err := util.ReadUTF(r.in)
	if err != nil {
		return
	}
	p := r.link.session.proxy
	var (
		name    = "ALL"
		players []*Session
	)
	if strings.EqualFold(target, name) {
		players = p.Players()
	} else {
		s := p.Server(target)
		if s == nil {
			return
		}
		name = s.Name()
		players = s.Players()
	}
	names := make([]string, 0, len(players))
	for _, pl := range players {
		names = append(names, pl.Username())
	}
	r.reply("PlayerList", name, strings.Join(names, ", "))
}

func (r *bungeeRequest) serverNames() []string {
	servers := r.link.session.proxy.Servers()
	names := make([]string, 0, len(servers))
	for _, s := range servers {
		names = append(names, s.Name())
	}
	return names
}

func (r *bungeeRequest) message(decode func(string) (component.Component, error)) {
	target, err := util.ReadUTF(r.in)
	if err != nil {
		return
	}
	msg, err := util.ReadUTF(r.in)
	if err != nil {
		return
	}
	comp, err := decode(msg)
	if err != nil {
		return
	}
	p := r.link.session.proxy
	var players []*Session
	if strings.EqualFold(target, "ALL") {
		players = p.Players()
	} else if pl := p.Player(target); pl != nil {
		players = []*Session{pl}
	}
	for _, pl := range players {
		_ = pl.exec().Post(func() { _ = pl.SendMessage(comp) })
	}
}

func (r *bungeeRequest) serverIP() {
	s := r.readServer()
	if s == nil {
		return
	}
	host, port := netutil.HostPort(s.Addr())
	r.reply("ServerIP", s.Name(), host, int16(port))
}

func (r *bungeeRequest) kick() {
	p := r.readPlayer()
	if p == nil {
		return
	}
	msg, err := util.ReadUTF(r.in)
	if err != nil {
		return
	}
	reason, err := componentutil.FromLegacy(msg)
	if err != nil {
		reason = &component.Text{}
	}
	p.Disconnect(reason)
}

// readForward reads the channel and data of a forward request and
// encodes them for the receiving backend.
func (r *bungeeRequest) readForward() []byte {
	channel, err := util.ReadUTF(r.in)
	if err != nil {
		return nil
	}
	n, err := util.ReadInt16(r.in)
	if err != nil || n < 0 {
		return nil
	}
	data := make([]byte, n)
	if _, err = io.ReadFull(r.in, data); err != nil {
		return nil
	}
	b := new(bytes.Buffer)
	_ = util.WriteUTF(b, channel)
	_ = util.WriteInt16(b, n)
	b.Write(data)
	return b.Bytes()
}

func (r *bungeeRequest) forward() {
	target, err := util.ReadUTF(r.in)
	if err != nil {
		return
	}
	data := r.readForward()
	if data == nil {
		return
	}
	var servers []*RegisteredServer
	switch {
	case strings.EqualFold(target, "ALL"), strings.EqualFold(target, "ONLINE"):
		servers = r.link.session.proxy.Servers()
	default:
		if s := r.link.session.proxy.Server(target); s != nil {
			servers = []*RegisteredServer{s}
		}
	}
	for _, s := range servers {
		if !s.sameAs(r.link.server) {
			s.sendBungee(data)
		}
	}
}

func (r *bungeeRequest) forwardToPlayer() {
	p := r.readPlayer()
	data := r.readForward()
	if p == nil || data == nil {
		return
	}
	_ = p.exec().Post(func() {
		if l := p.backend; l != nil {
			l.sendBungee(data)
		}
	})
}

// sendBungee delivers data to the server through the connection of any
// of its players. Nothing is sent to servers without players.
func (s *RegisteredServer) sendBungee(data []byte) {
	players := s.Players()
	if len(players) == 0 {
		return
	}
	p := players[0]
	_ = p.exec().Post(func() {
		if l := p.backend; l != nil && l.server.sameAs(s) {
			l.sendBungee(data)
		}
	})
}

func jsonComponent(s string) (component.Component, error) {
	return util.JsonCodec(version.MaximumVersion.Protocol).Unmarshal([]byte(s))
}
