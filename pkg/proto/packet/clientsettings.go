package packet

import (
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

// ClientSettings is sent by the client on join and whenever the player changes their settings.
type ClientSettings struct {
	Locale         string // may be empty
	ViewDistance   byte
	ChatVisibility int
	ChatColors     bool
	SkinParts      byte
	MainHand       int  // 1.9+
	TextFiltering  bool // 1.17+
	ClientListing  bool // 1.18+, overwrites server-list "anonymous" mode
}

func (s *ClientSettings) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.String(s.Locale)
	w.Byte(s.ViewDistance)
	w.VarInt(s.ChatVisibility)
	w.Bool(s.ChatColors)
	w.Byte(s.SkinParts)
	if c.Protocol.GreaterEqual(version.Minecraft_1_9) {
		w.VarInt(s.MainHand)
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_17) {
		w.Bool(s.TextFiltering)
		if c.Protocol.GreaterEqual(version.Minecraft_1_18) {
			w.Bool(s.ClientListing)
		}
	}
	return nil
}

func (s *ClientSettings) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.StringMax(&s.Locale, 16)
	r.Byte(&s.ViewDistance)
	r.VarInt(&s.ChatVisibility)
	r.Bool(&s.ChatColors)
	r.Byte(&s.SkinParts)
	if c.Protocol.GreaterEqual(version.Minecraft_1_9) {
		r.VarInt(&s.MainHand)
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_17) {
		r.Bool(&s.TextFiltering)
		if c.Protocol.GreaterEqual(version.Minecraft_1_18) {
			r.Bool(&s.ClientListing)
		}
	}
	return nil
}

var _ proto.Packet = (*ClientSettings)(nil)
