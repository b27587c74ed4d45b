// Package chat contains the chat and command packets of all supported versions.
package chat

import (
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

const (
	MaxServerBoundMessageLength       = 256
	MaxServerBoundMessageLengthLegacy = 100 // before 1.11
)

// MessageType is the position of a clientbound legacy chat message.
type MessageType byte

const (
	ChatMessageType MessageType = iota
	SystemMessageType
	GameInfoMessageType // action bar
)

// LegacyChat is the chat packet before 1.19. Serverbound it carries the
// typed message or command, clientbound a JSON component.
type LegacyChat struct {
	Message string
	Type    MessageType // clientbound
	Sender  uuid.UUID   // clientbound 1.16+
}

func (ch *LegacyChat) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteString(wr, ch.Message); err != nil {
		return err
	}
	if c.Direction == proto.ClientBound {
		if err := util.WriteByte(wr, byte(ch.Type)); err != nil {
			return err
		}
		if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
			return util.WriteUUID(wr, ch.Sender)
		}
	}
	return nil
}

func (ch *LegacyChat) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	if c.Direction == proto.ServerBound {
		max := MaxServerBoundMessageLength
		if c.Protocol.Lower(version.Minecraft_1_11) {
			max = MaxServerBoundMessageLengthLegacy
		}
		ch.Message, err = util.ReadStringMax(rd, max)
		return err
	}
	if ch.Message, err = util.ReadString(rd); err != nil {
		return err
	}
	t, err := util.ReadByte(rd)
	if err != nil {
		return err
	}
	ch.Type = MessageType(t)
	if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
		ch.Sender, err = util.ReadUUID(rd)
	}
	return err
}

var _ proto.Packet = (*LegacyChat)(nil)
