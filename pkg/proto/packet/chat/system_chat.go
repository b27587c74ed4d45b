package chat

import (
	"io"

	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

// SystemChat is a clientbound unsigned message (1.19+).
type SystemChat struct {
	Component *packet.ComponentHolder
	Type      MessageType // 1.19 uses the type id, later versions the overlay flag
}

// NewSystemChat returns a SystemChat showing comp in the chat box.
func NewSystemChat(comp component.Component) *SystemChat {
	return &SystemChat{Component: packet.FromComponent(comp), Type: SystemMessageType}
}

func (p *SystemChat) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := p.Component.Write(wr, c.Protocol); err != nil {
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19_1) {
		return util.WriteBool(wr, p.Type == GameInfoMessageType)
	}
	return util.WriteVarInt(wr, int(p.Type))
}

func (p *SystemChat) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	if p.Component, err = packet.ReadComponentHolder(rd, c.Protocol); err != nil {
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19_1) {
		overlay, err := util.ReadBool(rd)
		if err != nil {
			return err
		}
		p.Type = SystemMessageType
		if overlay {
			p.Type = GameInfoMessageType
		}
		return nil
	}
	t, err := util.ReadVarInt(rd)
	p.Type = MessageType(t)
	return err
}

var _ proto.Packet = (*SystemChat)(nil)
