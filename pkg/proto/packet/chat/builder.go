package chat

import (
	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

// Builder builds the clientbound packet showing a message for a protocol version.
type Builder struct {
	Protocol  proto.Protocol
	Component component.Component
	Type      MessageType
}

// ToClient returns the packet to send to the client.
func (b *Builder) ToClient() (proto.Packet, error) {
	t := b.Type
	if t == ChatMessageType {
		t = SystemMessageType // the proxy never sends player chat
	}
	if b.Protocol.GreaterEqual(version.Minecraft_1_19) {
		return &SystemChat{
			Component: packet.FromComponent(b.Component),
			Type:      t,
		}, nil
	}
	j, err := util.Marshal(b.Protocol, b.Component)
	if err != nil {
		return nil, err
	}
	return &LegacyChat{Message: string(j), Type: t}, nil
}
