package packet

import (
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

type KeepAlive struct {
	RandomID int64
}

func (k *KeepAlive) Encode(c *proto.PacketContext, wr io.Writer) error {
	if c.Protocol.GreaterEqual(version.Minecraft_1_12_2) {
		return util.WriteInt64(wr, k.RandomID)
	}
	return util.WriteVarInt(wr, int(k.RandomID))
}

func (k *KeepAlive) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	if c.Protocol.GreaterEqual(version.Minecraft_1_12_2) {
		k.RandomID, err = util.ReadInt64(rd)
		return
	}
	var id int
	id, err = util.ReadVarInt(rd)
	k.RandomID = int64(id)
	return
}

var _ proto.Packet = (*KeepAlive)(nil)
