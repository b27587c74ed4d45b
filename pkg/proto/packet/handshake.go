package packet

import (
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
)

// Handshake intents of the next state requested by a client.
const (
	StatusIntent   = 1
	LoginIntent    = 2
	TransferIntent = 3 // login after a transfer (1.20.5+)
)

type Handshake struct {
	ProtocolVersion int
	ServerAddress   string
	Port            int
	NextStatus      int
}

func (h *Handshake) Encode(_ *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.VarInt(h.ProtocolVersion)
	w.String(h.ServerAddress)
	w.Uint16(uint16(h.Port))
	w.VarInt(h.NextStatus)
	return nil
}

// maxAddressLength leaves room for forwarding data and Forge markers.
const maxAddressLength = 1024

func (h *Handshake) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.VarInt(&h.ProtocolVersion)
	r.StringMax(&h.ServerAddress, maxAddressLength)
	var port uint16
	r.Uint16(&port)
	h.Port = int(port)
	r.VarInt(&h.NextStatus)
	return nil
}

var _ proto.Packet = (*Handshake)(nil)
