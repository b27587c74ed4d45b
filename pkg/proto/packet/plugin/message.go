// Package plugin contains the plugin message packet and helpers
// for the well-known channels.
package plugin

import (
	"bytes"
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
)

// Message is a plugin message packet.
type Message struct {
	Channel string
	Data    []byte

	// Retained holds the packet bytes as they were decoded, so the
	// message can be forwarded without encoding it again.
	// It is not part of the packet.
	Retained []byte
}

func (p *Message) Encode(_ *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteString(wr, p.Channel); err != nil {
		return err
	}
	return util.WriteRawBytes(wr, p.Data)
}

func (p *Message) Decode(_ *proto.PacketContext, r io.Reader) (err error) {
	retained := new(bytes.Buffer)
	rd := io.TeeReader(r, retained)
	if p.Channel, err = util.ReadString(rd); err != nil {
		return err
	}
	if p.Data, err = util.ReadRemaining(rd); err != nil {
		return err
	}
	p.Retained = retained.Bytes()
	return nil
}

var _ proto.Packet = (*Message)(nil)
