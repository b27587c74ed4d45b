package packet

import (
	"errors"
	"io"

	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/proto"
)

// Disconnect kicks a client in the config and play state.
type Disconnect struct {
	Reason *ComponentHolder
}

// NewDisconnect returns a Disconnect packet for the given reason.
func NewDisconnect(reason component.Component) *Disconnect {
	if reason == nil {
		reason = &component.Text{}
	}
	return &Disconnect{Reason: FromComponent(reason)}
}

func (d *Disconnect) Encode(c *proto.PacketContext, wr io.Writer) error {
	if d.Reason == nil {
		return errors.New("no reason specified")
	}
	return d.Reason.Write(wr, c.Protocol)
}

func (d *Disconnect) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	d.Reason, err = ReadComponentHolder(rd, c.Protocol)
	return
}

// LoginDisconnect kicks a client in the login state.
// Unlike Disconnect the reason is always JSON encoded.
type LoginDisconnect struct {
	Reason *ComponentHolder
}

// NewLoginDisconnect returns a LoginDisconnect packet for the given reason.
func NewLoginDisconnect(reason component.Component) *LoginDisconnect {
	if reason == nil {
		reason = &component.Text{}
	}
	return &LoginDisconnect{Reason: FromComponent(reason)}
}

func (d *LoginDisconnect) Encode(c *proto.PacketContext, wr io.Writer) error {
	if d.Reason == nil {
		return errors.New("no reason specified")
	}
	return d.Reason.WriteJSON(wr, c.Protocol)
}

func (d *LoginDisconnect) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	d.Reason, err = ReadJSONComponentHolder(rd, c.Protocol)
	return
}

var (
	_ proto.Packet = (*Disconnect)(nil)
	_ proto.Packet = (*LoginDisconnect)(nil)
)
