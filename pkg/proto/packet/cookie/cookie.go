// Package cookie contains the 1.20.5 cookie packets used in the login,
// configuration and play states.
package cookie

import (
	"io"

	"go.minekube.com/common/minecraft/key"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
)

// MaxPayloadSize is the maximum size of a cookie payload.
const MaxPayloadSize = 5 * 1024

// Request asks the client for the cookie stored under Key.
type Request struct {
	Key key.Key
}

func (p *Request) Encode(_ *proto.PacketContext, wr io.Writer) error {
	return util.WriteKey(wr, p.Key)
}

func (p *Request) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	p.Key, err = util.ReadKey(rd)
	return err
}

// Response is the client's answer to a Request.
// A nil Payload means the client has no such cookie.
type Response struct {
	Key     key.Key
	Payload []byte
}

func (p *Response) Encode(_ *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteKey(wr, p.Key); err != nil {
		return err
	}
	if err := util.WriteBool(wr, p.Payload != nil); err != nil {
		return err
	}
	if p.Payload != nil {
		return util.WriteBytes(wr, p.Payload)
	}
	return nil
}

func (p *Response) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	if p.Key, err = util.ReadKey(rd); err != nil {
		return err
	}
	ok, err := util.ReadBool(rd)
	if err != nil || !ok {
		p.Payload = nil
		return err
	}
	p.Payload, err = util.ReadBytesLen(rd, MaxPayloadSize)
	return err
}

// Store stores a cookie on the client.
type Store struct {
	Key     key.Key
	Payload []byte
}

func (p *Store) Encode(_ *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteKey(wr, p.Key); err != nil {
		return err
	}
	return util.WriteBytes(wr, p.Payload)
}

func (p *Store) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	if p.Key, err = util.ReadKey(rd); err != nil {
		return err
	}
	p.Payload, err = util.ReadBytesLen(rd, MaxPayloadSize)
	return err
}

var (
	_ proto.Packet = (*Request)(nil)
	_ proto.Packet = (*Response)(nil)
	_ proto.Packet = (*Store)(nil)
)
