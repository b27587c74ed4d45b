package chat

import (
	"fmt"
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
)

const (
	signatureLength = 256
	lastSeenBits    = 20
)

func errTooManyPrevious(n int) error {
	return fmt.Errorf("too many previous messages (%d > %d)", n, maxPreviousMessageCount)
}

func errTooManyArguments(n int) error {
	return fmt.Errorf("too many argument signatures (%d > %d)", n, maxArgumentSignatures)
}

// LastSeenMessages acknowledges messages a 1.19.3+ client has seen.
type LastSeenMessages struct {
	Offset       int
	Acknowledged [(lastSeenBits + 7) / 8]byte // fixed bit set
}

func (l *LastSeenMessages) read(r *util.PReader) {
	r.VarInt(&l.Offset)
	var b []byte
	r.FixedBytes(&b, len(l.Acknowledged))
	copy(l.Acknowledged[:], b)
}

func (l *LastSeenMessages) write(w *util.PWriter) {
	w.VarInt(l.Offset)
	w.RawBytes(l.Acknowledged[:])
}

// SessionPlayerChat is a chat message of 1.19.3+ clients.
type SessionPlayerChat struct {
	Message   string
	Timestamp int64
	Salt      int64
	Signature []byte // nil or 256 bytes
	LastSeen  LastSeenMessages
}

func (p *SessionPlayerChat) Signed() bool { return len(p.Signature) != 0 }

func (p *SessionPlayerChat) Encode(_ *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.String(p.Message)
	w.Int64(p.Timestamp)
	w.Int64(p.Salt)
	w.Bool(p.Signed())
	if p.Signed() {
		w.RawBytes(p.Signature)
	}
	p.LastSeen.write(w)
	return nil
}

func (p *SessionPlayerChat) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.StringMax(&p.Message, MaxServerBoundMessageLength)
	r.Int64(&p.Timestamp)
	r.Int64(&p.Salt)
	p.Signature = nil
	if r.Ok() {
		r.FixedBytes(&p.Signature, signatureLength)
	}
	p.LastSeen.read(r)
	return nil
}

// SessionPlayerCommand is a command of 1.19.3+ clients
// (the signed variant from 1.20.5 on).
type SessionPlayerCommand struct {
	Command   string
	Timestamp int64
	Salt      int64
	Arguments []ArgumentSignature // 256 byte signatures
	LastSeen  LastSeenMessages
}

// Signed reports whether any argument is signed.
func (p *SessionPlayerCommand) Signed() bool { return len(p.Arguments) != 0 }

func (p *SessionPlayerCommand) Encode(_ *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.String(p.Command)
	w.Int64(p.Timestamp)
	w.Int64(p.Salt)
	w.VarInt(len(p.Arguments))
	for _, a := range p.Arguments {
		w.String(a.Name)
		w.RawBytes(a.Signature)
	}
	p.LastSeen.write(w)
	return nil
}

func (p *SessionPlayerCommand) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.StringMax(&p.Command, MaxServerBoundMessageLength)
	r.Int64(&p.Timestamp)
	r.Int64(&p.Salt)
	var n int
	r.VarInt(&n)
	if n > maxArgumentSignatures {
		return errTooManyArguments(n)
	}
	p.Arguments = make([]ArgumentSignature, 0, n)
	for i := 0; i < n; i++ {
		var a ArgumentSignature
		r.StringMax(&a.Name, maxArgumentNameLength)
		r.FixedBytes(&a.Signature, signatureLength)
		p.Arguments = append(p.Arguments, a)
	}
	p.LastSeen.read(r)
	return nil
}

// UnsignedPlayerCommand is a command without signatures (1.20.5+).
type UnsignedPlayerCommand struct {
	Command string
}

func (p *UnsignedPlayerCommand) Encode(_ *proto.PacketContext, wr io.Writer) error {
	return util.WriteString(wr, p.Command)
}

func (p *UnsignedPlayerCommand) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	p.Command, err = util.ReadStringMax(rd, MaxServerBoundMessageLength)
	return
}

// ChatAcknowledgement acknowledges received messages up to Offset (1.19.3+).
type ChatAcknowledgement struct {
	Offset int
}

func (p *ChatAcknowledgement) Encode(_ *proto.PacketContext, wr io.Writer) error {
	return util.WriteVarInt(wr, p.Offset)
}

func (p *ChatAcknowledgement) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	p.Offset, err = util.ReadVarInt(rd)
	return
}

var (
	_ proto.Packet = (*SessionPlayerChat)(nil)
	_ proto.Packet = (*SessionPlayerCommand)(nil)
	_ proto.Packet = (*UnsignedPlayerCommand)(nil)
	_ proto.Packet = (*ChatAcknowledgement)(nil)
)
