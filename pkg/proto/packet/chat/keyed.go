package chat

import (
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

const (
	maxPreviousMessageCount = 5
	maxArgumentSignatures   = 8
	maxArgumentNameLength   = 16
)

// SignaturePair is a previously seen message signature (1.19.1 and 1.19.2).
type SignaturePair struct {
	Signer    uuid.UUID
	Signature []byte
}

func readSignaturePair(r *util.PReader) SignaturePair {
	var p SignaturePair
	r.UUID(&p.Signer)
	r.Bytes(&p.Signature)
	return p
}

func (p SignaturePair) write(w *util.PWriter) {
	w.UUID(p.Signer)
	w.Bytes(p.Signature)
}

// KeyedLastSeen are the last seen messages of 1.19.1 and 1.19.2 clients.
type KeyedLastSeen struct {
	Previous []SignaturePair
	Last     *SignaturePair
}

func (l *KeyedLastSeen) read(r *util.PReader) {
	var n int
	r.VarInt(&n)
	if n > maxPreviousMessageCount {
		panic(errTooManyPrevious(n))
	}
	l.Previous = make([]SignaturePair, 0, n)
	for i := 0; i < n; i++ {
		l.Previous = append(l.Previous, readSignaturePair(r))
	}
	if r.Ok() {
		p := readSignaturePair(r)
		l.Last = &p
	}
}

func (l *KeyedLastSeen) write(w *util.PWriter) {
	w.VarInt(len(l.Previous))
	for _, p := range l.Previous {
		p.write(w)
	}
	w.Bool(l.Last != nil)
	if l.Last != nil {
		l.Last.write(w)
	}
}

// KeyedPlayerChat is a signed chat message of 1.19 to 1.19.2 clients.
type KeyedPlayerChat struct {
	Message       string
	Timestamp     int64 // unix millis
	Salt          int64
	Signature     []byte
	SignedPreview bool
	LastSeen      KeyedLastSeen // 1.19.1+
}

// Unsigned reports whether the client sent the message without signature.
func (p *KeyedPlayerChat) Unsigned() bool {
	return p.Salt == 0 || len(p.Signature) == 0
}

func (p *KeyedPlayerChat) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.String(p.Message)
	w.Int64(p.Timestamp)
	w.Int64(p.Salt)
	w.Bytes(p.Signature)
	w.Bool(p.SignedPreview)
	if c.Protocol.GreaterEqual(version.Minecraft_1_19_1) {
		p.LastSeen.write(w)
	}
	return nil
}

func (p *KeyedPlayerChat) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.StringMax(&p.Message, MaxServerBoundMessageLength)
	r.Int64(&p.Timestamp)
	r.Int64(&p.Salt)
	r.Bytes(&p.Signature)
	r.Bool(&p.SignedPreview)
	if c.Protocol.GreaterEqual(version.Minecraft_1_19_1) {
		p.LastSeen.read(r)
	}
	return nil
}

// ArgumentSignature is a signed command argument.
type ArgumentSignature struct {
	Name      string
	Signature []byte
}

// KeyedPlayerCommand is a command of 1.19 to 1.19.2 clients.
type KeyedPlayerCommand struct {
	Command       string // without leading slash
	Timestamp     int64
	Salt          int64
	Arguments     []ArgumentSignature
	SignedPreview bool
	LastSeen      KeyedLastSeen // 1.19.1+
}

// Unsigned reports whether no argument was signed.
func (p *KeyedPlayerCommand) Unsigned() bool {
	return p.Salt == 0 || len(p.Arguments) == 0
}

func (p *KeyedPlayerCommand) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.String(p.Command)
	w.Int64(p.Timestamp)
	w.Int64(p.Salt)
	w.VarInt(len(p.Arguments))
	for _, a := range p.Arguments {
		w.String(a.Name)
		w.Bytes(a.Signature)
	}
	w.Bool(p.SignedPreview)
	if c.Protocol.GreaterEqual(version.Minecraft_1_19_1) {
		p.LastSeen.write(w)
	}
	return nil
}

func (p *KeyedPlayerCommand) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
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
		r.Bytes(&a.Signature)
		p.Arguments = append(p.Arguments, a)
	}
	r.Bool(&p.SignedPreview)
	if c.Protocol.GreaterEqual(version.Minecraft_1_19_1) {
		p.LastSeen.read(r)
	}
	return nil
}

var (
	_ proto.Packet = (*KeyedPlayerChat)(nil)
	_ proto.Packet = (*KeyedPlayerCommand)(nil)
)
