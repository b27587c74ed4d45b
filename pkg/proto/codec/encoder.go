package codec

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

const (
	VanillaMaximumUncompressedSize = 8 * 1024 * 1024   // 8MiB
	HardMaximumUncompressedSize    = 128 * 1024 * 1024 // 128MiB
	UncompressedCap                = VanillaMaximumUncompressedSize
)

var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

func getBuf() *bytes.Buffer { return bufPool.Get().(*bytes.Buffer) }

func putBuf(b *bytes.Buffer) {
	b.Reset()
	bufPool.Put(b)
}

// Encoder is a synchronized packet encoder.
type Encoder struct {
	direction proto.Direction
	log       logr.Logger

	mu          sync.Mutex // Protects following fields
	wr          io.Writer  // the underlying writer to write successfully encoded packets to
	registry    *state.ProtocolRegistry
	state       *state.Registry
	compression struct {
		enabled   bool
		threshold int
		writer    *zlib.Writer
	}
}

func NewEncoder(w io.Writer, direction proto.Direction, log logr.Logger) *Encoder {
	return &Encoder{
		log:       log.WithName("encoder"),
		wr:        w,
		direction: direction,
		registry:  state.FromDirection(direction, state.Handshake, version.MinimumVersion.Protocol),
		state:     state.Handshake,
	}
}

// Direction returns the encoder's direction.
func (e *Encoder) Direction() proto.Direction {
	return e.direction
}

// State returns the current state.
func (e *Encoder) State() state.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.State
}

// Protocol returns the current protocol version.
func (e *Encoder) Protocol() proto.Protocol {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Protocol
}

// SetCompression enables compression of packets at least threshold bytes
// long. A negative threshold disables compression.
func (e *Encoder) SetCompression(threshold, level int) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compression.threshold = threshold
	e.compression.enabled = threshold >= 0
	if e.compression.enabled {
		e.compression.writer, err = zlib.NewWriterLevel(e.wr, level)
	}
	return
}

// WritePacket encodes the packet with the registered id and writes the frame.
func (e *Encoder) WritePacket(packet proto.Packet) (n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	packetID, found := e.registry.PacketID(packet)
	if !found {
		return n, fmt.Errorf("packet id for type %T in protocol %s not registered in the %s %s state registry",
			packet, e.registry.Protocol, e.direction, e.state.State)
	}

	buf := getBuf()
	defer putBuf(buf)

	_ = util.WriteVarInt(buf, int(packetID))

	ctx := &proto.PacketContext{
		Direction: e.direction,
		Protocol:  e.registry.Protocol,
		PacketID:  packetID,
		Packet:    packet,
	}
	if err = util.RecoverFunc(func() error {
		return packet.Encode(ctx, buf)
	}); err != nil {
		return 0, err
	}

	if e.log.V(2).Enabled() {
		e.log.V(2).Info("encoded packet", "context", ctx.String(), "bytes", buf.Len())
	}
	return e.writeBuf(buf)
}

// Write frames payload and writes it to the underlying writer.
// The payload must not already be compressed nor encrypted and must
// start with the packet id VarInt followed by the packet data.
func (e *Encoder) Write(payload []byte) (n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writeBuf(bytes.NewBuffer(payload))
}

func (e *Encoder) writeBuf(payload *bytes.Buffer) (n int, err error) {
	if e.compression.enabled {
		return e.writeCompressed(payload)
	}
	n, err = util.WriteVarIntN(e.wr, payload.Len())
	if err != nil {
		return n, err
	}
	m, err := payload.WriteTo(e.wr)
	return int(m) + n, err
}

func (e *Encoder) writeCompressed(payload *bytes.Buffer) (n int, err error) {
	uncompressedSize := payload.Len()
	if uncompressedSize < e.compression.threshold {
		n, err = util.WriteVarIntN(e.wr, uncompressedSize+1)
		if err != nil {
			return n, err
		}
		n2, err := util.WriteVarIntN(e.wr, 0) // not compressed
		if err != nil {
			return n + n2, err
		}
		n3, err := payload.WriteTo(e.wr)
		return n + n2 + int(n3), err
	}

	compressed := getBuf()
	defer putBuf(compressed)

	if err = util.WriteVarInt(compressed, uncompressedSize); err != nil {
		return 0, err
	}
	e.compression.writer.Reset(compressed)
	if _, err = e.compression.writer.Write(payload.Bytes()); err != nil {
		return 0, err
	}
	if err = e.compression.writer.Close(); err != nil {
		return 0, err
	}
	n, err = util.WriteVarIntN(e.wr, compressed.Len())
	if err != nil {
		return n, err
	}
	m, err := compressed.WriteTo(e.wr)
	return n + int(m), err
}

func (e *Encoder) SetProtocol(protocol proto.Protocol) {
	e.mu.Lock()
	e.setProtocol(protocol)
	e.mu.Unlock()
}

func (e *Encoder) setProtocol(protocol proto.Protocol) {
	if r := state.FromDirection(e.direction, e.state, protocol); r != nil {
		e.registry = r
		return
	}
	e.registry = &state.ProtocolRegistry{Protocol: protocol}
}

func (e *Encoder) SetState(state *state.Registry) {
	e.mu.Lock()
	e.state = state
	e.setProtocol(e.registry.Protocol)
	e.mu.Unlock()
}

// SetWriter replaces the underlying writer, e.g. to install encryption.
func (e *Encoder) SetWriter(w io.Writer) {
	e.mu.Lock()
	e.wr = w
	e.mu.Unlock()
}

// Sync locks the encoder while running fn,
// making sure no writes happen during this call.
func (e *Encoder) Sync(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}
