package codec

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/util/errs"
)

const (
	maxFrameLength = 1 << 21 // 2 MiB, the largest 3 byte VarInt
	legacyPingID   = 0xFE
)

// Decoder is a synchronized packet decoder.
//
// Reading a frame and decoding it are separate steps so a connection can
// read the next frame while the previous one is still being handled and
// decode it only after the handler has applied state changes.
type Decoder struct {
	log       logr.Logger
	direction proto.Direction

	readMu sync.Mutex // Locked while reading a frame.

	mu                   sync.Mutex // Protects following fields.
	rd                   io.Reader
	br                   *bufio.Reader // the initial reader, used to detect legacy pings
	registry             *state.ProtocolRegistry
	state                *state.Registry
	compression          bool
	compressionThreshold int
	zrd                  io.ReadCloser
}

// NewDecoder returns a decoder in the handshake state reading from r.
func NewDecoder(r io.Reader, direction proto.Direction, log logr.Logger) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{
		rd:        &fullReader{br},
		br:        br,
		direction: direction,
		state:     state.Handshake,
		registry:  state.FromDirection(direction, state.Handshake, version.MinimumVersion.Protocol),
		log:       log.WithName("decoder"),
	}
}

type fullReader struct{ io.Reader }

func (fr *fullReader) Read(p []byte) (int, error) { return io.ReadFull(fr.Reader, p) }

// State returns the current state.
func (d *Decoder) State() state.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.State
}

// Protocol returns the current protocol version.
func (d *Decoder) Protocol() proto.Protocol {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.Protocol
}

func (d *Decoder) SetState(state *state.Registry) {
	d.mu.Lock()
	d.state = state
	d.setProtocol(d.registry.Protocol)
	d.mu.Unlock()
}

func (d *Decoder) SetProtocol(protocol proto.Protocol) {
	d.mu.Lock()
	d.setProtocol(protocol)
	d.mu.Unlock()
}

func (d *Decoder) setProtocol(protocol proto.Protocol) {
	if r := state.FromDirection(d.direction, d.state, protocol); r != nil {
		d.registry = r
		return
	}
	// Unsupported protocols only get this far in states with a fallback.
	d.registry = &state.ProtocolRegistry{Protocol: protocol}
}

// SetReader replaces the underlying reader, e.g. to install decryption.
func (d *Decoder) SetReader(rd io.Reader) {
	d.mu.Lock()
	d.rd = &fullReader{rd}
	d.mu.Unlock()
}

// Reader returns the underlying buffered reader of the connection.
func (d *Decoder) Reader() *bufio.Reader { return d.br }

func (d *Decoder) SetCompressionThreshold(threshold int) {
	d.mu.Lock()
	d.compressionThreshold = threshold
	d.compression = threshold >= 0
	d.mu.Unlock()
}

// Decode reads and decodes the next packet.
func (d *Decoder) Decode() (*proto.PacketContext, error) {
	frame, err := d.ReadFrame()
	if err != nil {
		return nil, err
	}
	return d.DecodeFrame(frame)
}

// Frame is a read frame that is not yet decoded.
type Frame struct {
	Payload    []byte // packet id + data, decompressed
	LegacyPing *packet.LegacyPing
	BytesRead  int
}

// ReadFrame reads the next non-empty frame and decompresses it.
// In the handshake state a leading 0xFE byte is reported as legacy ping.
func (d *Decoder) ReadFrame() (*Frame, error) {
	d.readMu.Lock()
	defer d.readMu.Unlock()

	d.mu.Lock()
	rd, handshake := d.rd, d.state == state.Handshake
	d.mu.Unlock()

	if handshake {
		if ping, err := d.readLegacyPing(); ping != nil || err != nil {
			if err != nil {
				return nil, errs.WrapSilent(err)
			}
			return &Frame{LegacyPing: ping}, nil
		}
	}

	for retries := 0; ; retries++ {
		payload, n, err := readVarIntFrame(rd)
		if err != nil {
			return nil, errs.WrapSilent(err)
		}
		if len(payload) == 0 {
			if retries > 10 {
				return nil, errors.New("got too many empty packets")
			}
			continue
		}
		payload, err = d.decompress(payload)
		if err != nil {
			return nil, err
		}
		return &Frame{Payload: payload, BytesRead: n}, nil
	}
}

func (d *Decoder) readLegacyPing() (*packet.LegacyPing, error) {
	b, err := d.br.Peek(1)
	if err != nil || b[0] != legacyPingID {
		return nil, err
	}
	ping := &packet.LegacyPing{Version: packet.LegacyPingBeta}
	if b, err = d.br.Peek(d.br.Buffered()); err == nil && len(b) > 1 && b[1] == 0x01 {
		ping.Version = packet.LegacyPing1_4
		if len(b) > 2 && b[2] == 0xFA {
			ping.Version = packet.LegacyPing1_6
		}
	}
	_, _ = d.br.Discard(d.br.Buffered())
	return ping, nil
}

func readVarIntFrame(rd io.Reader) (payload []byte, n int, err error) {
	length, n, err := util.ReadVarIntReturnN(rd)
	if err != nil {
		return nil, n, fmt.Errorf("error reading frame length: %w", err)
	}
	if length == 0 {
		return nil, n, nil
	}
	if length < 0 || length > maxFrameLength {
		return nil, n, fmt.Errorf("received invalid frame length %d", length)
	}
	payload = make([]byte, length)
	m, err := rd.Read(payload)
	if err != nil {
		return nil, n, fmt.Errorf("error reading payload: %w", err)
	}
	return payload, n + m, nil
}

func (d *Decoder) decompress(payload []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.compression {
		return payload, nil
	}
	buf := bytes.NewBuffer(payload)
	claimedUncompressedSize, err := util.ReadVarInt(buf)
	if err != nil {
		return nil, fmt.Errorf("error reading claimed uncompressed size: %w", err)
	}
	if claimedUncompressedSize <= 0 {
		if size := buf.Len(); size > d.compressionThreshold && d.compressionThreshold > 0 {
			return nil, errs.NewSilentErr("uncompressed packet size %d is greater than threshold %d",
				size, d.compressionThreshold)
		}
		return buf.Bytes(), nil
	}
	if claimedUncompressedSize < d.compressionThreshold {
		return nil, errs.NewSilentErr("uncompressed size %d is less than set threshold %d",
			claimedUncompressedSize, d.compressionThreshold)
	}
	if claimedUncompressedSize > UncompressedCap {
		return nil, errs.NewSilentErr("uncompressed size %d exceeds hard threshold of %d",
			claimedUncompressedSize, UncompressedCap)
	}
	if d.zrd == nil {
		d.zrd, err = zlib.NewReader(buf)
		if err != nil {
			return nil, err
		}
	} else if err = d.zrd.(zlib.Resetter).Reset(buf, nil); err != nil {
		return nil, fmt.Errorf("error resetting zlib reader: %w", err)
	}
	decompressed := make([]byte, claimedUncompressedSize)
	if _, err = io.ReadFull(d.zrd, decompressed); err != nil {
		return nil, fmt.Errorf("error decompressing payload: %w", err)
	}
	return decompressed, d.zrd.Close()
}

// DecodeFrame decodes f with the current state and protocol.
// Unknown packet ids return a context without Packet that is relayed as is.
//
// ErrDecoderLeftBytes is returned together with the context when the
// packet did not consume the whole payload.
func (d *Decoder) DecodeFrame(f *Frame) (ctx *proto.PacketContext, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if f.LegacyPing != nil {
		return &proto.PacketContext{
			Direction: d.direction,
			Protocol:  version.Legacy.Protocol,
			PacketID:  legacyPingID,
			Packet:    f.LegacyPing,
		}, nil
	}

	ctx = &proto.PacketContext{
		Direction: d.direction,
		Protocol:  d.registry.Protocol,
		Payload:   f.Payload,
	}
	payload := bytes.NewReader(f.Payload)

	packetID, err := util.ReadVarInt(payload)
	if err != nil {
		return nil, err
	}
	ctx.PacketID = proto.PacketID(packetID)

	ctx.Packet = d.registry.CreatePacket(ctx.PacketID)
	if ctx.Packet == nil {
		return ctx, nil
	}

	err = util.RecoverFunc(func() error {
		return ctx.Packet.Decode(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.Join(err, io.ErrUnexpectedEOF)
		}
		return ctx, errs.NewSilentErr("error decoding packet (type: %T, id: %s, protocol: %s, direction: %s): %w",
			ctx.Packet, ctx.PacketID, ctx.Protocol, ctx.Direction, err)
	}

	if payload.Len() != 0 {
		d.log.V(1).Info("packet decoder did not read all of packet's data",
			"ctx", ctx, "unreadBytes", payload.Len())
		return ctx, proto.ErrDecoderLeftBytes
	}
	if d.log.V(2).Enabled() {
		d.log.V(2).Info("decoded packet", "context", ctx.String())
	}
	return ctx, nil
}
