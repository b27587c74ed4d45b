package netmc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"go.uber.org/atomic"

	"github.com/xenoncommunity/xenon/pkg/internal/serial"
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/codec"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/util/errs"
)

// MinecraftConn is a Minecraft connection of a client or backend server.
// The connection is unusable after Close was called and must be recreated.
type MinecraftConn interface {
	// Context returns the context of the connection.
	// This Context is canceled on Close and can be used to attach more context values to a connection.
	Context() context.Context
	// Close closes the connection, if not already, and calls SessionHandler.Disconnected.
	// It is okay to call this method multiple times.
	Close() error

	// State returns the decode state of the connection.
	State() *state.Registry
	// EncodeState returns the state used for writing packets.
	EncodeState() *state.Registry
	// Protocol returns the protocol version of the connection.
	Protocol() proto.Protocol
	// RemoteAddr returns the remote address of the connection.
	RemoteAddr() net.Addr
	// LocalAddr returns the local address of the connection.
	LocalAddr() net.Addr
	// Executor returns the serial executor packet handlers run on.
	Executor() *serial.Executor
	// SessionHandler returns the session handler of the connection.
	SessionHandler() SessionHandler
	// SetSessionHandler sets the session handler for this connection
	// and calls Deactivated() on the old handler and Activated() on the new handler.
	SetSessionHandler(SessionHandler)

	StateChanger
	PacketWriter
}

// Closed returns true if the connection is closed.
func Closed(c interface{ Context() context.Context }) bool {
	return c.Context().Err() != nil
}

// PacketWriter is the interface for writing packets to the underlying connection.
type PacketWriter interface {
	// WritePacket writes a packet to the connection's
	// write buffer and flushes the complete buffer afterwards.
	//
	// The connection will be closed on any error encountered!
	WritePacket(p proto.Packet) (err error)
	// Write encodes and writes payload to the connection's
	// write buffer and flushes the complete buffer afterwards.
	Write(payload []byte) (err error)

	// BufferPacket writes a packet into the connection's write buffer.
	BufferPacket(packet proto.Packet) (err error)
	// BufferPayload writes payload (containing packet id + data) to the connection's write buffer.
	BufferPayload(payload []byte) (err error)
	// Flush flushes the buffered data to the connection.
	Flush() error
}

// StateChanger updates state of a connection.
// Decode and encode sides switch independently during phase transitions.
type StateChanger interface {
	// SetProtocol switches the connection's protocol version.
	SetProtocol(proto.Protocol)
	// SetState switches both the decode and encode state.
	SetState(state *state.Registry)
	// SetDecodeState switches the state used to read packets.
	SetDecodeState(state *state.Registry)
	// SetEncodeState switches the state used to write packets.
	SetEncodeState(state *state.Registry)
	// SetCompressionThreshold sets the compression threshold of the connection.
	// packet.SetCompression should be sent beforehand.
	SetCompressionThreshold(threshold int) error
	// EnableEncryption takes the secret key negotiated between the client and
	// the server to enable encryption on the connection.
	EnableEncryption(secret []byte) error
}

// SessionHandler handles received packets from the associated connection.
//
// Since connections transition between states packets need to be handled differently,
// this behaviour is divided between sessions by session handlers.
// All methods are called on the connection's executor.
type SessionHandler interface {
	HandlePacket(pc *proto.PacketContext) // Called to handle incoming known or unknown packet.
	Disconnected()                        // Called when connection is closing, to teardown the session.

	Activated()   // Called when the connection is now managed by this SessionHandler.
	Deactivated() // Called when the connection is no longer managed by this SessionHandler.
}

// Options configure a MinecraftConn.
type Options struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CompressionLevel int
	// Executor to run packet handlers on.
	// Backend connections share the executor of their client.
	// A new executor is created if nil.
	Executor *serial.Executor
}

// NewMinecraftConn returns a new MinecraftConn and the func to start the blocking read-loop.
func NewMinecraftConn(
	ctx context.Context,
	base net.Conn,
	direction proto.Direction,
	opts Options,
) (conn MinecraftConn, startReadLoop func()) {
	in := proto.ServerBound  // reads from client are server bound (proxy <- client)
	out := proto.ClientBound // writes to client are client bound (proxy -> client)
	logName := "client"
	if direction == proto.ClientBound { // if is a backend server connection
		in = proto.ClientBound  // reads from backend are client bound (proxy <- backend)
		out = proto.ServerBound // writes to backend are server bound (proxy -> backend)
		logName = "server"
	}

	log := logr.FromContextOrDiscard(ctx).WithName(logName)
	ctx = logr.NewContext(ctx, log)

	exec := opts.Executor
	ownExec := exec == nil
	if ownExec {
		exec = serial.New(log)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &minecraftConn{
		log:         log,
		c:           base,
		ctx:         ctx,
		cancelCtx:   cancel,
		exec:        exec,
		ownExec:     ownExec,
		rd:          newReader(base, in, opts.ReadTimeout, log),
		wr:          newWriter(base, out, opts.WriteTimeout, opts.CompressionLevel, log),
		decodeState: state.Handshake,
		encodeState: state.Handshake,
	}
	c.protocol.Store(int32(version.MinimumVersion.Protocol))
	return c, c.startReadLoop
}

// minecraftConn is a Minecraft connection.
// It may be the connection of client -> proxy or proxy -> backend server.
type minecraftConn struct {
	c   net.Conn    // underlying connection
	log logr.Logger // connections own logger

	rd *reader
	wr *writer

	exec    *serial.Executor
	ownExec bool

	ctx             context.Context // is canceled when connection closed
	cancelCtx       context.CancelFunc
	closeOnce       sync.Once   // Makes sure the connection is closed once, while blocking proceeding calls.
	knownDisconnect atomic.Bool // Silences disconnect (any error is known)

	protocol atomic.Int32 // Connection's protocol version.

	mu          sync.RWMutex // Protects following fields
	decodeState *state.Registry
	encodeState *state.Registry

	sessionHandlerMu struct {
		sync.RWMutex
		SessionHandler // The current session handler.
	}
}

// startReadLoop is the main goroutine of this connection and
// reads frames to pass them further to the current SessionHandler on the executor.
// Close will be called on method return.
func (c *minecraftConn) startReadLoop() {
	// Make sure to close connection on return, if not already closed
	defer func() { _ = c.closeKnown(false) }()

	for !Closed(c) {
		frame, err := c.rd.readFrame()
		if err != nil {
			if errors.Is(err, ErrReadPacketRetry) {
				// Sleep briefly and try again
				time.Sleep(time.Millisecond * 5)
				continue
			}
			return
		}
		if !c.handleFrame(frame) {
			return
		}
	}
}

// handleFrame decodes and handles f on the executor and reports whether reading should continue.
// Decoding happens on the executor so that it observes state changes of previous handlers.
func (c *minecraftConn) handleFrame(f *codec.Frame) (ok bool) {
	ok = true
	err := c.exec.Run(func() {
		if Closed(c) {
			ok = false
			return
		}
		pc, err := c.rd.DecodeFrame(f)
		if err != nil && !errors.Is(err, proto.ErrDecoderLeftBytes) {
			c.log.V(1).Info("error decoding packet, closing connection", "error", err)
			ok = false
			return
		}
		if sh := c.SessionHandler(); sh != nil {
			sh.HandlePacket(pc)
		}
	})
	if err == nil {
		return ok
	}
	if errors.Is(err, serial.ErrClosed) {
		return false
	}
	var p *serial.PanicError
	if errors.As(err, &p) {
		if c.State().State < state.ConfigState {
			c.log.Error(p, "recovered panic in packet handler, closing connection")
			return false
		}
		c.log.Error(p, "recovered panic in packet handler, dropping packet")
		return true
	}
	c.log.Error(err, "unexpected executor error")
	return false
}

func (c *minecraftConn) Context() context.Context { return c.ctx }

func (c *minecraftConn) Executor() *serial.Executor { return c.exec }

func (c *minecraftConn) Flush() error {
	err := c.wr.flush()
	if err != nil {
		c.closeOnErr(err)
	}
	return err
}

func (c *minecraftConn) WritePacket(p proto.Packet) (err error) {
	if Closed(c) {
		return ErrClosedConn
	}
	defer func() { c.closeOnErr(err) }()
	if err = c.BufferPacket(p); err != nil {
		return err
	}
	return c.Flush()
}

func (c *minecraftConn) Write(payload []byte) (err error) {
	if Closed(c) {
		return ErrClosedConn
	}
	defer func() { c.closeOnErr(err) }()
	if _, err = c.wr.Write(payload); err != nil {
		return err
	}
	return c.Flush()
}

func (c *minecraftConn) BufferPacket(packet proto.Packet) (err error) {
	if Closed(c) {
		return ErrClosedConn
	}
	defer func() { c.closeOnErr(err) }()
	_, err = c.wr.WritePacket(packet)
	return err
}

func (c *minecraftConn) BufferPayload(payload []byte) (err error) {
	if Closed(c) {
		return ErrClosedConn
	}
	defer func() { c.closeOnErr(err) }()
	_, err = c.wr.Write(payload)
	return err
}

func (c *minecraftConn) closeOnErr(err error) {
	if err == nil {
		return
	}
	_ = c.Close()
	if errors.Is(err, ErrClosedConn) {
		return // Don't log this error
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && errs.IsConnClosedErr(opErr.Err) {
		return // Don't log this error
	}
	c.log.V(1).Info("error writing packet, closing connection", "error", err)
}

func (c *minecraftConn) Close() error {
	return c.closeKnown(true)
}

// ErrClosedConn indicates a connection is already closed.
var ErrClosedConn = errors.New("connection is closed")

func (c *minecraftConn) closeKnown(markKnown bool) (err error) {
	alreadyClosed := true
	c.closeOnce.Do(func() {
		alreadyClosed = false
		if markKnown {
			c.knownDisconnect.Store(true)
		}

		c.cancelCtx()
		err = c.c.Close()

		// Teardown runs in order with pending handlers of the same executor.
		disconnected := func() {
			if sh := c.SessionHandler(); sh != nil {
				sh.Disconnected()

				if p, ok := sh.(interface{ PlayerLog() logr.Logger }); ok && !c.knownDisconnect.Load() {
					p.PlayerLog().Info("player has disconnected", "sessionHandler", fmt.Sprintf("%T", sh))
				}
			}
			if c.ownExec {
				c.exec.Close()
			}
		}
		if postErr := c.exec.Post(disconnected); postErr != nil {
			disconnected()
		}
	})
	if alreadyClosed {
		err = ErrClosedConn
	}
	return err
}

// CloseWith closes the connection after writing the packet.
func CloseWith(c MinecraftConn, packet proto.Packet) (err error) {
	if Closed(c) {
		return ErrClosedConn
	}
	defer func() {
		err = c.Close()
	}()
	if mc, ok := c.(*minecraftConn); ok {
		mc.knownDisconnect.Store(true)
	}
	_ = c.WritePacket(packet)
	return
}

// CloseWithLegacy answers a legacy ping with the legacy kick format and closes the connection.
func CloseWithLegacy(c MinecraftConn, d *packet.LegacyDisconnect) error {
	if Closed(c) {
		return ErrClosedConn
	}
	if mc, ok := c.(*minecraftConn); ok {
		mc.knownDisconnect.Store(true)
		_ = mc.wr.Sync(func() error {
			_, err := d.WriteTo(mc.wr.writeBuf)
			if err != nil {
				return err
			}
			return mc.wr.writeBuf.Flush()
		})
	}
	return c.Close()
}

// KnownDisconnect returns true if the connection was or will be expectedly closed by the server.
func KnownDisconnect(c MinecraftConn) bool {
	if mc, ok := c.(*minecraftConn); ok {
		return mc.knownDisconnect.Load()
	}
	return false
}

// CloseUnknown closes the connection on for an unexpected disconnect.
// Use MinecraftConn.Close to prevent logging of disconnects that are expected.
func CloseUnknown(c MinecraftConn) error {
	if mc, ok := c.(*minecraftConn); ok {
		return mc.closeKnown(false)
	}
	return c.Close()
}

func (c *minecraftConn) RemoteAddr() net.Addr {
	return c.c.RemoteAddr()
}

func (c *minecraftConn) LocalAddr() net.Addr {
	return c.c.LocalAddr()
}

func (c *minecraftConn) Protocol() proto.Protocol {
	return proto.Protocol(c.protocol.Load())
}

func (c *minecraftConn) SetProtocol(protocol proto.Protocol) {
	c.protocol.Store(int32(protocol))
	c.rd.SetProtocol(protocol)
	c.wr.SetProtocol(protocol)
}

func (c *minecraftConn) State() *state.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decodeState
}

func (c *minecraftConn) EncodeState() *state.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.encodeState
}

func (c *minecraftConn) SetState(s *state.Registry) {
	c.SetDecodeState(s)
	c.SetEncodeState(s)
}

func (c *minecraftConn) SetDecodeState(s *state.Registry) {
	c.mu.Lock()
	c.decodeState = s
	c.rd.SetState(s)
	c.mu.Unlock()
}

func (c *minecraftConn) SetEncodeState(s *state.Registry) {
	c.mu.Lock()
	c.encodeState = s
	c.wr.SetState(s)
	c.mu.Unlock()
}

func (c *minecraftConn) SessionHandler() SessionHandler {
	c.sessionHandlerMu.RLock()
	defer c.sessionHandlerMu.RUnlock()
	return c.sessionHandlerMu.SessionHandler
}

func (c *minecraftConn) SetSessionHandler(handler SessionHandler) {
	c.sessionHandlerMu.Lock()
	defer c.sessionHandlerMu.Unlock()
	if c.sessionHandlerMu.SessionHandler != nil {
		c.sessionHandlerMu.SessionHandler.Deactivated()
	}
	c.sessionHandlerMu.SessionHandler = handler
	handler.Activated()
}

// SetCompressionThreshold sets the compression threshold on the connection.
// You are responsible for sending packet.SetCompression beforehand.
func (c *minecraftConn) SetCompressionThreshold(threshold int) error {
	c.log.V(1).Info("update compression", "threshold", threshold)
	c.rd.Decoder.SetCompressionThreshold(threshold)
	return c.wr.SetCompression(threshold, c.wr.compressionLevel)
}

func (c *minecraftConn) EnableEncryption(secret []byte) error {
	if err := c.rd.enableEncryption(secret); err != nil {
		return err
	}
	return c.wr.enableEncryption(secret)
}

// Conn exports the hidden underlying connection and can be retrieved with interface assertion.
func (c *minecraftConn) Conn() net.Conn {
	return c.c
}

// Assert is a utility func that asserts a connection implements an interface T.
//
// e.g. usage `Assert[GameProfileProvider](connection)`
func Assert[T any](c any) (T, bool) {
	i, ok := c.(T)
	if ok {
		return i, true
	}
	// Conn is a hidden method used to export the underlying connection.
	// Also need to check if underlying implements T.
	underlying, ok := c.(interface{ Conn() net.Conn })
	if !ok {
		var t T
		return t, false
	}
	i, ok = underlying.Conn().(T)
	return i, ok
}

// SendKeepAlive sends a keep-alive packet to the connection if in Play state.
func SendKeepAlive(c interface {
	EncodeState() *state.Registry
	WritePacket(proto.Packet) error
}) error {
	if c.EncodeState() == state.Play {
		return c.WritePacket(&packet.KeepAlive{
			RandomID: int64(randomUint64()),
		})
	}
	return nil
}

func randomUint64() uint64 {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf) // Always succeeds, no need to check error
	return binary.LittleEndian.Uint64(buf)
}
