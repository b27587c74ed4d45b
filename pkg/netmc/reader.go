package netmc

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/codec"
	"github.com/xenoncommunity/xenon/pkg/util/errs"
)

// ErrReadPacketRetry is returned by ReadFrame when the reader should retry reading the next frame.
var ErrReadPacketRetry = errors.New("error reading packet, retry")

type reader struct {
	log         logr.Logger
	readTimeout time.Duration
	c           net.Conn
	readBuf     *bufio.Reader
	*codec.Decoder
}

func newReader(conn net.Conn, direction proto.Direction, readTimeout time.Duration, log logr.Logger) *reader {
	readBuf := bufio.NewReader(conn)
	return &reader{
		c:           conn,
		readTimeout: readTimeout,
		log:         log.WithName("reader"),
		readBuf:     readBuf,
		Decoder:     codec.NewDecoder(readBuf, direction, log),
	}
}

func (r *reader) readFrame() (*codec.Frame, error) {
	if r.readTimeout > 0 {
		_ = r.c.SetReadDeadline(time.Now().Add(r.readTimeout))
	}
	f, err := r.ReadFrame()
	if err != nil {
		if r.handleReadErr(err) {
			r.log.V(1).Info("error reading packet, recovered", "error", err)
			return nil, ErrReadPacketRetry
		}
		r.log.V(1).Info("error reading packet, closing connection", "error", err)
		return nil, err
	}
	return f, nil
}

func (r *reader) handleReadErr(err error) (recoverable bool) {
	if errors.Is(err, syscall.EAGAIN) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			r.log.V(1).Info("read timeout")
			return false
		}
		if errs.IsConnClosedErr(netErr.Err) {
			return false
		}
	}
	if errs.IsSilent(err) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.Canceled) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, syscall.EBADF) ||
		strings.Contains(err.Error(), "use of closed file") {
		return false
	}
	r.log.Error(err, "error reading next packet, unrecoverable and closing connection")
	return false
}

func (r *reader) enableEncryption(secret []byte) error {
	decryptReader, err := codec.NewDecryptReader(r.readBuf, secret)
	if err != nil {
		return err
	}
	r.SetReader(decryptReader)
	return nil
}
