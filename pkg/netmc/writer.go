package netmc

import (
	"bufio"
	"net"
	"time"

	"github.com/go-logr/logr"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/codec"
)

type writer struct {
	log              logr.Logger
	writeTimeout     time.Duration
	compressionLevel int
	c                net.Conn
	writeBuf         *bufio.Writer
	*codec.Encoder
}

func newWriter(conn net.Conn, direction proto.Direction, writeTimeout time.Duration, compressionLevel int, log logr.Logger) *writer {
	writeBuf := bufio.NewWriter(conn)
	return &writer{
		log:              log.WithName("writer"),
		writeTimeout:     writeTimeout,
		compressionLevel: compressionLevel,
		c:                conn,
		writeBuf:         writeBuf,
		Encoder:          codec.NewEncoder(writeBuf, direction, log),
	}
}

func (w *writer) flush() error {
	if w.writeTimeout > 0 {
		if err := w.c.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
			return err
		}
	}
	// Flush in sync with the encoder to not flush a partially written frame.
	return w.Sync(w.writeBuf.Flush)
}

func (w *writer) enableEncryption(secret []byte) error {
	encryptWriter, err := codec.NewEncryptWriter(w.writeBuf, secret)
	if err != nil {
		return err
	}
	w.SetWriter(encryptWriter)
	return nil
}
