package util

import (
	"io"

	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

// PReader is a panicking reader used by packet decoders.
// Wrap the decode function with Recover to turn panics back into errors.
type PReader struct {
	r io.Reader
}

func PanicReader(r io.Reader) *PReader {
	return &PReader{r}
}

func (r *PReader) VarInt(i *int) {
	v, err := ReadVarInt(r.r)
	must(err)
	*i = v
}

func (r *PReader) VarLong(i *int64) {
	v, err := ReadVarLong(r.r)
	must(err)
	*i = v
}

func (r *PReader) String(s *string) {
	v, err := ReadString(r.r)
	must(err)
	*s = v
}

func (r *PReader) StringMax(s *string, max int) {
	v, err := ReadStringMax(r.r, max)
	must(err)
	*s = v
}

func (r *PReader) Bytes(b *[]byte) {
	v, err := ReadBytes(r.r)
	must(err)
	*b = v
}

func (r *PReader) BytesMax(b *[]byte, max int) {
	v, err := ReadBytesLen(r.r, max)
	must(err)
	*b = v
}

// FixedBytes reads exactly n bytes.
func (r *PReader) FixedBytes(b *[]byte, n int) {
	v, err := ReadFixedBytes(r.r, n)
	must(err)
	*b = v
}

// Remaining reads all bytes left in the reader.
func (r *PReader) Remaining(b *[]byte) {
	v, err := ReadRemaining(r.r)
	must(err)
	*b = v
}

func (r *PReader) Bool(b *bool) {
	v, err := ReadBool(r.r)
	must(err)
	*b = v
}

// Ok reads a bool, commonly used as presence marker of an optional field.
func (r *PReader) Ok() bool {
	var ok bool
	r.Bool(&ok)
	return ok
}

func (r *PReader) Byte(b *byte) {
	v, err := ReadByte(r.r)
	must(err)
	*b = v
}

func (r *PReader) Int8(i *int8) {
	v, err := ReadInt8(r.r)
	must(err)
	*i = v
}

func (r *PReader) Int16(i *int16) {
	v, err := ReadInt16(r.r)
	must(err)
	*i = v
}

func (r *PReader) Uint16(i *uint16) {
	v, err := ReadUint16(r.r)
	must(err)
	*i = v
}

func (r *PReader) Int(i *int) {
	v, err := ReadInt(r.r)
	must(err)
	*i = v
}

func (r *PReader) Int64(i *int64) {
	v, err := ReadInt64(r.r)
	must(err)
	*i = v
}

func (r *PReader) Float32(f *float32) {
	v, err := ReadFloat32(r.r)
	must(err)
	*f = v
}

func (r *PReader) Float64(f *float64) {
	v, err := ReadFloat64(r.r)
	must(err)
	*f = v
}

func (r *PReader) Strings(a *[]string) {
	v, err := ReadStringArray(r.r)
	must(err)
	*a = v
}

func (r *PReader) UUID(id *uuid.UUID) {
	v, err := ReadUUID(r.r)
	must(err)
	*id = v
}
