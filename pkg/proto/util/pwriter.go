package util

import (
	"fmt"
	"io"

	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

// PWriter is a panicking writer used by packet encoders.
// Wrap the encode function with Recover to turn panics back into errors.
type PWriter struct {
	w io.Writer
}

func PanicWriter(w io.Writer) *PWriter {
	return &PWriter{w}
}

func (w *PWriter) VarInt(i int)       { must(WriteVarInt(w.w, i)) }
func (w *PWriter) VarLong(i int64)    { must(WriteVarLong(w.w, i)) }
func (w *PWriter) String(s string)    { must(WriteString(w.w, s)) }
func (w *PWriter) Bytes(b []byte)     { must(WriteBytes(w.w, b)) }
func (w *PWriter) RawBytes(b []byte)  { must(WriteRawBytes(w.w, b)) }
func (w *PWriter) Bool(b bool)        { must(WriteBool(w.w, b)) }
func (w *PWriter) Byte(b byte)        { must(WriteByte(w.w, b)) }
func (w *PWriter) Int8(i int8)        { must(WriteInt8(w.w, i)) }
func (w *PWriter) Int16(i int16)      { must(WriteInt16(w.w, i)) }
func (w *PWriter) Uint16(i uint16)    { must(WriteUint16(w.w, i)) }
func (w *PWriter) Int(i int)          { must(WriteInt(w.w, i)) }
func (w *PWriter) Int64(i int64)      { must(WriteInt64(w.w, i)) }
func (w *PWriter) Float32(f float32)  { must(WriteFloat32(w.w, f)) }
func (w *PWriter) Float64(f float64)  { must(WriteFloat64(w.w, f)) }
func (w *PWriter) Strings(a []string) { must(WriteStrings(w.w, a)) }
func (w *PWriter) UUID(id uuid.UUID)  { must(WriteUUID(w.w, id)) }

func (w *PWriter) BoolArray(a []bool) {
	w.VarInt(len(a))
	for _, b := range a {
		w.Bool(b)
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Recover recovers a panic raised by a PReader or PWriter
// and stores it in err.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = recoverErr(r)
	}
}

// RecoverFunc runs fn and returns a panic raised by a PReader or PWriter as error.
func RecoverFunc(fn func() error) (err error) {
	defer Recover(&err)
	return fn()
}

func recoverErr(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return fmt.Errorf("%v", r)
}
