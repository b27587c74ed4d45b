package util

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/xenoncommunity/xenon/pkg/util/profile"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

func WriteString(wr io.Writer, val string) error {
	return WriteBytes(wr, []byte(val))
}

func WriteVarInt(wr io.Writer, val int) error {
	_, err := WriteVarIntN(wr, val)
	return err
}

// WriteVarIntN writes a VarInt and returns the number of bytes written.
func WriteVarIntN(wr io.Writer, val int) (int, error) {
	var buf [5]byte
	n := PutVarInt(buf[:], val)
	return wr.Write(buf[:n])
}

// PutVarInt encodes val into b, which must be at least 5 bytes long,
// and returns the number of bytes written.
func PutVarInt(b []byte, val int) int {
	uval := uint32(val)
	n := 0
	for {
		if uval&^0x7F == 0 {
			b[n] = byte(uval)
			return n + 1
		}
		b[n] = byte(uval&0x7F | 0x80)
		uval >>= 7
		n++
	}
}

// VarIntLen returns the number of bytes val occupies as VarInt.
func VarIntLen(val int) int {
	uval := uint32(val)
	n := 1
	for uval >= 0x80 {
		uval >>= 7
		n++
	}
	return n
}

func WriteVarLong(wr io.Writer, val int64) error {
	var buf [10]byte
	uval := uint64(val)
	n := 0
	for {
		if uval&^0x7F == 0 {
			buf[n] = byte(uval)
			n++
			break
		}
		buf[n] = byte(uval&0x7F | 0x80)
		uval >>= 7
		n++
	}
	_, err := wr.Write(buf[:n])
	return err
}

func WriteBool(wr io.Writer, val bool) error {
	if val {
		return WriteUint8(wr, 1)
	}
	return WriteUint8(wr, 0)
}

func WriteInt8(wr io.Writer, val int8) error {
	return WriteUint8(wr, uint8(val))
}

func WriteUint8(wr io.Writer, val uint8) error {
	if bw, ok := wr.(io.ByteWriter); ok {
		return bw.WriteByte(val)
	}
	_, err := wr.Write([]byte{val})
	return err
}

func WriteByte(wr io.Writer, val byte) error {
	return WriteUint8(wr, val)
}

func WriteInt16(wr io.Writer, val int16) error {
	return WriteUint16(wr, uint16(val))
}

func WriteUint16(wr io.Writer, val uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], val)
	_, err := wr.Write(b[:])
	return err
}

func WriteInt32(wr io.Writer, val int32) error {
	return WriteUint32(wr, uint32(val))
}

func WriteInt(wr io.Writer, val int) error {
	return WriteInt32(wr, int32(val))
}

func WriteUint32(wr io.Writer, val uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], val)
	_, err := wr.Write(b[:])
	return err
}

func WriteInt64(wr io.Writer, val int64) error {
	return WriteUint64(wr, uint64(val))
}

func WriteUint64(wr io.Writer, val uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], val)
	_, err := wr.Write(b[:])
	return err
}

func WriteFloat32(wr io.Writer, val float32) error {
	return WriteUint32(wr, math.Float32bits(val))
}

func WriteFloat64(wr io.Writer, val float64) error {
	return WriteUint64(wr, math.Float64bits(val))
}

func WriteBytes(wr io.Writer, b []byte) error {
	if err := WriteVarInt(wr, len(b)); err != nil {
		return err
	}
	_, err := wr.Write(b)
	return err
}

// WriteRawBytes writes b without a length prefix.
func WriteRawBytes(wr io.Writer, b []byte) error {
	_, err := wr.Write(b)
	return err
}

func WriteStrings(wr io.Writer, a []string) error {
	if err := WriteVarInt(wr, len(a)); err != nil {
		return err
	}
	for _, s := range a {
		if err := WriteString(wr, s); err != nil {
			return err
		}
	}
	return nil
}

func WriteUUID(wr io.Writer, id uuid.UUID) error {
	_, err := wr.Write(id[:])
	return err
}

func WriteProperties(wr io.Writer, properties []profile.Property) error {
	if err := WriteVarInt(wr, len(properties)); err != nil {
		return err
	}
	for _, p := range properties {
		if err := WriteString(wr, p.Name); err != nil {
			return err
		}
		if err := WriteString(wr, p.Value); err != nil {
			return err
		}
		if err := WriteBool(wr, p.Signature != ""); err != nil {
			return err
		}
		if p.Signature != "" {
			if err := WriteString(wr, p.Signature); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteBytes17 writes b with the 1.7 style (short) length prefix used by old Forge channels.
func WriteBytes17(wr io.Writer, b []byte, allowExtended bool) error {
	if allowExtended {
		if len(b) > ForgeMaxArrayLength {
			return fmt.Errorf("cannot write byte array longer than %d (got %d bytes)",
				ForgeMaxArrayLength, len(b))
		}
	} else if len(b) > math.MaxInt16 {
		return fmt.Errorf("cannot write byte array longer than %d (got %d bytes)",
			math.MaxInt16, len(b))
	}
	if err := WriteExtendedForgeShort(wr, len(b)); err != nil {
		return err
	}
	_, err := wr.Write(b)
	return err
}

func WriteExtendedForgeShort(wr io.Writer, toWrite int) error {
	low := toWrite & 0x7FFF
	high := (toWrite & 0x7F8000) >> 15
	if high != 0 {
		low |= 0x8000
	}
	if err := WriteUint16(wr, uint16(low)); err != nil {
		return err
	}
	if high != 0 {
		return WriteUint8(wr, uint8(high))
	}
	return nil
}

// WriteUTF writes s like Java's DataOutput#writeUTF.
func WriteUTF(wr io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string too long for UTF (%d bytes)", len(s))
	}
	if err := WriteUint16(wr, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(wr, s)
	return err
}
