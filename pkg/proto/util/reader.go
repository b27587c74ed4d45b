package util

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/xenoncommunity/xenon/pkg/util/profile"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

// DefaultMaxStringSize is the default maximum of characters a string may have.
const DefaultMaxStringSize = math.MaxInt16

// DefaultMaxBytesSize is the default maximum length of a byte array.
const DefaultMaxBytesSize = 1 << 21

var errVarIntTooBig = errors.New("decode: VarInt is too big")

func ReadString(rd io.Reader) (string, error) {
	return ReadStringMax(rd, DefaultMaxStringSize)
}

func ReadStringMax(rd io.Reader, max int) (string, error) {
	length, err := ReadVarInt(rd)
	if err != nil {
		return "", err
	}
	return readStringMax(rd, max, length)
}

func readStringMax(rd io.Reader, max, length int) (string, error) {
	if length < 0 {
		return "", errors.New("length of string must not be negative")
	}
	if length > max*3 { // up to 3 bytes per UTF-16 code unit
		return "", fmt.Errorf("bad string length (got %d, max. %d)", length, max)
	}
	str := make([]byte, length)
	if _, err := io.ReadFull(rd, str); err != nil {
		return "", err
	}
	return string(str), nil
}

func ReadStringArray(rd io.Reader) ([]string, error) {
	length, err := ReadVarInt(rd)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("got negative-length string array (%d)", length)
	}
	a := make([]string, 0, min(length, 64))
	for i := 0; i < length; i++ {
		s, err := ReadString(rd)
		if err != nil {
			return nil, err
		}
		a = append(a, s)
	}
	return a, nil
}

func ReadBytes(rd io.Reader) ([]byte, error) {
	return ReadBytesLen(rd, DefaultMaxBytesSize)
}

func ReadBytesLen(rd io.Reader, maxLength int) ([]byte, error) {
	length, err := ReadVarInt(rd)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("decode, bytes length is < 0: %d", length)
	}
	if length > maxLength {
		return nil, fmt.Errorf("decode, bytes length %d is above given maximum: %d", length, maxLength)
	}
	b := make([]byte, length)
	_, err = io.ReadFull(rd, b)
	return b, err
}

// ReadFixedBytes reads exactly n bytes without a length prefix.
func ReadFixedBytes(rd io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := io.ReadFull(rd, b)
	return b, err
}

// ReadRemaining reads all remaining bytes of rd.
// Used for payloads without a length prefix like plugin message data.
func ReadRemaining(rd io.Reader) ([]byte, error) {
	return io.ReadAll(rd)
}

func ReadVarInt(r io.Reader) (int, error) {
	v, _, err := ReadVarIntReturnN(r)
	return v, err
}

// ReadVarIntReturnN reads a VarInt and returns the number of bytes read.
func ReadVarIntReturnN(r io.Reader) (result int, n int, err error) {
	var (
		uresult uint32
		b       byte
	)
	for {
		b, err = ReadUint8(r)
		if err != nil {
			return 0, n, err
		}
		uresult |= uint32(b&0x7F) << uint32(n*7)
		n++
		if n > 5 {
			return 0, n, errVarIntTooBig
		}
		if b&0x80 == 0 {
			break
		}
	}
	return int(int32(uresult)), n, nil
}

func ReadVarLong(r io.Reader) (int64, error) {
	var (
		uresult uint64
		n       int
	)
	for {
		b, err := ReadUint8(r)
		if err != nil {
			return 0, err
		}
		uresult |= uint64(b&0x7F) << uint64(n*7)
		n++
		if n > 10 {
			return 0, errors.New("decode: VarLong is too big")
		}
		if b&0x80 == 0 {
			break
		}
	}
	return int64(uresult), nil
}

func ReadBool(rd io.Reader) (bool, error) {
	v, err := ReadUint8(rd)
	return v != 0, err
}

func ReadInt8(rd io.Reader) (int8, error) {
	v, err := ReadUint8(rd)
	return int8(v), err
}

func ReadUint8(rd io.Reader) (uint8, error) {
	if br, ok := rd.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	_, err := io.ReadFull(rd, b[:])
	return b[0], err
}

func ReadByte(rd io.Reader) (byte, error) {
	return ReadUint8(rd)
}

func ReadInt16(rd io.Reader) (int16, error) {
	v, err := ReadUint16(rd)
	return int16(v), err
}

func ReadUint16(rd io.Reader) (uint16, error) {
	var b [2]byte
	_, err := io.ReadFull(rd, b[:])
	return binary.BigEndian.Uint16(b[:]), err
}

func ReadInt32(rd io.Reader) (int32, error) {
	v, err := ReadUint32(rd)
	return int32(v), err
}

func ReadInt(rd io.Reader) (int, error) {
	i, err := ReadInt32(rd)
	return int(i), err
}

func ReadUint32(rd io.Reader) (uint32, error) {
	var b [4]byte
	_, err := io.ReadFull(rd, b[:])
	return binary.BigEndian.Uint32(b[:]), err
}

func ReadInt64(rd io.Reader) (int64, error) {
	v, err := ReadUint64(rd)
	return int64(v), err
}

func ReadUint64(rd io.Reader) (uint64, error) {
	var b [8]byte
	_, err := io.ReadFull(rd, b[:])
	return binary.BigEndian.Uint64(b[:]), err
}

func ReadFloat32(rd io.Reader) (float32, error) {
	v, err := ReadUint32(rd)
	return math.Float32frombits(v), err
}

func ReadFloat64(rd io.Reader) (float64, error) {
	v, err := ReadUint64(rd)
	return math.Float64frombits(v), err
}

// ReadExtendedForgeShort reads a Forge style extended short
// (2 bytes, or 3 bytes if the highest bit is set).
func ReadExtendedForgeShort(rd io.Reader) (int, error) {
	low16, err := ReadUint16(rd)
	if err != nil {
		return 0, err
	}
	low := int(low16)
	var high int
	if low&0x8000 != 0 {
		low &= 0x7FFF
		h, err := ReadUint8(rd)
		if err != nil {
			return 0, err
		}
		high = int(h)
	}
	return ((high & 0xFF) << 15) | low, nil
}

// ForgeMaxArrayLength is the longest array the extended Forge short can describe.
const ForgeMaxArrayLength = math.MaxInt32 & 0x1FFF9A

// ReadBytes17 reads bytes with the 1.7 style (short) length prefix used by old Forge channels.
func ReadBytes17(rd io.Reader) ([]byte, error) {
	length, err := ReadExtendedForgeShort(rd)
	if err != nil {
		return nil, err
	}
	if length > ForgeMaxArrayLength {
		return nil, fmt.Errorf("cannot receive array > %d (got %d)", ForgeMaxArrayLength, length)
	}
	return ReadFixedBytes(rd, length)
}

func ReadUUID(rd io.Reader) (uuid.UUID, error) {
	b, err := ReadFixedBytes(rd, 16)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.FromBytes(b)
}

func ReadProperties(rd io.Reader) ([]profile.Property, error) {
	size, err := ReadVarInt(rd)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("got negative-length property array (%d)", size)
	}
	props := make([]profile.Property, 0, min(size, 16))
	for i := 0; i < size; i++ {
		var p profile.Property
		if p.Name, err = ReadString(rd); err != nil {
			return nil, err
		}
		if p.Value, err = ReadString(rd); err != nil {
			return nil, err
		}
		signed, err := ReadBool(rd)
		if err != nil {
			return nil, err
		}
		if signed {
			if p.Signature, err = ReadString(rd); err != nil {
				return nil, err
			}
		}
		props = append(props, p)
	}
	return props, nil
}

// ReadUTF reads a string written by Java's DataOutput#writeUTF.
func ReadUTF(rd io.Reader) (string, error) {
	length, err := ReadUint16(rd)
	if err != nil {
		return "", err
	}
	p, err := ReadFixedBytes(rd, int(length))
	return string(p), err
}
