package uuid

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"

	guuid "github.com/google/uuid"
)

type UUID guuid.UUID

// Nil is the empty UUID, all zeros.
var Nil = UUID(guuid.Nil)

// String returns the string form of uuid,
// xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx , or "" if uuid is invalid.
func (i UUID) String() string {
	return guuid.UUID(i).String()
}

// Undashed returns the undashed string form of the uuid.
func (i UUID) Undashed() string {
	return hex.EncodeToString(i[:])
}

// MostSignificantBits returns the upper 64 bits of the uuid.
func (i UUID) MostSignificantBits() uint64 {
	return binary.BigEndian.Uint64(i[:8])
}

// LeastSignificantBits returns the lower 64 bits of the uuid.
func (i UUID) LeastSignificantBits() uint64 {
	return binary.BigEndian.Uint64(i[8:])
}

func (i UUID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(i.String())), nil
}

func (i *UUID) UnmarshalJSON(b []byte) (err error) {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("expected quoted uuid, but got %s: %w", b, err)
	}
	*i, err = Parse(s)
	return
}

// Parse decodes s into a UUID or returns an error.
// The dashed and the undashed (Mojang API) forms are accepted.
func Parse(s string) (UUID, error) {
	id, err := guuid.Parse(s)
	return UUID(id), err
}

// MustParse is like Parse but panics if s cannot be parsed.
func MustParse(s string) UUID {
	return UUID(guuid.MustParse(s))
}

// FromBytes creates a new UUID from a byte slice. Returns an error if the slice
// does not have a length of 16. The bytes are copied from the slice.
func FromBytes(b []byte) (UUID, error) {
	id, err := guuid.FromBytes(b)
	return UUID(id), err
}

// OfflinePlayerUUID returns the name based (version 3) uuid
// of "OfflinePlayer:<username>" used by servers in offline mode.
func OfflinePlayerUUID(username string) UUID {
	const version = 3
	id := md5.Sum([]byte("OfflinePlayer:" + username))
	id[6] = (id[6] & 0x0f) | uint8((version&0xf)<<4)
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant
	return id
}

// New creates a new random UUID or panics.
func New() UUID { return UUID(guuid.New()) }
