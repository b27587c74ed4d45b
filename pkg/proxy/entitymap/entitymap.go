// Package entitymap rewrites entity ids in relayed play packets.
//
// A client keeps the entity id it was given by the first backend's JoinGame.
// When switching backends without resending JoinGame the new backend uses a
// different id for the player, so ids are swapped in both directions.
package entitymap

import (
	"bytes"
	"encoding/binary"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

type field uint8

const (
	varIntField field = iota + 1
	intField
	varIntPairField // two consecutive varint ids
	intPairField    // two consecutive int ids
	varIntArrayField
	spawnObjectField
)

// Table is the rewrite table of one protocol version.
type Table struct {
	clientBound map[proto.PacketID]field
	serverBound map[proto.PacketID]field
}

var tables = map[proto.Protocol]*Table{
	version.Minecraft_1_8.Protocol: {
		clientBound: map[proto.PacketID]field{
			0x04: varIntField,      // entity equipment
			0x0A: varIntField,      // use bed
			0x0B: varIntField,      // animation
			0x0C: varIntField,      // spawn player
			0x0D: varIntPairField,  // collect item
			0x0E: spawnObjectField, // spawn object
			0x0F: varIntField,      // spawn mob
			0x10: varIntField,      // spawn painting
			0x11: varIntField,      // spawn experience orb
			0x12: varIntField,      // entity velocity
			0x13: varIntArrayField, // destroy entities
			0x14: varIntField,      // entity
			0x15: varIntField,      // entity relative move
			0x16: varIntField,      // entity look
			0x17: varIntField,      // entity look and relative move
			0x18: varIntField,      // entity teleport
			0x19: varIntField,      // entity head look
			0x1A: intField,         // entity status
			0x1B: intPairField,     // attach entity
			0x1C: varIntField,      // entity metadata
			0x1D: varIntField,      // entity effect
			0x1E: varIntField,      // remove entity effect
			0x20: varIntField,      // entity properties
			0x25: varIntField,      // block break animation
			0x2C: varIntField,      // spawn global entity
			0x43: varIntField,      // camera
			0x49: varIntField,      // update entity nbt
		},
		serverBound: map[proto.PacketID]field{
			0x02: varIntField, // use entity
			0x0B: varIntField, // entity action
		},
	},
}

// ForProtocol returns the rewrite table of protocol or nil if entity ids
// are not rewritten for it.
func ForProtocol(protocol proto.Protocol) *Table {
	return tables[protocol]
}

// RewriteClientBound rewrites a backend to client payload (packet id + data).
// serverID is the player's entity id on the backend, clientID the one the client knows.
func (t *Table) RewriteClientBound(payload []byte, serverID, clientID int) []byte {
	if t == nil {
		return payload
	}
	return rewrite(t.clientBound, payload, serverID, clientID)
}

// RewriteServerBound rewrites a client to backend payload.
func (t *Table) RewriteServerBound(payload []byte, clientID, serverID int) []byte {
	if t == nil {
		return payload
	}
	return rewrite(t.serverBound, payload, clientID, serverID)
}

func swap(id, oldID, newID int) int {
	switch id {
	case oldID:
		return newID
	case newID:
		return oldID
	}
	return id
}

func rewrite(fields map[proto.PacketID]field, payload []byte, oldID, newID int) []byte {
	if oldID == newID {
		return payload
	}
	rd := bytes.NewReader(payload)
	id, err := util.ReadVarInt(rd)
	if err != nil {
		return payload
	}
	f, ok := fields[proto.PacketID(id)]
	if !ok {
		return payload
	}
	head := len(payload) - rd.Len()

	switch f {
	case intField, intPairField:
		n := 1
		if f == intPairField {
			n = 2
		}
		if len(payload) < head+4*n {
			return payload
		}
		out := append([]byte(nil), payload...)
		for i := 0; i < n; i++ {
			off := head + 4*i
			v := int(int32(binary.BigEndian.Uint32(out[off:])))
			binary.BigEndian.PutUint32(out[off:], uint32(int32(swap(v, oldID, newID))))
		}
		return out
	case varIntField, varIntPairField, spawnObjectField:
		n := 1
		if f == varIntPairField {
			n = 2
		}
		out := bytes.NewBuffer(make([]byte, 0, len(payload)+2))
		out.Write(payload[:head])
		for i := 0; i < n; i++ {
			v, err := util.ReadVarInt(rd)
			if err != nil {
				return payload
			}
			_ = util.WriteVarInt(out, swap(v, oldID, newID))
		}
		rest := payload[len(payload)-rd.Len():]
		if f == spawnObjectField {
			rest = rewriteSpawnObjectData(rest, oldID, newID)
		}
		out.Write(rest)
		return out.Bytes()
	case varIntArrayField:
		count, err := util.ReadVarInt(rd)
		if err != nil || count < 0 || count > rd.Len() {
			return payload
		}
		out := bytes.NewBuffer(make([]byte, 0, len(payload)+2))
		out.Write(payload[:head])
		_ = util.WriteVarInt(out, count)
		for i := 0; i < count; i++ {
			v, err := util.ReadVarInt(rd)
			if err != nil {
				return payload
			}
			_ = util.WriteVarInt(out, swap(v, oldID, newID))
		}
		out.Write(payload[len(payload)-rd.Len():])
		return out.Bytes()
	}
	return payload
}

// Arrows (60) and fishing hooks (90) carry the id of their shooter in the
// object data int following type, position and rotation.
func rewriteSpawnObjectData(rest []byte, oldID, newID int) []byte {
	const dataOffset = 1 + 12 + 2
	if len(rest) < dataOffset+4 {
		return rest
	}
	if t := rest[0]; t != 60 && t != 90 {
		return rest
	}
	out := append([]byte(nil), rest...)
	v := int(int32(binary.BigEndian.Uint32(out[dataOffset:])))
	binary.BigEndian.PutUint32(out[dataOffset:], uint32(int32(swap(v, oldID, newID))))
	return out
}
