package packet

import (
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

// Respawn moves a client into another dimension. The proxy sends it
// before 1.20.2 to reset the client world on server switches.
type Respawn struct {
	Dimension            int // before 1.16
	PartialHashedSeed    int64
	Difficulty           int16
	Gamemode             int16
	LevelType            string         // before 1.16
	DataToKeep           byte           // 1.16+, the 1.19.3 bitmask or 1 for keep all before
	DimensionInfo        *DimensionInfo // 1.16+
	PreviousGamemode     int16          // 1.16+
	CurrentDimensionData util.BinaryTag // 1.16.2 to 1.18.2
	LastDeathPosition    *DeathPosition // 1.19+
	PortalCooldown       int            // 1.20+
}

// RespawnFromJoinGame builds the respawn packet that moves a client into
// the world described by joinGame.
func RespawnFromJoinGame(joinGame *JoinGame) *Respawn {
	return &Respawn{
		Dimension:            joinGame.Dimension,
		PartialHashedSeed:    joinGame.PartialHashedSeed,
		Difficulty:           joinGame.Difficulty,
		Gamemode:             joinGame.Gamemode,
		LevelType:            joinGame.LevelType,
		DimensionInfo:        joinGame.DimensionInfo,
		PreviousGamemode:     joinGame.PreviousGamemode,
		CurrentDimensionData: joinGame.DimensionData,
		LastDeathPosition:    joinGame.LastDeathPosition,
		PortalCooldown:       joinGame.PortalCooldown,
	}
}

func (r *Respawn) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
		if hasDimensionData(c.Protocol) {
			must(util.WriteNamedBinaryTag(wr, r.CurrentDimensionData))
			w.String(r.DimensionInfo.RegistryIdentifier)
		} else {
			w.String(r.DimensionInfo.RegistryIdentifier)
			w.String(r.DimensionInfo.LevelName)
		}
	} else {
		w.Int(r.Dimension)
	}
	if c.Protocol.LowerEqual(version.Minecraft_1_13_2) {
		w.Byte(byte(r.Difficulty))
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_15) {
		w.Int64(r.PartialHashedSeed)
	}
	w.Byte(byte(r.Gamemode))
	if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
		w.Byte(byte(r.PreviousGamemode))
		w.Bool(r.DimensionInfo.DebugType)
		w.Bool(r.DimensionInfo.Flat)
		if c.Protocol.Lower(version.Minecraft_1_19_3) {
			w.Bool(r.DataToKeep != 0)
		} else {
			w.Byte(r.DataToKeep)
		}
	} else {
		w.String(r.LevelType)
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19) {
		writeDeathPosition(w, r.LastDeathPosition)
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_20) {
		w.VarInt(r.PortalCooldown)
	}
	return nil
}

func (r *Respawn) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	pr := util.PanicReader(rd)
	if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
		r.DimensionInfo = &DimensionInfo{}
		if hasDimensionData(c.Protocol) {
			r.CurrentDimensionData, err = util.ReadNamedBinaryTag(rd)
			must(err)
			pr.String(&r.DimensionInfo.RegistryIdentifier)
		} else {
			pr.String(&r.DimensionInfo.RegistryIdentifier)
			pr.String(&r.DimensionInfo.LevelName)
		}
	} else {
		pr.Int(&r.Dimension)
	}
	var b byte
	if c.Protocol.LowerEqual(version.Minecraft_1_13_2) {
		pr.Byte(&b)
		r.Difficulty = int16(b)
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_15) {
		pr.Int64(&r.PartialHashedSeed)
	}
	pr.Byte(&b)
	r.Gamemode = int16(int8(b))
	if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
		pr.Byte(&b)
		r.PreviousGamemode = int16(int8(b))
		pr.Bool(&r.DimensionInfo.DebugType)
		pr.Bool(&r.DimensionInfo.Flat)
		if c.Protocol.Lower(version.Minecraft_1_19_3) {
			if pr.Ok() {
				r.DataToKeep = 1
			}
		} else {
			pr.Byte(&r.DataToKeep)
		}
	} else {
		pr.StringMax(&r.LevelType, 16)
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19) {
		r.LastDeathPosition = readDeathPosition(pr)
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_20) {
		pr.VarInt(&r.PortalCooldown)
	}
	return nil
}

var _ proto.Packet = (*Respawn)(nil)
