package packet

import (
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

// JoinGame is the first play packet a backend sends (before 1.20.2 it
// also carries the registries). Registries and dimension data are kept
// as raw binary tags.
type JoinGame struct {
	EntityID          int
	Hardcore          bool
	Gamemode          int16
	PreviousGamemode  int16 // 1.16+
	Dimension         int   // before 1.16
	LevelNames        []string
	Registry          util.BinaryTag // 1.16+
	DimensionData     util.BinaryTag // 1.16.2 to 1.18.2
	DimensionInfo     *DimensionInfo // 1.16+
	PartialHashedSeed int64          // 1.15+
	Difficulty        int16          // 1.13.2 and before
	MaxPlayers        int
	LevelType         string // before 1.16
	ViewDistance      int    // 1.14+
	SimulationDist    int    // 1.18+
	ReducedDebugInfo  bool
	ShowRespawnScreen bool           // 1.15+
	LastDeathPosition *DeathPosition // 1.19+
	PortalCooldown    int            // 1.20+
}

// DimensionInfo identifies the dimension a player spawns in (1.16+).
type DimensionInfo struct {
	RegistryIdentifier string // dimension type (or world name 1.16.2 to 1.18.2)
	LevelName          string // empty 1.16.2 to 1.18.2
	Flat               bool
	DebugType          bool
}

// DeathPosition is the location a player last died at (1.19+).
type DeathPosition struct {
	Key   string
	Value int64
}

func hasDimensionData(protocol proto.Protocol) bool {
	return protocol.Between(version.Minecraft_1_16_2, version.Minecraft_1_19)
}

func (j *JoinGame) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.Int(j.EntityID)
	if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
		if c.Protocol.GreaterEqual(version.Minecraft_1_16_2) {
			w.Bool(j.Hardcore)
			w.Byte(byte(j.Gamemode))
		} else {
			gamemode := byte(j.Gamemode)
			if j.Hardcore {
				gamemode |= 0x08
			}
			w.Byte(gamemode)
		}
		w.Byte(byte(j.PreviousGamemode))
		w.Strings(j.LevelNames)
		must(util.WriteNamedBinaryTag(wr, j.Registry))
		if hasDimensionData(c.Protocol) {
			must(util.WriteNamedBinaryTag(wr, j.DimensionData))
			w.String(j.DimensionInfo.RegistryIdentifier)
		} else {
			w.String(j.DimensionInfo.RegistryIdentifier)
			w.String(j.DimensionInfo.LevelName)
		}
		w.Int64(j.PartialHashedSeed)
		if c.Protocol.GreaterEqual(version.Minecraft_1_16_2) {
			w.VarInt(j.MaxPlayers)
		} else {
			w.Byte(byte(j.MaxPlayers))
		}
		w.VarInt(j.ViewDistance)
		if c.Protocol.GreaterEqual(version.Minecraft_1_18) {
			w.VarInt(j.SimulationDist)
		}
		w.Bool(j.ReducedDebugInfo)
		w.Bool(j.ShowRespawnScreen)
		w.Bool(j.DimensionInfo.DebugType)
		w.Bool(j.DimensionInfo.Flat)
		if c.Protocol.GreaterEqual(version.Minecraft_1_19) {
			writeDeathPosition(w, j.LastDeathPosition)
		}
		if c.Protocol.GreaterEqual(version.Minecraft_1_20) {
			w.VarInt(j.PortalCooldown)
		}
		return nil
	}

	gamemode := byte(j.Gamemode)
	if j.Hardcore {
		gamemode |= 0x08
	}
	w.Byte(gamemode)
	if c.Protocol.GreaterEqual(version.Minecraft_1_9_1) {
		w.Int(j.Dimension)
	} else {
		w.Int8(int8(j.Dimension))
	}
	if c.Protocol.LowerEqual(version.Minecraft_1_13_2) {
		w.Byte(byte(j.Difficulty))
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_15) {
		w.Int64(j.PartialHashedSeed)
	}
	w.Byte(byte(j.MaxPlayers))
	w.String(j.LevelType)
	if c.Protocol.GreaterEqual(version.Minecraft_1_14) {
		w.VarInt(j.ViewDistance)
	}
	w.Bool(j.ReducedDebugInfo)
	if c.Protocol.GreaterEqual(version.Minecraft_1_15) {
		w.Bool(j.ShowRespawnScreen)
	}
	return nil
}

func (j *JoinGame) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.Int(&j.EntityID)
	var b byte
	if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
		if c.Protocol.GreaterEqual(version.Minecraft_1_16_2) {
			r.Bool(&j.Hardcore)
			r.Byte(&b)
			j.Gamemode = int16(int8(b))
		} else {
			r.Byte(&b)
			j.Hardcore = b&0x08 != 0
			j.Gamemode = int16(int8(b &^ 0x08))
		}
		r.Byte(&b)
		j.PreviousGamemode = int16(int8(b))
		r.Strings(&j.LevelNames)
		j.Registry, err = util.ReadNamedBinaryTag(rd)
		must(err)
		j.DimensionInfo = &DimensionInfo{}
		if hasDimensionData(c.Protocol) {
			j.DimensionData, err = util.ReadNamedBinaryTag(rd)
			must(err)
			r.String(&j.DimensionInfo.RegistryIdentifier)
		} else {
			r.String(&j.DimensionInfo.RegistryIdentifier)
			r.String(&j.DimensionInfo.LevelName)
		}
		r.Int64(&j.PartialHashedSeed)
		if c.Protocol.GreaterEqual(version.Minecraft_1_16_2) {
			r.VarInt(&j.MaxPlayers)
		} else {
			r.Byte(&b)
			j.MaxPlayers = int(b)
		}
		r.VarInt(&j.ViewDistance)
		if c.Protocol.GreaterEqual(version.Minecraft_1_18) {
			r.VarInt(&j.SimulationDist)
		}
		r.Bool(&j.ReducedDebugInfo)
		r.Bool(&j.ShowRespawnScreen)
		r.Bool(&j.DimensionInfo.DebugType)
		r.Bool(&j.DimensionInfo.Flat)
		if c.Protocol.GreaterEqual(version.Minecraft_1_19) {
			j.LastDeathPosition = readDeathPosition(r)
		}
		if c.Protocol.GreaterEqual(version.Minecraft_1_20) {
			r.VarInt(&j.PortalCooldown)
		}
		return nil
	}

	r.Byte(&b)
	j.Hardcore = b&0x08 != 0
	j.Gamemode = int16(b &^ 0x08)
	if c.Protocol.GreaterEqual(version.Minecraft_1_9_1) {
		r.Int(&j.Dimension)
	} else {
		var d int8
		r.Int8(&d)
		j.Dimension = int(d)
	}
	if c.Protocol.LowerEqual(version.Minecraft_1_13_2) {
		r.Byte(&b)
		j.Difficulty = int16(b)
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_15) {
		r.Int64(&j.PartialHashedSeed)
	}
	r.Byte(&b)
	j.MaxPlayers = int(b)
	r.StringMax(&j.LevelType, 16)
	if c.Protocol.GreaterEqual(version.Minecraft_1_14) {
		r.VarInt(&j.ViewDistance)
	}
	r.Bool(&j.ReducedDebugInfo)
	if c.Protocol.GreaterEqual(version.Minecraft_1_15) {
		r.Bool(&j.ShowRespawnScreen)
	}
	return nil
}

func readDeathPosition(r *util.PReader) *DeathPosition {
	if !r.Ok() {
		return nil
	}
	p := new(DeathPosition)
	r.String(&p.Key)
	r.Int64(&p.Value)
	return p
}

func writeDeathPosition(w *util.PWriter, p *DeathPosition) {
	w.Bool(p != nil)
	if p != nil {
		w.String(p.Key)
		w.Int64(p.Value)
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

var _ proto.Packet = (*JoinGame)(nil)
