package packet

import (
	"errors"
	"fmt"
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/proxy/crypto"
	"github.com/xenoncommunity/xenon/pkg/util/errs"
	"github.com/xenoncommunity/xenon/pkg/util/profile"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

type ServerLogin struct {
	Username  string
	PlayerKey *crypto.IdentifiedKey // 1.19 to 1.19.2
	HolderID  uuid.UUID             // 1.19.1+
}

var errEmptyUsername = errs.NewSilentErr("empty username")

const maxUsernameLen = 16

func (s *ServerLogin) Encode(c *proto.PacketContext, wr io.Writer) error {
	if s.Username == "" {
		return errors.New("username not specified")
	}
	err := util.WriteString(wr, s.Username)
	if err != nil {
		return err
	}
	if c.Protocol.Lower(version.Minecraft_1_19) {
		return nil
	}
	if c.Protocol.Lower(version.Minecraft_1_19_3) {
		if err = util.WriteBool(wr, s.PlayerKey != nil); err != nil {
			return err
		}
		if s.PlayerKey != nil {
			if err = crypto.WritePlayerKey(wr, s.PlayerKey); err != nil {
				return err
			}
		}
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_2) {
		return util.WriteUUID(wr, s.HolderID)
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19_1) {
		ok := s.HolderID != uuid.Nil
		if err = util.WriteBool(wr, ok); err != nil {
			return err
		}
		if ok {
			return util.WriteUUID(wr, s.HolderID)
		}
	}
	return nil
}

func (s *ServerLogin) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	s.Username, err = util.ReadStringMax(rd, maxUsernameLen)
	if err != nil {
		return err
	}
	if len(s.Username) == 0 {
		return errEmptyUsername
	}
	s.PlayerKey = nil
	if c.Protocol.Lower(version.Minecraft_1_19) {
		return nil
	}
	if c.Protocol.Lower(version.Minecraft_1_19_3) {
		ok, err := util.ReadBool(rd)
		if err != nil {
			return err
		}
		if ok {
			revision := crypto.LinkedV2
			if c.Protocol.Lower(version.Minecraft_1_19_1) {
				revision = crypto.GenericV1
			}
			if s.PlayerKey, err = crypto.ReadPlayerKey(rd, revision); err != nil {
				return err
			}
		}
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_2) {
		s.HolderID, err = util.ReadUUID(rd)
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19_1) {
		ok, err := util.ReadBool(rd)
		if err != nil {
			return err
		}
		if ok {
			s.HolderID, err = util.ReadUUID(rd)
			return err
		}
	}
	return nil
}

type EncryptionRequest struct {
	ServerID           string
	PublicKey          []byte
	VerifyToken        []byte
	ShouldAuthenticate bool // 1.20.5+
}

func (e *EncryptionRequest) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.String(e.ServerID)
	w.Bytes(e.PublicKey)
	w.Bytes(e.VerifyToken)
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_5) {
		w.Bool(e.ShouldAuthenticate)
	}
	return nil
}

func (e *EncryptionRequest) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.StringMax(&e.ServerID, 20)
	r.BytesMax(&e.PublicKey, 256)
	r.BytesMax(&e.VerifyToken, 16)
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_5) {
		r.Bool(&e.ShouldAuthenticate)
	}
	return nil
}

type EncryptionResponse struct {
	SharedSecret []byte
	VerifyToken  []byte
	Salt         *int64 // 1.19 to 1.19.2, set when the client signed the nonce
}

func (e *EncryptionResponse) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.Bytes(e.SharedSecret)
	if c.Protocol.GreaterEqual(version.Minecraft_1_19) && c.Protocol.Lower(version.Minecraft_1_19_3) {
		w.Bool(e.Salt == nil) // true means verify token follows
		if e.Salt != nil {
			w.Int64(*e.Salt)
		}
	}
	w.Bytes(e.VerifyToken)
	return nil
}

func (e *EncryptionResponse) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.BytesMax(&e.SharedSecret, 128)
	if c.Protocol.GreaterEqual(version.Minecraft_1_19) && c.Protocol.Lower(version.Minecraft_1_19_3) {
		if !r.Ok() {
			var salt int64
			r.Int64(&salt)
			e.Salt = &salt
		}
	}
	limit := 256
	if c.Protocol.Lower(version.Minecraft_1_19) {
		limit = 128
	}
	r.BytesMax(&e.VerifyToken, limit)
	return nil
}

type ServerLoginSuccess struct {
	UUID                uuid.UUID
	Username            string
	Properties          []profile.Property // 1.19+
	StrictErrorHandling bool               // 1.20.5 and 1.21
}

func (s *ServerLoginSuccess) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	if s.Username == "" {
		return fmt.Errorf("no username specified")
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
		err = util.WriteUUID(wr, s.UUID)
	} else {
		err = util.WriteString(wr, s.UUID.String())
	}
	if err != nil {
		return err
	}
	if err = util.WriteString(wr, s.Username); err != nil {
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19) {
		if err = util.WriteProperties(wr, s.Properties); err != nil {
			return err
		}
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_5) {
		return util.WriteBool(wr, s.StrictErrorHandling)
	}
	return nil
}

func (s *ServerLoginSuccess) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
		s.UUID, err = util.ReadUUID(rd)
	} else {
		var uuidString string
		if uuidString, err = util.ReadStringMax(rd, 36); err != nil {
			return err
		}
		s.UUID, err = uuid.Parse(uuidString)
		if err != nil {
			return fmt.Errorf("error parsing uuid: %w", err)
		}
	}
	if err != nil {
		return err
	}
	if s.Username, err = util.ReadStringMax(rd, maxUsernameLen); err != nil {
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19) {
		if s.Properties, err = util.ReadProperties(rd); err != nil {
			return err
		}
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_5) {
		s.StrictErrorHandling, err = util.ReadBool(rd)
	}
	return err
}

type SetCompression struct {
	Threshold int
}

func (s *SetCompression) Encode(_ *proto.PacketContext, wr io.Writer) error {
	return util.WriteVarInt(wr, s.Threshold)
}

func (s *SetCompression) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	s.Threshold, err = util.ReadVarInt(rd)
	return
}

type LoginPluginMessage struct {
	ID      int
	Channel string
	Data    []byte
}

func (l *LoginPluginMessage) Encode(_ *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.VarInt(l.ID)
	w.String(l.Channel)
	w.RawBytes(l.Data)
	return nil
}

func (l *LoginPluginMessage) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.VarInt(&l.ID)
	r.String(&l.Channel)
	r.Remaining(&l.Data)
	return nil
}

type LoginPluginResponse struct {
	ID      int
	Success bool
	Data    []byte
}

func (l *LoginPluginResponse) Encode(_ *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.VarInt(l.ID)
	w.Bool(l.Success)
	w.RawBytes(l.Data)
	return nil
}

func (l *LoginPluginResponse) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.VarInt(&l.ID)
	r.Bool(&l.Success)
	r.Remaining(&l.Data)
	return nil
}

// LoginAcknowledged is sent by the client after the login success (1.20.2+)
// and switches the connection into the config state.
type LoginAcknowledged struct{}

func (LoginAcknowledged) Encode(*proto.PacketContext, io.Writer) error { return nil }
func (LoginAcknowledged) Decode(*proto.PacketContext, io.Reader) error { return nil }

var (
	_ proto.Packet = (*ServerLogin)(nil)
	_ proto.Packet = (*EncryptionRequest)(nil)
	_ proto.Packet = (*EncryptionResponse)(nil)
	_ proto.Packet = (*ServerLoginSuccess)(nil)
	_ proto.Packet = (*SetCompression)(nil)
	_ proto.Packet = (*LoginPluginMessage)(nil)
	_ proto.Packet = (*LoginPluginResponse)(nil)
	_ proto.Packet = (*LoginAcknowledged)(nil)
)
