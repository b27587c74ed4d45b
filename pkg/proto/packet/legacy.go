package packet

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/xenoncommunity/xenon/pkg/proto"
)

// LegacyPingVersion is the ping format of a pre-1.7 client.
type LegacyPingVersion int

const (
	LegacyPingBeta LegacyPingVersion = iota // beta 1.8 to 1.3, 0xFE only
	LegacyPing1_4                           // 1.4 and 1.5, 0xFE 0x01
	LegacyPing1_6                           // 1.6, 0xFE 0x01 0xFA with host
)

// LegacyPing is the server list ping of pre-1.7 clients.
// It is detected by the decoder and not part of any state registry.
type LegacyPing struct {
	Version LegacyPingVersion
}

func (p *LegacyPing) Encode(*proto.PacketContext, io.Writer) error {
	return fmt.Errorf("legacy ping can not be encoded")
}

func (p *LegacyPing) Decode(*proto.PacketContext, io.Reader) error { return nil }

// LegacyPingResponse is the server list information sent to a pre-1.7 client.
type LegacyPingResponse struct {
	Protocol      int
	ServerVersion string
	Motd          string // legacy formatted
	Online        int
	Max           int
}

// LegacyDisconnect is the kick packet pre-1.7 clients understand and
// the legacy ping is answered with.
type LegacyDisconnect struct {
	Reason string
}

// FromLegacyPingResponse formats res for the ping version of the client.
func FromLegacyPingResponse(res *LegacyPingResponse, v LegacyPingVersion) *LegacyDisconnect {
	if v == LegacyPingBeta {
		// Beta clients can not display colors or the section sign.
		motd := strings.ReplaceAll(stripLegacyColors(res.Motd), "§", "")
		return &LegacyDisconnect{Reason: fmt.Sprintf("%s§%d§%d", motd, res.Online, res.Max)}
	}
	return &LegacyDisconnect{Reason: strings.Join([]string{
		"§1",
		fmt.Sprint(res.Protocol),
		res.ServerVersion,
		res.Motd,
		fmt.Sprint(res.Online),
		fmt.Sprint(res.Max),
	}, "\x00")}
}

// WriteTo writes the kick packet: 0xFF, the UTF-16 length and the UTF-16BE string.
func (d *LegacyDisconnect) WriteTo(w io.Writer) (int64, error) {
	chars := utf16.Encode([]rune(d.Reason))
	b := make([]byte, 3+len(chars)*2)
	b[0] = 0xFF
	binary.BigEndian.PutUint16(b[1:], uint16(len(chars)))
	for i, c := range chars {
		binary.BigEndian.PutUint16(b[3+i*2:], c)
	}
	n, err := w.Write(b)
	return int64(n), err
}

func stripLegacyColors(s string) string {
	var b strings.Builder
	r := []rune(s)
	for i := 0; i < len(r); i++ {
		if r[i] == '§' && i+1 < len(r) {
			i++
			continue
		}
		b.WriteRune(r[i])
	}
	return b.String()
}

var _ proto.Packet = (*LegacyPing)(nil)
