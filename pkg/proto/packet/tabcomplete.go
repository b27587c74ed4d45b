package packet

import (
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

const maxTabCompleteLen = 32500

type TabCompleteRequest struct {
	Command       string
	TransactionID int   // 1.13+
	AssumeCommand bool  // 1.9 to 1.12.2
	HasPosition   bool  // before 1.13
	Position      int64 // before 1.13
}

func (t *TabCompleteRequest) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	if c.Protocol.GreaterEqual(version.Minecraft_1_13) {
		w.VarInt(t.TransactionID)
		w.String(t.Command)
		return nil
	}
	w.String(t.Command)
	if c.Protocol.GreaterEqual(version.Minecraft_1_9) {
		w.Bool(t.AssumeCommand)
	}
	w.Bool(t.HasPosition)
	if t.HasPosition {
		w.Int64(t.Position)
	}
	return nil
}

func (t *TabCompleteRequest) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	if c.Protocol.GreaterEqual(version.Minecraft_1_13) {
		r.VarInt(&t.TransactionID)
		r.StringMax(&t.Command, maxTabCompleteLen)
		return nil
	}
	r.StringMax(&t.Command, maxTabCompleteLen)
	if c.Protocol.GreaterEqual(version.Minecraft_1_9) {
		r.Bool(&t.AssumeCommand)
	}
	r.Bool(&t.HasPosition)
	if t.HasPosition {
		r.Int64(&t.Position)
	}
	return nil
}

// TabCompleteResponse answers a TabCompleteRequest.
// Before 1.13 only the Text of the offers is sent.
type TabCompleteResponse struct {
	TransactionID int // 1.13+
	Start         int // 1.13+
	Length        int // 1.13+
	Offers        []TabCompleteOffer
}

type TabCompleteOffer struct {
	Text    string
	Tooltip *ComponentHolder // nil-able
}

func (t *TabCompleteResponse) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	if c.Protocol.Lower(version.Minecraft_1_13) {
		w.VarInt(len(t.Offers))
		for _, o := range t.Offers {
			w.String(o.Text)
		}
		return nil
	}
	w.VarInt(t.TransactionID)
	w.VarInt(t.Start)
	w.VarInt(t.Length)
	w.VarInt(len(t.Offers))
	for _, o := range t.Offers {
		w.String(o.Text)
		w.Bool(o.Tooltip != nil)
		if o.Tooltip != nil {
			must(o.Tooltip.Write(wr, c.Protocol))
		}
	}
	return nil
}

func (t *TabCompleteResponse) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	if c.Protocol.Lower(version.Minecraft_1_13) {
		var texts []string
		r.Strings(&texts)
		t.Offers = make([]TabCompleteOffer, 0, len(texts))
		for _, text := range texts {
			t.Offers = append(t.Offers, TabCompleteOffer{Text: text})
		}
		return nil
	}
	r.VarInt(&t.TransactionID)
	r.VarInt(&t.Start)
	r.VarInt(&t.Length)
	var n int
	r.VarInt(&n)
	t.Offers = make([]TabCompleteOffer, 0, min(n, 256))
	for i := 0; i < n; i++ {
		var o TabCompleteOffer
		r.String(&o.Text)
		if r.Ok() {
			o.Tooltip, err = ReadComponentHolder(rd, c.Protocol)
			must(err)
		}
		t.Offers = append(t.Offers, o)
	}
	return nil
}

var (
	_ proto.Packet = (*TabCompleteRequest)(nil)
	_ proto.Packet = (*TabCompleteResponse)(nil)
)
