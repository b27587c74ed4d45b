package packet

import (
	"fmt"
	"io"
	"net"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/util/netutil"
)

// Transfer tells a 1.20.5+ client to reconnect to another host.
type Transfer struct {
	Host string
	Port int
}

// Addr formats the host and port into a net.Addr.
// If the host is empty, the second return value is false.
func (t *Transfer) Addr() (net.Addr, bool) {
	if t.Host == "" {
		return nil, false
	}
	return netutil.NewAddr(fmt.Sprintf("%s:%d", t.Host, t.Port), "tcp"), true
}

func (t *Transfer) Encode(_ *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteString(wr, t.Host); err != nil {
		return err
	}
	return util.WriteVarInt(wr, t.Port)
}

func (t *Transfer) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	if t.Host, err = util.ReadString(rd); err != nil {
		return err
	}
	t.Port, err = util.ReadVarInt(rd)
	return err
}

var _ proto.Packet = (*Transfer)(nil)
