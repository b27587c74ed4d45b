package packet

import (
	"encoding/json"
	"fmt"
	"io"

	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

// ComponentHolder holds a chat component that can be represented
// as JSON (before 1.20.3) or as binary tag (1.20.3 and later).
type ComponentHolder struct {
	Protocol  proto.Protocol
	Component component.Component
	JSON      json.RawMessage
	BinaryTag util.BinaryTag
}

// FromComponent returns a holder for comp or nil if comp is nil.
func FromComponent(comp component.Component) *ComponentHolder {
	if comp == nil {
		return nil
	}
	return &ComponentHolder{Component: comp}
}

// ReadComponentHolder reads a component in the format of protocol.
func ReadComponentHolder(rd io.Reader, protocol proto.Protocol) (*ComponentHolder, error) {
	c := &ComponentHolder{Protocol: protocol}
	if protocol.GreaterEqual(version.Minecraft_1_20_3) {
		tag, err := util.ReadBinaryTag(rd)
		c.BinaryTag = tag
		return c, err
	}
	j, err := util.ReadString(rd)
	c.JSON = json.RawMessage(j)
	return c, err
}

// ReadJSONComponentHolder reads a component that is always JSON encoded,
// like the login disconnect reason.
func ReadJSONComponentHolder(rd io.Reader, protocol proto.Protocol) (*ComponentHolder, error) {
	j, err := util.ReadString(rd)
	return &ComponentHolder{Protocol: protocol, JSON: json.RawMessage(j)}, err
}

// Write writes the component in the format of protocol.
func (c *ComponentHolder) Write(wr io.Writer, protocol proto.Protocol) error {
	if protocol.GreaterEqual(version.Minecraft_1_20_3) {
		bt, err := c.AsBinaryTag()
		if err != nil {
			return err
		}
		return util.WriteBinaryTag(wr, bt)
	}
	return c.WriteJSON(wr, protocol)
}

// WriteJSON writes the component as JSON string.
func (c *ComponentHolder) WriteJSON(wr io.Writer, protocol proto.Protocol) error {
	if c.Protocol == 0 {
		c.Protocol = protocol
	}
	j, err := c.AsJson()
	if err != nil {
		return err
	}
	return util.WriteString(wr, string(j))
}

// AsComponent returns the component, decoding it if necessary.
func (c *ComponentHolder) AsComponent() (component.Component, error) {
	switch {
	case c.Component != nil:
		return c.Component, nil
	case len(c.JSON) != 0 || len(c.BinaryTag.Data) != 0:
		j, err := c.AsJson()
		if err != nil {
			return nil, err
		}
		c.Component, err = util.Unmarshal(c.Protocol, j)
		return c.Component, err
	default:
		return nil, fmt.Errorf("no component found")
	}
}

// AsComponentOrNil returns the component or nil if it could not be decoded.
func (c *ComponentHolder) AsComponentOrNil() component.Component {
	if c == nil {
		return nil
	}
	comp, err := c.AsComponent()
	if err != nil {
		return nil
	}
	return comp
}

// AsJson returns the component as JSON.
func (c *ComponentHolder) AsJson() (json.RawMessage, error) {
	if len(c.JSON) != 0 {
		return c.JSON, nil
	}
	var err error
	if len(c.BinaryTag.Data) != 0 {
		c.JSON, err = util.BinaryTagToJSON(c.BinaryTag)
		return c.JSON, err
	}
	if c.Component == nil {
		return nil, fmt.Errorf("no component found")
	}
	c.JSON, err = util.Marshal(c.Protocol, c.Component)
	return c.JSON, err
}

// AsBinaryTag returns the component as binary tag.
func (c *ComponentHolder) AsBinaryTag() (util.BinaryTag, error) {
	if len(c.BinaryTag.Data) != 0 {
		return c.BinaryTag, nil
	}
	if c.Protocol == 0 {
		c.Protocol = version.Minecraft_1_20_3.Protocol
	}
	j, err := c.AsJson()
	if err != nil {
		return c.BinaryTag, err
	}
	c.BinaryTag, err = util.JsonToBinaryTag(j)
	return c.BinaryTag, err
}
