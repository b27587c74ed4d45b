package util

import (
	"bytes"
	"strings"

	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

// JsonCodec returns the appropriate codec for the given protocol version.
// This is used to constrain messages sent to older clients.
func JsonCodec(protocol proto.Protocol) codec.Codec {
	if protocol.GreaterEqual(version.Minecraft_1_16) {
		return jsonCodecModern
	}
	return jsonCodecPre116
}

// Marshal marshals a component into JSON.
func Marshal(protocol proto.Protocol, c component.Component) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := JsonCodec(protocol).Marshal(buf, c)
	return buf.Bytes(), err
}

// Unmarshal parses a JSON component.
func Unmarshal(protocol proto.Protocol, j []byte) (component.Component, error) {
	return JsonCodec(protocol).Unmarshal(j)
}

var (
	// Json component codec supporting pre-1.16 clients (downsampled colors, legacy hover)
	jsonCodecPre116 = &codec.Json{}
	// Json component codec for 1.16+ clients
	jsonCodecModern = &codec.Json{
		NoDownsampleColor: true,
		NoLegacyHover:     true,
	}
)

// MarshalPlain marshals a component into plain text.
// A component.Translation is formatted as "{key}".
func MarshalPlain(c component.Component) (string, error) {
	b := new(strings.Builder)
	err := marshalPlain(c, b)
	return b.String(), err
}

var plain = &codec.Plain{}

func marshalPlain(c component.Component, b *strings.Builder) error {
	switch t := c.(type) {
	case *component.Translation:
		b.WriteRune('{')
		b.WriteString(t.Key)
		b.WriteRune('}')
		for _, with := range t.With {
			if err := marshalPlain(with, b); err != nil {
				return err
			}
		}
		return nil
	default:
		return plain.Marshal(b, c)
	}
}
