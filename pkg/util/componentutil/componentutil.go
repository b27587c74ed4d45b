// Package componentutil parses user configured texts into components.
package componentutil

import (
	"errors"
	"strings"

	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec/legacy"

	protoutil "github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

// ParseTextComponent parses s as JSON text component if it starts with '{'
// and as legacy text using '&' or '§' color codes otherwise.
func ParseTextComponent(s string) (t *component.Text, err error) {
	var c component.Component
	if strings.HasPrefix(s, "{") {
		c, err = protoutil.JsonCodec(version.MaximumVersion.Protocol).Unmarshal([]byte(s))
	} else {
		c, err = FromLegacy(s)
	}
	if err != nil {
		return nil, err
	}
	t, ok := c.(*component.Text)
	if !ok {
		return nil, errors.New("invalid text component")
	}
	return t, nil
}

// FromLegacy parses s using '&' as well as '§' as color code prefix.
func FromLegacy(s string) (component.Component, error) {
	s = strings.ReplaceAll(s, "&", "§")
	return (&legacy.Legacy{}).Unmarshal([]byte(s))
}

// MustLegacy is like FromLegacy but falls back to the plain text on error.
func MustLegacy(s string) component.Component {
	c, err := FromLegacy(s)
	if err != nil {
		return &component.Text{Content: s}
	}
	return c
}

// Plain returns the text content of c and its children without formatting.
func Plain(c component.Component) string {
	b := new(strings.Builder)
	var walk func(component.Component)
	walk = func(c component.Component) {
		t, ok := c.(*component.Text)
		if !ok {
			return
		}
		b.WriteString(t.Content)
		for _, e := range t.Extra {
			walk(e)
		}
	}
	walk(c)
	return b.String()
}
