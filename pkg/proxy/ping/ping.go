// Package ping contains the server list ping response of the proxy.
package ping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
	"github.com/xenoncommunity/xenon/pkg/util/favicon"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

// ServerPing is a 1.7 and above server list ping response.
type ServerPing struct {
	Version     Version         `json:"version,omitempty"`
	Players     *Players        `json:"players,omitempty"`
	Description *component.Text `json:"description"`
	Favicon     favicon.Favicon `json:"favicon,omitempty"`
	ModInfo     *ModInfo        `json:"modinfo,omitempty"` // legacy Forge clients
}

var (
	_ json.Marshaler   = (*ServerPing)(nil)
	_ json.Unmarshaler = (*ServerPing)(nil)
)

func (p *ServerPing) MarshalJSON() ([]byte, error) {
	desc := p.Description
	if desc == nil {
		desc = &component.Text{}
	}
	b := new(bytes.Buffer)
	if err := util.JsonCodec(p.Version.Protocol).Marshal(b, desc); err != nil {
		return nil, err
	}

	type Alias ServerPing
	return json.Marshal(&struct {
		Description json.RawMessage `json:"description"`
		*Alias
	}{
		Description: b.Bytes(),
		Alias:       (*Alias)(p),
	})
}

func (p *ServerPing) UnmarshalJSON(data []byte) error {
	type Alias ServerPing
	out := &struct {
		Alias
		Description json.RawMessage `json:"description"`
	}{}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error decoding json: %w", err)
	}
	desc, err := parseDescription(out.Description)
	if err != nil {
		return fmt.Errorf("error decoding description: %w", err)
	}
	out.Alias.Description = desc
	*p = ServerPing(out.Alias)
	return nil
}

// Backends send the description as object or plain string.
func parseDescription(raw json.RawMessage) (*component.Text, error) {
	s := strings.TrimSpace(string(raw))
	switch {
	case s == "" || s == "null":
		return &component.Text{}, nil
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, err
		}
		return componentutil.ParseTextComponent(str)
	default:
		return componentutil.ParseTextComponent(s)
	}
}

type Version struct {
	Protocol proto.Protocol `json:"protocol"`
	Name     string         `json:"name,omitempty"`
}

type Players struct {
	Online int            `json:"online"`
	Max    int            `json:"max"`
	Sample []SamplePlayer `json:"sample,omitempty"`
}

type SamplePlayer struct {
	Name string    `json:"name"`
	ID   uuid.UUID `json:"id"`
}

// ModInfo advertises a Forge server to legacy Forge clients.
type ModInfo struct {
	Type string `json:"type"`
	Mods []Mod  `json:"modList"`
}

type Mod struct {
	ID      string `json:"modid"`
	Version string `json:"version"`
}

// DefaultModInfo is the mod info of a vanilla proxy accepting Forge clients.
var DefaultModInfo = &ModInfo{Type: "FML", Mods: []Mod{}}
