package proxy

import (
	"strings"

	"github.com/xenoncommunity/xenon/pkg/proto/packet"
)

// ChatMode is the chat visibility a client selected.
type ChatMode int

const (
	ChatShown ChatMode = iota
	ChatCommandsOnly
	ChatHidden
)

// MainHand is the hand a client uses primarily.
type MainHand int

const (
	LeftHand MainHand = iota
	RightHand
)

// Settings are the client settings of a player.
type Settings struct {
	Locale        string
	ViewDistance  int
	ChatMode      ChatMode
	ChatColors    bool
	SkinParts     byte
	MainHand      MainHand
	TextFiltering bool
	ClientListing bool
}

// DefaultSettings are assumed until the client sent its settings.
var DefaultSettings = Settings{
	Locale:        "en_us",
	ViewDistance:  10,
	ChatMode:      ChatShown,
	ChatColors:    true,
	SkinParts:     127,
	MainHand:      RightHand,
	ClientListing: true,
}

func settingsFromPacket(p *packet.ClientSettings) Settings {
	return Settings{
		Locale:        strings.ToLower(p.Locale),
		ViewDistance:  int(p.ViewDistance),
		ChatMode:      ChatMode(p.ChatVisibility),
		ChatColors:    p.ChatColors,
		SkinParts:     p.SkinParts,
		MainHand:      MainHand(p.MainHand),
		TextFiltering: p.TextFiltering,
		ClientListing: p.ClientListing,
	}
}

// Settings returns the client settings of the player or DefaultSettings
// if the client did not send them yet.
func (s *Session) Settings() Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	if s.settings == nil {
		return DefaultSettings
	}
	return *s.settings
}

// Locale returns the locale of the client, empty if not known yet.
func (s *Session) Locale() string {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	if s.settings == nil {
		return ""
	}
	return s.settings.Locale
}

// SettingsKnown reports whether the client sent its settings.
func (s *Session) SettingsKnown() bool {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings != nil
}

// updateSettings stores the settings a client sent and fires
// PlayerSettingsChangedEvent.
func (s *Session) updateSettings(p *packet.ClientSettings) {
	settings := settingsFromPacket(p)
	s.settingsMu.Lock()
	s.settings = &settings
	s.lastSettings = p
	s.settingsMu.Unlock()
	s.proxy.event.Fire(&PlayerSettingsChangedEvent{player: s, settings: settings})
}

// settingsPacket returns the last settings packet of the client. May be nil!
func (s *Session) settingsPacket() *packet.ClientSettings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.lastSettings
}
