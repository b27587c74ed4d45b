// Package message holds the localizable templates of user-facing proxy messages.
package message

import (
	"strings"

	"go.minekube.com/common/minecraft/component"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
)

// Key identifies a message template.
type Key string

const (
	OutdatedClient          Key = "outdated_client"
	OutdatedServer          Key = "outdated_server"
	NameInvalid             Key = "name_invalid"
	ProxyFull               Key = "proxy_full"
	AlreadyConnectedProxy   Key = "already_connected_proxy"
	KickMessage             Key = "kick_message"
	OfflineModePlayer       Key = "offline_mode_player"
	MojangFail              Key = "mojang_fail"
	SecureProfileRequired   Key = "secure_profile_required"
	SecureProfileExpired    Key = "secure_profile_expired"
	SecureProfileInvalid    Key = "secure_profile_invalid"
	SecureProfileUnsupport  Key = "secure_profile_unsupported"
	RejectTransfer          Key = "reject_transfer"
	IllegalChatCharacters   Key = "illegal_chat_characters"
	EmptyChat               Key = "empty_chat"
	AlreadyConnected        Key = "already_connected"
	AlreadyConnecting       Key = "already_connecting"
	FallbackLobby           Key = "fallback_lobby"
	FallbackKick            Key = "fallback_kick"
	ServerKickReason        Key = "server_kick"
	ServerWentDown          Key = "server_went_down"
	LostConnection          Key = "lost_connection"
	ConnectTimeout          Key = "timeout"
	ConnectionThrottle      Key = "join_throttle"
	ProxyShutdown           Key = "restart"
	NoServer                Key = "no_server"
	NoServerPermission      Key = "no_server_permission"
	ServerList              Key = "server_list"
	CurrentServer           Key = "current_server"
	ConnectingTo            Key = "connecting"
	CommandPlayersOnly      Key = "command_players_only"
	UserNotOnline           Key = "user_not_online"
	SendUsage               Key = "send_usage"
	SentToServer            Key = "you_got_summoned"
	SendSuccess             Key = "send_success"
	TotalPlayers            Key = "total_players"
	ServerListEntry         Key = "command_list"
	Reloaded                Key = "reload_finished"
	ReloadFailed            Key = "reload_failed"
	TooManyChannels         Key = "too_many_channels"
	ChannelNameTooLong      Key = "channel_name_too_long"
	CommandBlocked          Key = "command_blocked"
	InternalConnectionError Key = "internal_connection_error"
)

// English templates. Colour codes use '&'.
var english = map[Key]string{
	OutdatedClient:          "Outdated client! Please use %s",
	OutdatedServer:          "Outdated server! I'm still on %s",
	NameInvalid:             "Username contains invalid characters.",
	ProxyFull:               "Server is full!",
	AlreadyConnectedProxy:   "You are already connected to this proxy!",
	KickMessage:             "You have been kicked off the proxy.",
	OfflineModePlayer:       "Not authenticated with Minecraft.net",
	MojangFail:              "Error occurred while contacting login servers, are they down?",
	SecureProfileRequired:   "A secure profile is required to join this server.",
	SecureProfileExpired:    "Your secure profile has expired.",
	SecureProfileInvalid:    "Your secure profile is invalid.",
	SecureProfileUnsupport:  "This server requires a client with secure profile support.",
	RejectTransfer:          "&cTransfers are not accepted by this server.",
	IllegalChatCharacters:   "&cillegal characters in chat (%s)",
	EmptyChat:               "Chat message is empty",
	AlreadyConnected:        "&cYou are already connected to this server!",
	AlreadyConnecting:       "&cAlready connecting to this server!",
	FallbackLobby:           "&cCould not connect to a default or fallback server, please try again later: %s",
	FallbackKick:            "&cCould not connect to a default or fallback server, please try again later: %s",
	ServerKickReason:        "&cKicked whilst connecting to %s: %s",
	ServerWentDown:          "&cThe server you were previously on went down, you have been connected to a fallback server",
	LostConnection:          "[Proxy] Lost connection to server.",
	ConnectTimeout:          "Server not reachable (timeout). Offline? Incorrectly configured address/port/firewall?",
	ConnectionThrottle:      "You have logged in too fast, please wait before connecting again.",
	ProxyShutdown:           "[Proxy] Proxy restarting.",
	NoServer:                "&cThe specified server does not exist.",
	NoServerPermission:      "&cYou don't have permission to access this server.",
	ServerList:              "&6You may connect to the following servers at this time: &e%s",
	CurrentServer:           "&6You are currently connected to %s.",
	ConnectingTo:            "&7Connecting you to &b%s&7...",
	CommandPlayersOnly:      "&cOnly in game players can use this command",
	UserNotOnline:           "&cThat user is not online",
	SendUsage:               "&cNot enough arguments, usage: /send <server|player|all|current> <target>",
	SentToServer:            "&6Summoned to %s by %s",
	SendSuccess:             "&aSuccessfully summoned %d player(s) to %s",
	TotalPlayers:            "Total players online: %d",
	ServerListEntry:         "&a[%s] &e(%d): &r%s",
	Reloaded:                "&bXenon has been reloaded.",
	ReloadFailed:            "&cReload failed: %s",
	TooManyChannels:         "Too many registered channels. This limit can be configured in the config.",
	ChannelNameTooLong:      "Channel name too long. This limit can be configured in the config.",
	CommandBlocked:          "&cYou are not allowed to use this command here.",
	InternalConnectionError: "&cAn internal error occurred in your connection.",
}

// German overrides for the most common messages.
var german = map[Key]string{
	OutdatedClient:    "Veralteter Client! Bitte benutze %s",
	OutdatedServer:    "Veralteter Server! Ich bin noch auf %s",
	ProxyFull:         "Der Server ist voll!",
	AlreadyConnected:  "&cDu bist bereits mit diesem Server verbunden!",
	AlreadyConnecting: "&cVerbindung zu diesem Server wird bereits aufgebaut!",
	FallbackKick:      "&cKeine Verbindung zu einem Standard- oder Ausweichserver möglich: %s",
	UserNotOnline:     "&cDieser Spieler ist nicht online",
}

// Catalog renders message templates in the locale of a receiver.
type Catalog struct {
	cat     catalog.Catalog
	langs   []language.Tag
	matcher language.Matcher
}

// NewCatalog returns the catalog with the builtin translations.
// overrides replace English templates, e.g. from configuration.
func NewCatalog(overrides map[Key]string) *Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for k, v := range english {
		if o, ok := overrides[k]; ok {
			v = o
		}
		_ = b.SetString(language.English, string(k), v)
	}
	for k, v := range german {
		_ = b.SetString(language.German, string(k), v)
	}
	langs := []language.Tag{language.English, language.German} // first is the default
	return &Catalog{
		cat:     b,
		langs:   langs,
		matcher: language.NewMatcher(langs),
	}
}

// Default is the catalog without overrides.
var Default = NewCatalog(nil)

// Sprintf renders key in locale. Minecraft locales such as "de_de" are accepted.
func (c *Catalog) Sprintf(locale string, key Key, args ...any) string {
	_, i, _ := c.matcher.Match(parseLocale(locale))
	return message.NewPrinter(c.langs[i], message.Catalog(c.cat)).Sprintf(string(key), args...)
}

// Component renders key as text component with legacy colour codes applied.
func (c *Catalog) Component(locale string, key Key, args ...any) component.Component {
	return componentutil.MustLegacy(c.Sprintf(locale, key, args...))
}

func parseLocale(locale string) language.Tag {
	if locale == "" {
		return language.English
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.English
	}
	return tag
}
