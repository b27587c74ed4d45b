// Package whitelist restricts the commands players may use per
// permission group and server.
package whitelist

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/proxy"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
)

// Name is the name of the module in xenon.modules.enables.
const Name = "commandwhitelist"

// Plugin blocks commands not whitelisted for any group of a player.
var Plugin = proxy.Plugin{
	Name: Name,
	Init: func(ctx context.Context, p *proxy.Proxy) error {
		log := logr.FromContextOrDiscard(ctx).WithName(Name)
		event.Subscribe(p.Event(), 100, func(e *proxy.ChatEvent) {
			onChat(p, log, e)
		})
		event.Subscribe(p.Event(), -100, func(e *proxy.TabCompleteEvent) {
			onTabComplete(p, e)
		})
		return nil
	},
}

// player is the view of a player the whitelist decides on.
type player interface {
	Groups() []string
	HasPermission(perm string) bool
}

func onChat(p *proxy.Proxy, log logr.Logger, e *proxy.ChatEvent) {
	if !e.IsCommand() || e.Cancelled() {
		return
	}
	cfg := p.Config()
	if !cfg.ModuleEnabled(Name) {
		return
	}
	pl := e.Player()
	if Allowed(&cfg.Xenon.CommandWhitelist, pl, serverOf(pl), e.Message()) {
		return
	}
	e.SetCancelled(true)
	log.V(1).Info("blocked command", "player", pl.Username(), "command", e.Message())
	if msg := cfg.Xenon.CommandWhitelist.BlockMessage; msg != "" {
		_ = pl.SendMessage(componentutil.MustLegacy(msg))
	}
}

// onTabComplete removes blocked commands from proxy completions and drops
// completions of their arguments.
func onTabComplete(p *proxy.Proxy, e *proxy.TabCompleteEvent) {
	cursor := e.Cursor()
	if !strings.HasPrefix(cursor, "/") {
		return
	}
	cfg := p.Config()
	if !cfg.ModuleEnabled(Name) {
		return
	}
	wl := &cfg.Xenon.CommandWhitelist
	pl := e.Player()
	server := serverOf(pl)
	if strings.Contains(cursor, " ") {
		if !Allowed(wl, pl, server, cursor) {
			e.SetCancelled(true)
		}
		return
	}
	var kept []string
	for _, s := range e.Suggestions() {
		if Allowed(wl, pl, server, "/"+strings.TrimPrefix(s, "/")) {
			kept = append(kept, s)
		}
	}
	e.SetSuggestions(kept)
}

func serverOf(pl *proxy.Session) string {
	if s := pl.CurrentServer(); s != nil {
		return s.Name()
	}
	return ""
}

// Allowed reports whether pl may run cmdline on server. Players holding
// the bypass permission may run everything. A group entry without
// servers applies on all servers.
func Allowed(wl *config.CommandWhitelist, pl player, server, cmdline string) bool {
	if wl.Bypass != "" && pl.HasPermission(wl.Bypass) {
		return true
	}
	name := root(cmdline)
	for group, entry := range wl.PerGroup {
		if !memberOf(pl.Groups(), group) || !appliesOn(entry.Servers, server) {
			continue
		}
		for _, c := range entry.Commands {
			if root(c) == name {
				return true
			}
		}
	}
	return false
}

// root returns the lowercased command name of cmdline with a leading slash.
func root(cmdline string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(cmdline), " ")
	return "/" + strings.ToLower(strings.TrimPrefix(name, "/"))
}

func memberOf(groups []string, group string) bool {
	for _, g := range groups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

func appliesOn(servers []string, server string) bool {
	if len(servers) == 0 {
		return true
	}
	for _, s := range servers {
		if strings.EqualFold(s, server) {
			return true
		}
	}
	return false
}
