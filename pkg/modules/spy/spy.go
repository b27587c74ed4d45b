// Package spy shows the commands of players to staff members.
package spy

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/modules/internal/notify"
	"github.com/xenoncommunity/xenon/pkg/proxy"
)

// Name is the name of the module in xenon.modules.enables.
const Name = "spy"

// Plugin is the command spy module.
var Plugin = proxy.Plugin{
	Name: Name,
	Init: func(ctx context.Context, p *proxy.Proxy) error {
		log := logr.FromContextOrDiscard(ctx).WithName(Name)
		event.Subscribe(p.Event(), -100, func(e *proxy.ChatEvent) {
			onChat(p, log, e)
		})
		return nil
	},
}

func onChat(p *proxy.Proxy, log logr.Logger, e *proxy.ChatEvent) {
	if !e.IsCommand() || e.Cancelled() {
		return
	}
	cfg := p.Config()
	if !cfg.ModuleEnabled(Name) {
		return
	}
	player := e.Player()
	if !Watched(&cfg.Xenon.Modules, e.Message(), player.HasPermission) {
		return
	}
	msg := notify.Format(cfg.Xenon.Modules.SpyMessage,
		"PLAYER", player.Username(),
		"COMMAND", e.Message(),
	)
	n := notify.Permitted(p, cfg.Xenon.Modules.SpyPerm, msg, player)
	log.V(1).Info("spied command", "player", player.Username(), "command", e.Message(), "receivers", n)
}

// Watched reports whether the command of a player with permissions hasPerm
// is shown to spies.
func Watched(m *config.Modules, command string, hasPerm func(string) bool) bool {
	if m.SpyBypass != "" && hasPerm(m.SpyBypass) {
		return false
	}
	lower := strings.ToLower(command)
	for _, ex := range m.SpyExceptions {
		if ex != "" && strings.Contains(lower, strings.ToLower(ex)) {
			return false
		}
	}
	return true
}
