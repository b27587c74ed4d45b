// Package staffchat provides a chat channel between staff members
// across all servers.
package staffchat

import (
	"context"

	"github.com/go-logr/logr"
	"go.minekube.com/brigodier"

	"github.com/xenoncommunity/xenon/pkg/command"
	"github.com/xenoncommunity/xenon/pkg/modules/internal/notify"
	"github.com/xenoncommunity/xenon/pkg/proxy"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
)

// Name is the name of the module in xenon.modules.enables.
const Name = "staffchat"

// Plugin registers /staffchat <message> and its alias /sc.
var Plugin = proxy.Plugin{
	Name: Name,
	Init: func(ctx context.Context, p *proxy.Proxy) error {
		log := logr.FromContextOrDiscard(ctx).WithName(Name)
		p.Command().RegisterWithAliases(newCmd(p, log), "sc")
		return nil
	},
}

func newCmd(p *proxy.Proxy, log logr.Logger) brigodier.LiteralNodeBuilder {
	allowed := command.Requires(func(c *command.RequiresContext) bool {
		cfg := p.Config()
		return cfg.ModuleEnabled(Name) && c.Source != nil &&
			c.Source.HasPermission(cfg.Xenon.Modules.StaffChatPerm)
	})
	return brigodier.Literal("staffchat").
		Requires(allowed).
		Executes(command.Command(func(c *command.Context) error {
			return c.Source.SendMessage(componentutil.MustLegacy("&cUsage: /staffchat <message>"))
		})).
		Then(brigodier.Argument("message", brigodier.StringPhrase).
			Executes(command.Command(func(c *command.Context) error {
				cfg := p.Config()
				sender := "Console"
				if pl, ok := c.Source.(*proxy.Session); ok {
					sender = pl.Username()
				}
				text := c.String("message")
				msg := notify.Format(cfg.Xenon.Modules.StaffChatMessage,
					"PLAYER", sender,
					"MESSAGE", text,
				)
				notify.Permitted(p, cfg.Xenon.Modules.StaffChatPerm, msg, nil)
				log.Info("staff chat", "sender", sender, "message", text)
				return nil
			})),
		)
}
