package proxy

import (
	"errors"
	"sort"
	"strings"

	"go.minekube.com/brigodier"

	"github.com/xenoncommunity/xenon/pkg/command"
	"github.com/xenoncommunity/xenon/pkg/command/suggest"
	"github.com/xenoncommunity/xenon/pkg/proxy/message"
)

const (
	serverCmdPermission = "xenon.command.server"
	glistCmdPermission  = "xenon.command.glist"
	sendCmdPermission   = "xenon.command.send"
	reloadCmdPermission = "xenon.command.reload"
)

func (p *Proxy) registerBuiltinCommands() {
	p.command.Register(p.serverCmd())
	p.command.Register(p.glistCmd())
	p.command.Register(p.sendCmd())
	p.command.Register(p.xenonCmd())
}

// reply sends a catalog message in the locale of src.
// Players receive it on their executor.
func (p *Proxy) reply(src command.Source, key message.Key, args ...any) {
	msg := p.messages.Component(localeOf(src), key, args...)
	if s, ok := src.(*Session); ok {
		_ = s.exec().Post(func() { _ = s.SendMessage(msg) })
		return
	}
	_ = src.SendMessage(msg)
}

func localeOf(src command.Source) string {
	if s, ok := src.(*Session); ok {
		return s.Locale()
	}
	return ""
}

func (p *Proxy) serverNames() []string {
	servers := p.Servers()
	names := make([]string, 0, len(servers))
	for _, s := range servers {
		names = append(names, s.Name())
	}
	sort.Strings(names)
	return names
}

func (p *Proxy) suggestServers() brigodier.SuggestionProvider {
	return command.SuggestFunc(func(_ *command.Context, b *brigodier.SuggestionsBuilder) *brigodier.Suggestions {
		return suggest.Similar(b, p.serverNames()).Build()
	})
}

func (p *Proxy) suggestPlayers(extra ...string) brigodier.SuggestionProvider {
	return command.SuggestFunc(func(_ *command.Context, b *brigodier.SuggestionsBuilder) *brigodier.Suggestions {
		candidates := append([]string{}, extra...)
		for _, pl := range p.Players() {
			candidates = append(candidates, pl.Username())
		}
		return suggest.Similar(b, candidates).Build()
	})
}

// /server [name]
func (p *Proxy) serverCmd() brigodier.LiteralNodeBuilder {
	return brigodier.Literal("server").
		Requires(command.RequiresPermission(serverCmdPermission)).
		Executes(command.Command(func(c *command.Context) error {
			if s, ok := c.Source.(*Session); ok {
				if cur := s.CurrentServer(); cur != nil {
					p.reply(c.Source, message.CurrentServer, cur.Name())
				}
			}
			p.reply(c.Source, message.ServerList, strings.Join(p.serverNames(), ", "))
			return nil
		})).
		Then(brigodier.Argument("name", brigodier.String).
			Suggests(p.suggestServers()).
			Executes(command.Command(func(c *command.Context) error {
				player, ok := c.Source.(*Session)
				if !ok {
					p.reply(c.Source, message.CommandPlayersOnly)
					return nil
				}
				target := p.Server(c.String("name"))
				if target == nil {
					p.reply(c.Source, message.NoServer)
					return nil
				}
				player.Connect(&ConnectRequest{
					Target:       target,
					Reason:       CommandConnect,
					SendFeedback: true,
				})
				return nil
			})),
		)
}

// /glist
func (p *Proxy) glistCmd() brigodier.LiteralNodeBuilder {
	return brigodier.Literal("glist").
		Requires(command.RequiresPermission(glistCmdPermission)).
		Executes(command.Command(func(c *command.Context) error {
			for _, name := range p.serverNames() {
				s := p.Server(name)
				if s == nil {
					continue
				}
				players := s.Players()
				names := make([]string, 0, len(players))
				for _, pl := range players {
					names = append(names, pl.Username())
				}
				sort.Strings(names)
				p.reply(c.Source, message.ServerListEntry, s.Name(), len(names), strings.Join(names, ", "))
			}
			p.reply(c.Source, message.TotalPlayers, p.PlayerCount())
			return nil
		}))
}

// /send <player|all|current> <server>
func (p *Proxy) sendCmd() brigodier.LiteralNodeBuilder {
	usage := command.Command(func(c *command.Context) error {
		p.reply(c.Source, message.SendUsage)
		return nil
	})
	return brigodier.Literal("send").
		Requires(command.RequiresPermission(sendCmdPermission)).
		Executes(usage).
		Then(brigodier.Argument("player", brigodier.String).
			Suggests(p.suggestPlayers("all", "current")).
			Executes(usage).
			Then(brigodier.Argument("server", brigodier.String).
				Suggests(p.suggestServers()).
				Executes(command.Command(func(c *command.Context) error {
					return p.send(c, c.String("player"), c.String("server"))
				})),
			),
		)
}

func (p *Proxy) send(c *command.Context, who, serverName string) error {
	target := p.Server(serverName)
	if target == nil {
		p.reply(c.Source, message.NoServer)
		return nil
	}
	players, ok := p.sendTargets(c.Source, who)
	if !ok {
		return nil
	}
	sender := "Console"
	if s, isPlayer := c.Source.(*Session); isPlayer {
		sender = s.Username()
	}
	for _, pl := range players {
		pl.Connect(&ConnectRequest{Target: target, Reason: CommandConnect})
		p.reply(pl, message.SentToServer, target.Name(), sender)
	}
	p.reply(c.Source, message.SendSuccess, len(players), target.Name())
	return nil
}

// sendTargets resolves the player argument of /send.
func (p *Proxy) sendTargets(src command.Source, who string) ([]*Session, bool) {
	switch strings.ToLower(who) {
	case "all":
		return p.Players(), true
	case "current":
		s, ok := src.(*Session)
		if !ok {
			p.reply(src, message.CommandPlayersOnly)
			return nil, false
		}
		cur := s.CurrentServer()
		if cur == nil {
			return nil, true
		}
		return cur.Players(), true
	}
	if srv := p.Server(who); srv != nil {
		return srv.Players(), true
	}
	pl := p.Player(who)
	if pl == nil {
		p.reply(src, message.UserNotOnline)
		return nil, false
	}
	return []*Session{pl}, true
}

// /xenon reload
func (p *Proxy) xenonCmd() brigodier.LiteralNodeBuilder {
	return brigodier.Literal("xenon").
		Then(brigodier.Literal("reload").
			Requires(command.RequiresPermission(reloadCmdPermission)).
			Executes(command.Command(func(c *command.Context) error {
				src := c.Source
				go func() {
					if err := p.reloadFromSource(); err != nil {
						p.log.Error(err, "reload failed")
						p.reply(src, message.ReloadFailed, err.Error())
						return
					}
					p.reply(src, message.Reloaded)
				}()
				return nil
			})),
		)
}

var errNoReloader = errors.New("no config source to reload from")

// reloadFromSource reads the config again and applies it.
func (p *Proxy) reloadFromSource() error {
	if p.reloader == nil {
		return errNoReloader
	}
	cfg, err := p.reloader()
	if err != nil {
		return err
	}
	return p.Reload(cfg)
}
