// Package command provides the command manager of the proxy
// built on the brigadier command dispatcher.
package command

import (
	"context"
	"errors"
	"strings"

	"go.minekube.com/brigodier"
	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/util/permission"
)

// Manager is a command manager for
// registering and executing proxy commands.
type Manager struct{ brigodier.Dispatcher }

// Source is the invoker of a command.
// It could be a player or the console/terminal.
type Source interface {
	permission.Subject
	// SendMessage sends a message component to the invoker.
	SendMessage(msg component.Component) error
}

// SourceFromContext retrieves the Source from a command's context.
func SourceFromContext(ctx context.Context) Source {
	s := ctx.Value(sourceCtxKey)
	if s == nil {
		return nil
	}
	src, _ := s.(Source)
	return src
}

// ContextWithSource returns a new context including the specified Source.
func ContextWithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, sourceCtxKey, src)
}

// Context wraps the context for a brigodier.Command.
type Context struct {
	*brigodier.CommandContext
	Source
}

func createContext(c *brigodier.CommandContext) *Context {
	return &Context{
		CommandContext: c,
		Source:         SourceFromContext(c),
	}
}

// RequiresContext wraps the context for a brigodier.RequireFn.
type RequiresContext struct {
	context.Context
	Source
}

// Command wraps the context for a brigodier.Command.
func Command(fn func(c *Context) error) brigodier.Command {
	return brigodier.CommandFunc(func(c *brigodier.CommandContext) error {
		return fn(createContext(c))
	})
}

// SuggestFunc implements brigodier.SuggestionProvider with a Context.
type SuggestFunc func(c *Context, b *brigodier.SuggestionsBuilder) *brigodier.Suggestions

var _ brigodier.SuggestionProvider = SuggestFunc(nil)

// Suggestions implements brigodier.SuggestionProvider.
func (s SuggestFunc) Suggestions(c *brigodier.CommandContext, b *brigodier.SuggestionsBuilder) *brigodier.Suggestions {
	return s(createContext(c), b)
}

// Requires wraps the context for a brigodier.RequireFn.
func Requires(fn func(c *RequiresContext) bool) brigodier.RequireFn {
	return func(ctx context.Context) bool {
		return fn(&RequiresContext{
			Context: ctx,
			Source:  SourceFromContext(ctx),
		})
	}
}

// RequiresPermission is a brigodier.RequireFn checking the Source for perm.
func RequiresPermission(perm string) brigodier.RequireFn {
	return Requires(func(c *RequiresContext) bool {
		return c.Source != nil && c.Source.HasPermission(perm)
	})
}

// ParseResults are the parse results of a parsed command input.
//
// It overlays brigodier.ParseResults to make clear that Manager.Execute
// must only get parse results returned by Manager.Parse.
type ParseResults brigodier.ParseResults

// Parse stores a required command invoker Source in ctx,
// parses the command and returns parse results for use with Execute.
func (m *Manager) Parse(ctx context.Context, src Source, command string) *ParseResults {
	return m.ParseReader(ctx, src, &brigodier.StringReader{String: command})
}

// ParseReader stores a required command invoker Source in ctx,
// parses the command and returns parse results for use with Execute.
func (m *Manager) ParseReader(ctx context.Context, src Source, command *brigodier.StringReader) *ParseResults {
	ctx = ContextWithSource(ctx, src)
	return (*ParseResults)(m.Dispatcher.ParseReader(ctx, command))
}

// ErrForward can be returned by a command to forward it to the backend server.
var ErrForward = errors.New("forward command")

// Do does a Parse and Execute.
func (m *Manager) Do(ctx context.Context, src Source, command string) error {
	return m.Execute(m.Parse(ctx, src, command))
}

// Execute ensures parse context has a Source and executes it.
func (m *Manager) Execute(parse *ParseResults) error {
	if SourceFromContext(parse.Context) == nil {
		return errors.New("context misses command source")
	}
	return m.Dispatcher.Execute((*brigodier.ParseResults)(parse))
}

// Has indicates whether the specified command/alias is registered.
func (m *Manager) Has(command string) bool {
	_, ok := m.Dispatcher.Root.Children()[strings.ToLower(command)]
	return ok
}

// HasFor indicates whether the command is registered and usable by src.
func (m *Manager) HasFor(ctx context.Context, src Source, command string) bool {
	node, ok := m.Dispatcher.Root.Children()[strings.ToLower(command)]
	return ok && node.CanUse(ContextWithSource(ctx, src))
}

// RegisterWithAliases registers a command and redirects each alias to it.
func (m *Manager) RegisterWithAliases(cmd brigodier.LiteralNodeBuilder, aliases ...string) {
	node := m.Register(cmd)
	for _, alias := range aliases {
		m.Register(brigodier.Literal(strings.ToLower(alias)).
			Requires(node.CanUse).
			Executes(Command(func(c *Context) error {
				return m.Do(c, c.Source, node.Name())
			})).
			Redirect(node))
	}
}

// CompletionSuggestions returns completion suggestions.
func (m *Manager) CompletionSuggestions(parse *ParseResults) (*brigodier.Suggestions, error) {
	return m.Dispatcher.CompletionSuggestions((*brigodier.ParseResults)(parse))
}

// OfferSuggestions returns completion suggestions.
func (m *Manager) OfferSuggestions(ctx context.Context, source Source, cmdline string) ([]string, error) {
	suggestions, err := m.CompletionSuggestions(m.Parse(ctx, source, cmdline))
	if err != nil {
		return nil, err
	}
	s := make([]string, 0, len(suggestions.Suggestions))
	for _, suggestion := range suggestions.Suggestions {
		s = append(s, suggestion.Text)
	}
	return s, nil
}

type sourceCtx struct{}

var sourceCtxKey = &sourceCtx{}
