package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.minekube.com/brigodier"
	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/util/permission"
)

type testSource struct {
	perms    permission.Func
	messages []string
}

func (s *testSource) HasPermission(perm string) bool { return s.PermissionValue(perm).Bool() }
func (s *testSource) PermissionValue(perm string) permission.TriState {
	if s.perms == nil {
		return permission.Undefined
	}
	return s.perms(perm)
}
func (s *testSource) SendMessage(msg component.Component) error {
	if t, ok := msg.(*component.Text); ok {
		s.messages = append(s.messages, t.Content)
	}
	return nil
}

func TestManager_Do(t *testing.T) {
	var mgr Manager
	mgr.Register(brigodier.Literal("hello").
		Executes(Command(func(c *Context) error {
			return c.SendMessage(&component.Text{Content: "hi"})
		})).
		Then(brigodier.Argument("name", brigodier.String).
			Executes(Command(func(c *Context) error {
				return c.SendMessage(&component.Text{Content: "hi " + c.String("name")})
			}))))

	src := &testSource{}
	require.NoError(t, mgr.Do(context.Background(), src, "hello"))
	require.NoError(t, mgr.Do(context.Background(), src, "hello Alice"))
	assert.Equal(t, []string{"hi", "hi Alice"}, src.messages)

	assert.True(t, mgr.Has("hello"))
	assert.True(t, mgr.Has("HELLO"))
	assert.False(t, mgr.Has("bye"))
	assert.ErrorIs(t, mgr.Do(context.Background(), src, "bye"), brigodier.ErrDispatcherUnknownCommand)
}

func TestManager_RequiresPermission(t *testing.T) {
	var mgr Manager
	mgr.Register(brigodier.Literal("secret").
		Requires(RequiresPermission("xenon.secret")).
		Executes(Command(func(c *Context) error { return nil })))

	denied := &testSource{}
	allowed := &testSource{perms: permission.FromList("xenon.secret")}

	assert.Error(t, mgr.Do(context.Background(), denied, "secret"))
	assert.NoError(t, mgr.Do(context.Background(), allowed, "secret"))
	assert.False(t, mgr.HasFor(context.Background(), denied, "secret"))
	assert.True(t, mgr.HasFor(context.Background(), allowed, "secret"))
}

func TestManager_RegisterWithAliases(t *testing.T) {
	var mgr Manager
	var runs int
	mgr.RegisterWithAliases(brigodier.Literal("staffchat").
		Executes(Command(func(c *Context) error {
			runs++
			return nil
		})), "sc")

	src := &testSource{}
	require.True(t, mgr.Has("sc"))
	require.NoError(t, mgr.Do(context.Background(), src, "staffchat"))
	require.NoError(t, mgr.Do(context.Background(), src, "sc"))
	assert.Equal(t, 2, runs)
}

func TestManager_Execute_NoSource(t *testing.T) {
	var mgr Manager
	mgr.Register(brigodier.Literal("x").Executes(Command(func(*Context) error { return nil })))
	parse := (*ParseResults)(mgr.Dispatcher.Parse(context.Background(), "x"))
	assert.Error(t, mgr.Execute(parse))
}
