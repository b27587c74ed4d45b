package staffchat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/proxy"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
	"github.com/xenoncommunity/xenon/pkg/util/permission"
)

type source struct {
	perm     permission.Func
	messages []string
}

func (s *source) HasPermission(perm string) bool { return s.PermissionValue(perm).Bool() }
func (s *source) PermissionValue(perm string) permission.TriState {
	return s.perm(perm)
}
func (s *source) SendMessage(msg component.Component) error {
	s.messages = append(s.messages, componentutil.Plain(msg))
	return nil
}

func newProxy(t *testing.T, enables ...string) *proxy.Proxy {
	cfg := config.DefaultConfig
	cfg.Xenon.Modules.Enables = enables
	p, err := proxy.New(proxy.Options{Config: &cfg})
	require.NoError(t, err)
	require.NoError(t, Plugin.Init(context.Background(), p))
	return p
}

func TestStaffChat_Permission(t *testing.T) {
	p := newProxy(t, Name)
	ctx := context.Background()

	staff := &source{perm: permission.FromList("xenon.staffchat")}
	assert.True(t, p.Command().HasFor(ctx, staff, "staffchat"))
	assert.True(t, p.Command().HasFor(ctx, staff, "sc"))

	player := &source{perm: permission.FromList()}
	assert.False(t, p.Command().HasFor(ctx, player, "staffchat"))
}

func TestStaffChat_Disabled(t *testing.T) {
	p := newProxy(t)
	staff := &source{perm: permission.AllowAll}
	assert.False(t, p.Command().HasFor(context.Background(), staff, "staffchat"))
}

func TestStaffChat_Usage(t *testing.T) {
	p := newProxy(t, Name)
	staff := &source{perm: permission.AllowAll}
	require.NoError(t, p.Command().Do(context.Background(), staff, "staffchat"))
	assert.Equal(t, []string{"Usage: /staffchat <message>"}, staff.messages)

	staff.messages = nil
	require.NoError(t, p.Command().Do(context.Background(), staff, "sc hello staff"))
	assert.Empty(t, staff.messages)
}
