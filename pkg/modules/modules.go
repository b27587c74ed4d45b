// Package modules bundles the optional features of Xenon.
//
// Every module is registered as proxy plugin and only acts while its
// name is listed in xenon.modules.enables, so reloading the config
// toggles modules without a restart.
package modules

import (
	"github.com/xenoncommunity/xenon/pkg/modules/brand"
	"github.com/xenoncommunity/xenon/pkg/modules/spy"
	"github.com/xenoncommunity/xenon/pkg/modules/staffchat"
	"github.com/xenoncommunity/xenon/pkg/modules/whitelist"
	"github.com/xenoncommunity/xenon/pkg/proxy"
)

// Plugins returns the plugins of all bundled modules.
func Plugins() []proxy.Plugin {
	return []proxy.Plugin{
		spy.Plugin,
		staffchat.Plugin,
		whitelist.Plugin,
		brand.Plugin,
	}
}
