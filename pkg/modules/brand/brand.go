// Package brand shows the proxy brand next to the server brand in the
// debug screen of clients.
package brand

import (
	"context"

	"github.com/robinbraemer/event"

	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	"github.com/xenoncommunity/xenon/pkg/proxy"
)

// Name is the name of the module in xenon.modules.enables.
const Name = "brand"

// Plugin rewrites backend brands to "<inGameBrandName> (<backend brand>)".
var Plugin = proxy.Plugin{
	Name: Name,
	Init: func(_ context.Context, p *proxy.Proxy) error {
		event.Subscribe(p.Event(), 0, func(e *proxy.ServerBrandEvent) {
			cfg := p.Config()
			if !cfg.ModuleEnabled(Name) || cfg.Xenon.InGameBrandName == "" {
				return
			}
			e.SetBrand(plugin.FormatBrand(cfg.Xenon.InGameBrandName, e.BackendBrand()))
		})
		return nil
	},
}
