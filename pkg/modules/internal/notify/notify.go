// Package notify delivers module messages to players.
package notify

import (
	"strings"

	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/proxy"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
)

// Permitted sends msg to every player holding perm, except skip.
// It returns the number of receivers.
func Permitted(p *proxy.Proxy, perm string, msg component.Component, skip *proxy.Session) int {
	n := 0
	for _, pl := range p.Players() {
		if pl == skip || !pl.HasPermission(perm) {
			continue
		}
		pl := pl
		if pl.Post(func() { _ = pl.SendMessage(msg) }) == nil {
			n++
		}
	}
	return n
}

// Format replaces the placeholders of tmpl, given as old/new pairs, and
// parses '&' colour codes. Colour codes are removed from the values.
func Format(tmpl string, placeholders ...string) component.Component {
	pairs := make([]string, len(placeholders))
	copy(pairs, placeholders)
	for i := 1; i < len(pairs); i += 2 {
		pairs[i] = stripCodes.Replace(pairs[i])
	}
	return componentutil.MustLegacy(strings.NewReplacer(pairs...).Replace(tmpl))
}

var stripCodes = strings.NewReplacer("&", "", "§", "")
