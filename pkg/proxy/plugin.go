package proxy

import "context"

// Plugin extends the proxy with code compiled into the binary.
//
// The Init hook runs after the proxy loaded its config and registered
// servers and builtin commands, before serving any connections.
// If one Init hook errors, the proxy cancels the boot and shuts down,
// firing the ShutdownEvent.
// Subscribe to ShutdownEvent to release resources of the plugin.
type Plugin struct {
	Name string                                        // The name identifying the plugin.
	Init func(ctx context.Context, proxy *Proxy) error // The hook to initialize the plugin.
}
