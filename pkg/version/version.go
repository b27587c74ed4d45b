// Package version holds build information of Xenon.
package version

import (
	"net/http"
	"strings"
)

// Version is the current version of Xenon.
// Set using -ldflags "-X github.com/xenoncommunity/xenon/pkg/version.version=v1.2.3"
var version = "unknown"

func String() string {
	return version
}

// UserAgent is sent with outgoing http requests.
func UserAgent() string {
	s := strings.Builder{}
	s.WriteString("Xenon/")
	if v := String(); v != "" {
		s.WriteString(v)
	} else {
		s.WriteString("Dirty")
	}
	return s.String()
}

func UserAgentHeader() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", UserAgent())
	return h
}
