// Package permission defines the primitives used to check a Subject
// for a permission.
//
// Xenon resolves a player's permissions from the configured player and
// group lists on login; modules may replace the Func of a player.
package permission

import "strings"

// Func is the permission function to obtain the TriState for a permission.
type Func func(permission string) TriState

// Subject is a permission holder like a player.
type Subject interface {
	HasPermission(permission string) bool // Equal to PermissionValue(...).Bool()
	PermissionValue(permission string) TriState
}

// TriState can be in three states (True, False, Undefined), used for a setting.
type TriState uint8

const (
	Undefined TriState = iota // A permission is undefined.
	True                      // A permission is allowed.
	False                     // A permission is explicitly denied.
)

// Bool returns the bool value of a TriState where
// Undefined is converted to false.
func (t TriState) Bool() bool {
	return t == True
}

// AllowAll is a Func granting every permission.
var AllowAll Func = func(string) TriState { return True }

// FromList returns a Func that grants the listed permissions.
//
// A permission prefixed with "-" is explicitly denied, "*" grants
// everything not denied and "a.b.*" grants every permission below "a.b".
func FromList(perms ...string) Func {
	granted := make(map[string]struct{}, len(perms))
	denied := make(map[string]struct{})
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "-") {
			denied[p[1:]] = struct{}{}
			continue
		}
		granted[p] = struct{}{}
	}
	return func(permission string) TriState {
		permission = strings.ToLower(permission)
		if _, ok := denied[permission]; ok {
			return False
		}
		if _, ok := granted[permission]; ok {
			return True
		}
		for node := permission; ; {
			i := strings.LastIndexByte(node, '.')
			if i == -1 {
				break
			}
			node = node[:i]
			if _, ok := granted[node+".*"]; ok {
				return True
			}
		}
		if _, ok := granted["*"]; ok {
			return True
		}
		return Undefined
	}
}
