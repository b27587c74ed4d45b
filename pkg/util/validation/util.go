package validation

import (
	"net"
	"regexp"
	"unicode/utf8"
)

func ValidHostPort(hostAndPort string) error {
	_, _, err := net.SplitHostPort(hostAndPort)
	return err
}

// Constants obtained from https://github.com/kubernetes/apimachinery/blob/master/pkg/util/validation/validation.go
const (
	qnameCharFmt           = "[A-Za-z0-9]"
	qnameExtCharFmt        = "[-A-Za-z0-9_.]"
	qualifiedNameFmt       = "(" + qnameCharFmt + qnameExtCharFmt + "*)?" + qnameCharFmt
	QualifiedNameMaxLength = 63
	QualifiedNameErrMsg    = "must consist of alphanumeric characters, " +
		"'-', '_' or '.', and must start and end with an alphanumeric character"
)

var qualifiedNameRegexp = regexp.MustCompile("^" + qualifiedNameFmt + "$")

func ValidServerName(str string) bool {
	return str != "" && len(str) <= QualifiedNameMaxLength && qualifiedNameRegexp.MatchString(str)
}

// MaxUsernameLength is the longest username a client may log in with.
const MaxUsernameLength = 16

// ChatAllowedCharacter reports whether r may appear in a chat message.
// Section signs, control characters and DEL are rejected.
func ChatAllowedCharacter(r rune) bool {
	return r != '§' && r >= ' ' && r != 127
}

// ChatAllowed reports whether every character of msg may appear in chat.
func ChatAllowed(msg string) bool {
	for _, r := range msg {
		if !ChatAllowedCharacter(r) {
			return false
		}
	}
	return true
}

// ValidUsername reports whether name is an acceptable login name.
// Authenticated (online mode) names are restricted to [a-zA-Z0-9_],
// offline names to chat characters without spaces.
func ValidUsername(name string, onlineMode bool) bool {
	if name == "" || utf8.RuneCountInString(name) > MaxUsernameLength {
		return false
	}
	for _, r := range name {
		if !nameAllowedCharacter(r, onlineMode) {
			return false
		}
	}
	return true
}

func nameAllowedCharacter(r rune, onlineMode bool) bool {
	if onlineMode {
		return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || r == '_'
	}
	return ChatAllowedCharacter(r) && r != ' '
}
