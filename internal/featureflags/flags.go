package featureflags

import (
	"os"
	"strings"
)

// Known flags
const (
	// InviteRejectMembers makes sending an invite to someone who is already a
	// member of the team fail with a conflict. Off by default.
	InviteRejectMembers = "invite_reject_members"
)

// Lookup reports whether a named flag is on
type Lookup func(name string) bool

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes/on (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Static returns a Lookup that reports exactly the given flags as on
func Static(on ...string) Lookup {
	set := make(map[string]struct{}, len(on))
	for _, name := range on {
		set[name] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}
}
