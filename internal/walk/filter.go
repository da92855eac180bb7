package walk

import "strings"

// IsAllowed reports whether a directory named name may be descended into.
// It returns false as soon as any entry of forbidden is a literal,
// case-sensitive prefix of name. An empty forbidden list allows everything.
//
// An empty string in forbidden is a prefix of every name and therefore
// prunes every child directory.
func IsAllowed(name string, forbidden []string) bool {
	for _, prefix := range forbidden {
		if strings.HasPrefix(name, prefix) {
			return false
		}
	}
	return true
}
