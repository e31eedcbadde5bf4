// Package normalize canonicalizes target URLs before they are persisted.
package normalize

import (
	"strings"
)

// Target strips a single leading "http://" or "https://" from raw and
// returns the remainder unchanged. The match is case-sensitive and applies
// only to the prefix, so schemes embedded later in the string survive.
// Idempotent: applying it twice gives the same result.
//
// No well-formedness check is done here; the redirect path re-attaches a
// fixed scheme to whatever is stored.
func Target(raw string) string {
	if rest, ok := strings.CutPrefix(raw, "https://"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(raw, "http://"); ok {
		return rest
	}
	return raw
}
