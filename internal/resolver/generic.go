package resolver

import (
	"strings"
	"unicode"
)

// maxGenericWords caps how long a name-only query can be before it is
// treated as a specific place.
const maxGenericWords = 4

// IsGeneric reports whether query looks like a business or chain name
// ("starbucks", "shell station") rather than a street address.
// Such queries resolve to whichever branch is quickest to drive to.
func IsGeneric(query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return false
	}
	if strings.ContainsRune(query, ',') {
		return false
	}
	for _, r := range query {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return len(strings.Fields(query)) <= maxGenericWords
}
