package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

var stopWords = map[string]struct{}{
	"please": {}, "can": {}, "you": {}, "tell": {}, "me": {},
	"show": {}, "the": {}, "a": {}, "an": {},
}

// Normalize lower-cases the query, drops stop words and collapses whitespace.
func Normalize(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	kept := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// Key is the first 16 hex chars of the md5 of the normalized query.
func Key(query string) string {
	sum := md5.Sum([]byte(Normalize(query)))
	return hex.EncodeToString(sum[:])[:16]
}
