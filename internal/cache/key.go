package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeName case-folds name and collapses runs of whitespace. A Caser
// may hold state, so each call gets its own.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// LookupKey is the cache key for a food name.
func LookupKey(name string) string {
	sum := sha256.Sum256([]byte("lookup:" + NormalizeName(name)))
	return hex.EncodeToString(sum[:])
}
