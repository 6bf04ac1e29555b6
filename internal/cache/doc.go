// Package cache keeps AI lookup results on disk with a TTL.
//
// Entries live as JSON files under ~/.cvindex/cache/ by default. Keys are
// SHA256 hashes of the case-folded food name, so "Banana", "banana " and
// "BANANA" share one entry. Expired entries are ignored on read and can be
// swept with CleanupExpired.
package cache
