// Package moderation screens free-text comments against a fixed denylist.
package moderation

import "strings"

// denylist is the content policy carried over from the original deployment.
// Matching is case-insensitive substring, no stemming or context awareness.
var denylist = []string{
	"fuck",
	"shit",
	"bitch",
	"asshole",
	"bastard",
	"cunt",
	"dick",
	"piss",
}

// IsClean reports whether text passes the content screen.
func IsClean(text string) bool {
	normalized := strings.ToLower(text)
	for _, word := range denylist {
		if strings.Contains(normalized, word) {
			return false
		}
	}
	return true
}
