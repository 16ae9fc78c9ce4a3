package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is the fallback lifetime when the response carries no freshness headers.
const DefaultTTL = 5 * time.Minute

// NewEntry builds an Entry from a response body and its headers.
func NewEntry(body []byte, header http.Header, now time.Time) *Entry {
	return &Entry{
		Data:     body,
		Expires:  expiresFromHeader(header, now),
		CachedAt: now,
	}
}

// expiresFromHeader derives the expiry from Cache-Control (preferred) or Expires.
// no-store and no-cache yield an already expired time so the entry is never written.
func expiresFromHeader(header http.Header, now time.Time) time.Time {
	if cc := header.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.ToLower(strings.TrimSpace(directive))
			switch {
			case directive == "no-store" || directive == "no-cache":
				return now
			case strings.HasPrefix(directive, "max-age="):
				seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
				if err == nil && seconds >= 0 {
					return now.Add(time.Duration(seconds) * time.Second)
				}
			}
		}
	}

	expiresStr := header.Get("Expires")
	if expiresStr == "" {
		return now.Add(DefaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(DefaultTTL)
	}
	if expires.Before(now) {
		return now
	}
	return expires
}
