package cache

import (
	"net/http"
	"testing"
	"time"
)

func TestNewEntry_Expiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header http.Header
		want   time.Time
	}{
		{
			name:   "max-age",
			header: http.Header{"Cache-Control": []string{"public, max-age=86400, s-maxage=86400"}},
			want:   now.Add(24 * time.Hour),
		},
		{
			name:   "no-store wins",
			header: http.Header{"Cache-Control": []string{"no-store"}},
			want:   now,
		},
		{
			name:   "expires header",
			header: http.Header{"Expires": []string{now.Add(time.Hour).Format(http.TimeFormat)}},
			want:   now.Add(time.Hour),
		},
		{
			name:   "past expires header",
			header: http.Header{"Expires": []string{now.Add(-time.Hour).Format(http.TimeFormat)}},
			want:   now,
		},
		{
			name:   "unparseable expires",
			header: http.Header{"Expires": []string{"tomorrow"}},
			want:   now.Add(DefaultTTL),
		},
		{
			name:   "no freshness headers",
			header: http.Header{},
			want:   now.Add(DefaultTTL),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := NewEntry([]byte(`{}`), tt.header, now)
			if !entry.Expires.Equal(tt.want) {
				t.Errorf("Expires = %v, want %v", entry.Expires, tt.want)
			}
			if !entry.CachedAt.Equal(now) {
				t.Errorf("CachedAt = %v, want %v", entry.CachedAt, now)
			}
		})
	}
}
