package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "path only",
			key:  Key{Path: "/pokemon/25/"},
			want: "catalog:pokemon/25",
		},
		{
			name: "empty path",
			key:  Key{},
			want: "catalog",
		},
		{
			name: "query params sorted",
			key: Key{
				Path: "/pokemon",
				Query: url.Values{
					"offset": []string{"40"},
					"limit":  []string{"20"},
				},
			},
			want: "catalog:pokemon:limit=20:offset=40",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_String_Deterministic(t *testing.T) {
	a := Key{Path: "/pokemon", Query: url.Values{"a": {"1"}, "b": {"2"}, "c": {"3"}}}
	b := Key{Path: "pokemon/", Query: url.Values{"c": {"3"}, "a": {"1"}, "b": {"2"}}}

	for i := 0; i < 10; i++ {
		if a.String() != b.String() {
			t.Fatalf("keys differ: %q vs %q", a.String(), b.String())
		}
	}
}
