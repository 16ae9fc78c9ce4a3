// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines a canned response for a mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is a PokeAPI-shaped catalog server for tests. Items are numbered
// from 1 in the order of the names it was created with.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	names    []string
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	pageFailures   int
	pageRequests   int
	detailRequests map[string]int
}

// GenerateNames returns n names of the form prefix-001, prefix-002, ...
func GenerateNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%03d", prefix, i+1)
	}
	return names
}

// NewMockCatalog starts a mock catalog serving the given item names.
func NewMockCatalog(names ...string) *MockCatalog {
	mock := &MockCatalog{
		names:          names,
		handlers:       make(map[string]func(w http.ResponseWriter, r *http.Request)),
		detailRequests: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			mock.track(r)
			handler(w, r)
			return
		}

		switch {
		case r.URL.Path == "/pokemon":
			mock.track(r)
			mock.listHandler(w, r)
		case strings.HasPrefix(r.URL.Path, "/pokemon/"):
			mock.track(r)
			mock.detailHandler(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// FailPages makes the next n listing requests answer 500.
func (m *MockCatalog) FailPages(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageFailures = n
}

// PageRequests returns the number of listing requests served.
func (m *MockCatalog) PageRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageRequests
}

// DetailRequests returns the number of detail requests for an identifier.
func (m *MockCatalog) DetailRequests(identifier string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.detailRequests[identifier]
}

// TotalDetailRequests returns the number of detail requests across identifiers.
func (m *MockCatalog) TotalDetailRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.detailRequests {
		total += n
	}
	return total
}

func (m *MockCatalog) track(r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.URL.Path == "/pokemon" {
		m.pageRequests++
		return
	}
	m.detailRequests[strings.TrimPrefix(r.URL.Path, "/pokemon/")]++
}

func (m *MockCatalog) listHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	fail := m.pageFailures > 0
	if fail {
		m.pageFailures--
	}
	m.mu.Unlock()

	if fail {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	base := "http://" + r.Host
	type result struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	payload := struct {
		Count   int      `json:"count"`
		Next    *string  `json:"next"`
		Results []result `json:"results"`
	}{Count: len(m.names), Results: []result{}}

	for i := offset; i < offset+limit && i < len(m.names); i++ {
		payload.Results = append(payload.Results, result{
			Name: m.names[i],
			URL:  fmt.Sprintf("%s/pokemon/%d/", base, i+1),
		})
	}
	if offset+limit < len(m.names) {
		next := fmt.Sprintf("%s/pokemon?offset=%d&limit=%d", base, offset+limit, limit)
		payload.Next = &next
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(payload)
}

func (m *MockCatalog) detailHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(strings.Trim(strings.TrimPrefix(r.URL.Path, "/pokemon/"), "/"))
	if err != nil || id < 1 || id > len(m.names) {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, `{"id":%d,"name":%q,"sprites":{"front_default":"https://img.example/%d.png"},`+
		`"types":[{"slot":2,"type":{"name":"poison"}},{"slot":1,"type":{"name":"grass"}}]}`,
		id, m.names[id-1], id)
}
