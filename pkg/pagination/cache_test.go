package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves scripted pages and records every call.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[int]catalog.Page
	fail  map[int]int // cursor -> remaining failures
	calls []int

	started chan int      // receives the cursor when a fetch starts (optional)
	release chan struct{} // fetch blocks until closed/received (optional)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[int]catalog.Page),
		fail:  make(map[int]int),
	}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, cursor int) (catalog.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cursor)
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- cursor
	}
	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[cursor] > 0 {
		f.fail[cursor]--
		return catalog.Page{}, errors.New("boom")
	}
	return f.pages[cursor], nil
}

func (f *fakeFetcher) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func records(prefix string, from, n int) []catalog.Summary {
	out := make([]catalog.Summary, n)
	for i := range out {
		id := from + i
		out[i] = catalog.Summary{
			Name:      fmt.Sprintf("%s-%d", prefix, id),
			Reference: fmt.Sprintf("https://pokeapi.co/api/v2/pokemon/%d/", id),
		}
	}
	return out
}

func names(rs []catalog.Summary) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

func TestNew_InitialState(t *testing.T) {
	c := New(newFakeFetcher())

	assert.True(t, c.HasMore())
	assert.Equal(t, 0, c.Cursor())
	assert.False(t, c.InFlight())
	assert.Empty(t, c.Accumulated())
	assert.Equal(t, 0, c.Len())
}

func TestFetchNextPage_TwoPagesThenEnd(t *testing.T) {
	f := newFakeFetcher()
	f.pages[0] = catalog.Page{Records: records("mon", 1, 20), HasMore: true}
	f.pages[1] = catalog.Page{Records: records("mon", 21, 20), HasMore: false}

	c := New(f)
	ctx := context.Background()

	require.NoError(t, c.FetchNextPage(ctx))
	assert.Equal(t, 20, c.Len())
	assert.True(t, c.HasMore())

	require.NoError(t, c.FetchNextPage(ctx))
	assert.Len(t, c.Accumulated(), 40)
	assert.False(t, c.HasMore())
	assert.Equal(t, 2, c.Cursor())

	require.NoError(t, c.FetchNextPage(ctx))
	require.NoError(t, c.FetchNextPage(ctx))
	assert.Equal(t, []int{0, 1}, f.Calls(), "no request may follow the last page")
}

func TestFetchNextPage_DeduplicatesOverlappingPages(t *testing.T) {
	f := newFakeFetcher()
	f.pages[0] = catalog.Page{Records: records("mon", 1, 5), HasMore: true}
	overlap := append(records("mon", 4, 4), catalog.Summary{Name: "mon-1", Reference: "changed"})
	f.pages[1] = catalog.Page{Records: overlap, HasMore: true}
	f.pages[2] = catalog.Page{Records: records("mon", 1, 10), HasMore: false}

	c := New(f)
	ctx := context.Background()
	for c.HasMore() {
		require.NoError(t, c.FetchNextPage(ctx))
	}

	got := c.Accumulated()
	assert.Equal(t, []string{
		"mon-1", "mon-2", "mon-3", "mon-4", "mon-5",
		"mon-6", "mon-7", "mon-8", "mon-9", "mon-10",
	}, names(got))

	seen := make(map[string]bool)
	for _, r := range got {
		require.False(t, seen[r.Name], "duplicate name %q", r.Name)
		seen[r.Name] = true
	}
	assert.Equal(t, "https://pokeapi.co/api/v2/pokemon/1/", got[0].Reference, "existing records are never overwritten")
}

func TestFetchNextPage_AtMostOneInFlight(t *testing.T) {
	f := newFakeFetcher()
	f.pages[0] = catalog.Page{Records: records("mon", 1, 20), HasMore: true}
	f.started = make(chan int, 4)
	f.release = make(chan struct{})

	c := New(f)
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() { firstDone <- c.FetchNextPage(ctx) }()

	select {
	case cursor := <-f.started:
		assert.Equal(t, 0, cursor)
	case <-time.After(2 * time.Second):
		t.Fatal("first fetch never started")
	}
	assert.True(t, c.InFlight())

	require.NoError(t, c.FetchNextPage(ctx), "second call while in flight is a no-op")
	require.NoError(t, c.FetchNextPage(ctx))

	close(f.release)
	require.NoError(t, <-firstDone)

	assert.Equal(t, []int{0}, f.Calls())
	assert.False(t, c.InFlight())
	assert.Equal(t, 1, c.Cursor())
}

func TestFetchNextPage_ConcurrentCallersIssueSequentialCursors(t *testing.T) {
	f := newFakeFetcher()
	for i := 0; i < 5; i++ {
		f.pages[i] = catalog.Page{Records: records("mon", i*20+1, 20), HasMore: i < 4}
	}

	c := New(f)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c.HasMore() {
				_ = c.FetchNextPage(ctx)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, f.Calls())
	assert.Equal(t, 100, c.Len())
}

func TestFetchNextPage_FailureKeepsCursor(t *testing.T) {
	f := newFakeFetcher()
	f.pages[0] = catalog.Page{Records: records("mon", 1, 20), HasMore: true}
	f.fail[0] = 2

	c := New(f)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := c.FetchNextPage(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPageFetch)

		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, 0, fetchErr.Cursor)

		assert.False(t, c.InFlight(), "in-flight flag must clear after failure")
		assert.Equal(t, 0, c.Cursor())
		assert.True(t, c.HasMore())
		assert.Equal(t, 0, c.Len())
	}

	require.NoError(t, c.FetchNextPage(ctx))
	assert.Equal(t, []int{0, 0, 0}, f.Calls())
	assert.Equal(t, 1, c.Cursor())
	assert.Equal(t, 20, c.Len())
}

func TestAccumulated_SnapshotIsStable(t *testing.T) {
	f := newFakeFetcher()
	f.pages[0] = catalog.Page{Records: records("mon", 1, 3), HasMore: true}
	f.pages[1] = catalog.Page{Records: records("mon", 4, 3), HasMore: false}

	c := New(f)
	ctx := context.Background()
	require.NoError(t, c.FetchNextPage(ctx))

	snapshot := c.Accumulated()
	require.NoError(t, c.FetchNextPage(ctx))

	assert.Equal(t, []string{"mon-1", "mon-2", "mon-3"}, names(snapshot))
	assert.Len(t, c.Accumulated(), 6)

	extended := append(snapshot, catalog.Summary{Name: "intruder"})
	assert.Len(t, extended, 4)
	assert.Equal(t, "mon-4", c.Accumulated()[3].Name, "appending to a snapshot must not alias the cache")
}
