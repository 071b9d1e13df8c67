package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"testing"

	"workdash/internal/cache"
	"workdash/internal/workitem"
)

// fakeSource is a scriptable remote used in place of the Azure DevOps client.
type fakeSource struct {
	ids     []int
	items   map[int]*workitem.WorkItem
	listErr error
	failIDs map[int]bool

	listCalls  int
	fetchCalls int
}

func (f *fakeSource) QueryWorkItemIDs(ctx context.Context) ([]int, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ids, nil
}

func (f *fakeSource) GetWorkItem(ctx context.Context, id int) (*workitem.WorkItem, error) {
	f.fetchCalls++
	if f.failIDs[id] {
		return nil, fmt.Errorf("simulated fetch failure for %d", id)
	}
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("work item %d not found", id)
	}
	return item, nil
}

// setupTestCache creates a temporary cache for testing.
func setupTestCache(t *testing.T) *cache.Cache {
	t.Helper()

	store, err := cache.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test cache: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return store
}

// newFakeSource builds a source whose listing returns the given IDs and
// whose detail fetch serves a generated record per ID.
func newFakeSource(ids ...int) *fakeSource {
	items := make(map[int]*workitem.WorkItem, len(ids))
	for _, id := range ids {
		items[id] = &workitem.WorkItem{
			ID:    id,
			Type:  "Product Backlog Item",
			Title: fmt.Sprintf("Item %d", id),
			State: "New",
		}
	}
	return &fakeSource{ids: ids, items: items, failIDs: make(map[int]bool)}
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[test] ", 0)
}

// seedCache runs a full pass so the cache holds the source's current items.
func seedCache(t *testing.T, store *cache.Cache, source *fakeSource) {
	t.Helper()

	rec := New(store, source, testLogger())
	if _, err := rec.Reconcile(context.Background(), Options{}); err != nil {
		t.Fatalf("seed reconcile failed: %v", err)
	}
}

func cachedIDs(t *testing.T, store *cache.Cache) []int {
	t.Helper()

	ids, err := store.ListIDs()
	if err != nil {
		t.Fatalf("failed to list cached IDs: %v", err)
	}
	return ids
}

func TestReconcileDiffExample(t *testing.T) {
	store := setupTestCache(t)

	// Seed the cache with L = {1, 2, 3}.
	seedCache(t, store, newFakeSource(1, 2, 3))

	// Remote moves to R = {2, 3, 4}.
	source := newFakeSource(2, 3, 4)
	rec := New(store, source, testLogger())

	result, err := rec.Reconcile(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if result.Deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", result.Deleted)
	}
	if result.Fetched != 1 {
		t.Errorf("expected 1 fetched, got %d", result.Fetched)
	}
	// Only 4 is in toFetch; 2 and 3 are already cached.
	if source.fetchCalls != 1 {
		t.Errorf("expected 1 detail call, got %d", source.fetchCalls)
	}

	got := cachedIDs(t, store)
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected cached IDs %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected cached IDs %v, got %v", want, got)
		}
	}
}

func TestReconcileIdempotent(t *testing.T) {
	store := setupTestCache(t)
	seedCache(t, store, newFakeSource(1, 2, 3))

	source := newFakeSource(1, 2, 3)
	rec := New(store, source, testLogger())

	result, err := rec.Reconcile(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if !result.NothingNew {
		t.Error("expected NothingNew for unchanged remote")
	}
	if result.Deleted != 0 || result.Fetched != 0 {
		t.Errorf("expected no-op, got deleted=%d fetched=%d", result.Deleted, result.Fetched)
	}
	if source.fetchCalls != 0 {
		t.Errorf("expected zero detail calls, got %d", source.fetchCalls)
	}
	if len(result.Items) != 3 {
		t.Errorf("expected cache returned unchanged with 3 items, got %d", len(result.Items))
	}
}

func TestReconcileListingFailureLeavesCacheUntouched(t *testing.T) {
	store := setupTestCache(t)
	seedCache(t, store, newFakeSource(1, 2))

	source := newFakeSource(1, 2)
	source.listErr = fmt.Errorf("simulated listing outage")
	rec := New(store, source, testLogger())

	if _, err := rec.Reconcile(context.Background(), Options{}); err == nil {
		t.Fatal("expected an error when the remote listing fails")
	}

	if got := cachedIDs(t, store); len(got) != 2 {
		t.Errorf("cache mutated on listing failure: IDs = %v", got)
	}
}

func TestReconcileEmptyListingLeavesCacheUntouched(t *testing.T) {
	store := setupTestCache(t)
	seedCache(t, store, newFakeSource(1, 2))

	source := newFakeSource() // remote returns no IDs
	rec := New(store, source, testLogger())

	result, err := rec.Reconcile(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if !result.NothingNew {
		t.Error("expected NothingNew for empty remote listing")
	}
	if got := cachedIDs(t, store); len(got) != 2 {
		t.Errorf("cache mutated on empty listing: IDs = %v", got)
	}
}

func TestReconcilePartialFetchFailure(t *testing.T) {
	store := setupTestCache(t)

	source := newFakeSource(1, 2, 3)
	source.failIDs[2] = true
	rec := New(store, source, testLogger())

	result, err := rec.Reconcile(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if result.Fetched != 2 {
		t.Errorf("expected 2 fetched, got %d", result.Fetched)
	}
	if result.FetchFailed != 1 {
		t.Errorf("expected 1 failed fetch, got %d", result.FetchFailed)
	}

	got := cachedIDs(t, store)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("expected cached IDs [1 3], got %v", got)
	}

	// The skipped ID is retried on the next pass.
	source.failIDs[2] = false
	result, err = rec.Reconcile(context.Background(), Options{})
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if result.Fetched != 1 {
		t.Errorf("expected retry to fetch 1 item, got %d", result.Fetched)
	}
	if got := cachedIDs(t, store); len(got) != 3 {
		t.Errorf("expected 3 cached IDs after retry, got %v", got)
	}
}

func TestReconcileForceRefetchReplacesRecords(t *testing.T) {
	store := setupTestCache(t)
	seedCache(t, store, newFakeSource(1))

	// Remote title changes; a plain sync won't see it, --full will.
	source := newFakeSource(1)
	source.items[1].Title = "Renamed upstream"
	rec := New(store, source, testLogger())

	plain, err := rec.Reconcile(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !plain.NothingNew {
		t.Error("expected plain sync to skip already-cached IDs")
	}

	result, err := rec.Reconcile(context.Background(), Options{ForceRefetch: true})
	if err != nil {
		t.Fatalf("forced Reconcile failed: %v", err)
	}
	if result.Fetched != 1 {
		t.Errorf("expected 1 fetched with ForceRefetch, got %d", result.Fetched)
	}

	item, err := store.GetItem(1)
	if err != nil {
		t.Fatalf("failed to read item: %v", err)
	}
	if item.Title != "Renamed upstream" {
		t.Errorf("expected replaced title, got %q", item.Title)
	}

	// Still exactly one row: insert-or-replace, not append.
	count, err := store.CountItems()
	if err != nil {
		t.Fatalf("failed to count items: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 cached item, got %d", count)
	}
}

func TestReconcileDeleteOnly(t *testing.T) {
	store := setupTestCache(t)
	seedCache(t, store, newFakeSource(1, 2, 3))

	// Remote shrinks to {1}; nothing to fetch, but 2 and 3 must go.
	source := newFakeSource(1)
	rec := New(store, source, testLogger())

	result, err := rec.Reconcile(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if result.Deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", result.Deleted)
	}
	if !result.NothingNew {
		t.Error("expected NothingNew when toFetch is empty")
	}
	if source.fetchCalls != 0 {
		t.Errorf("expected zero detail calls, got %d", source.fetchCalls)
	}
	if got := cachedIDs(t, store); len(got) != 1 || got[0] != 1 {
		t.Errorf("expected cached IDs [1], got %v", got)
	}
}
