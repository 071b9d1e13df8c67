// Package sync provides the reconciler that aligns the local work-item
// cache with the remote Azure DevOps identifier set.
package sync

import (
	"context"

	"workdash/internal/workitem"
)

// Source is the remote side of a reconciliation. azdo.Client satisfies it;
// tests substitute a fake.
type Source interface {
	// QueryWorkItemIDs lists the IDs of all work items currently matching
	// the remote filter.
	QueryWorkItemIDs(ctx context.Context) ([]int, error)

	// GetWorkItem fetches the detail record for one work item.
	GetWorkItem(ctx context.Context, id int) (*workitem.WorkItem, error)
}

// Options configures a single reconciliation pass.
type Options struct {
	// ForceRefetch fetches every remote work item instead of only the
	// ones missing from the cache. Insert-or-replace semantics make this
	// safe; it is how records that changed remotely get refreshed.
	ForceRefetch bool
}

// Result reports what a reconciliation pass did.
type Result struct {
	// Remote is the number of IDs the remote listing returned.
	Remote int `json:"remote"`

	// Deleted is the number of cached records removed because their IDs
	// are no longer present remotely.
	Deleted int `json:"deleted"`

	// Fetched is the number of detail records fetched and persisted.
	Fetched int `json:"fetched"`

	// FetchFailed is the number of individual detail fetches that failed
	// and were skipped. Skipped IDs remain un-cached and will be retried
	// on the next pass.
	FetchFailed int `json:"fetch_failed"`

	// NothingNew is true when there was nothing to fetch and the cache
	// was returned unchanged.
	NothingNew bool `json:"nothing_new"`

	// Items is the full cache contents after the pass.
	Items []*workitem.WorkItem `json:"items"`
}

// Reconciler aligns the local cache with the remote identifier set.
//
// A reconciliation pass:
//  1. Lists all current remote IDs. If the listing fails, the pass aborts
//     and the cache is left untouched.
//  2. Deletes cached records whose IDs are no longer present remotely.
//  3. Fetches detail records for IDs not yet cached, one at a time.
//     Individual fetch failures are logged and skipped; the rest of the
//     batch still lands.
//  4. Merges fetched records into the cache with insert-or-replace
//     semantics keyed by ID, in one transaction.
//
// After a successful pass the cache's ID set equals the remote ID set at
// listing time, minus any IDs whose detail fetch failed. Running a pass
// twice with no remote change is a no-op.
type Reconciler interface {
	// Reconcile performs one reconciliation pass and returns what it did
	// together with the resulting cache contents.
	//
	// An empty remote listing is treated as "nothing to sync" and leaves
	// the cache untouched. An outage and a genuinely empty project are
	// indistinguishable at this layer, and trusting an empty listing
	// would let a transient failure wipe the cache.
	Reconcile(ctx context.Context, opts Options) (*Result, error)
}
