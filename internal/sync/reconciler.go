package sync

import (
	"context"
	"fmt"
	"log"
	"os"

	"workdash/internal/cache"
	"workdash/internal/workitem"
)

// reconciler implements the Reconciler interface.
type reconciler struct {
	cache  *cache.Cache
	source Source
	logger *log.Logger
}

// New creates a new Reconciler instance.
//
// The cache must be opened and have its schema initialized before being
// passed in. If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	store, err := cache.Open("work_items.db")
//	if err != nil {
//	    return err
//	}
//	if err := store.InitSchema(); err != nil {
//	    return err
//	}
//	rec := sync.New(store, client, nil)
func New(store *cache.Cache, source Source, logger *log.Logger) Reconciler {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &reconciler{
		cache:  store,
		source: source,
		logger: logger,
	}
}

// Reconcile implements Reconciler.Reconcile.
func (r *reconciler) Reconcile(ctx context.Context, opts Options) (*Result, error) {
	remoteIDs, err := r.source.QueryWorkItemIDs(ctx)
	if err != nil {
		// Fail closed: no partial deletes on a failed listing.
		return nil, fmt.Errorf("failed to list remote work items: %w", err)
	}

	result := &Result{Remote: len(remoteIDs)}

	if len(remoteIDs) == 0 {
		// Indistinguishable from a remote outage, so don't treat it as
		// "delete everything".
		r.logger.Printf("Remote listing returned no work items; leaving cache untouched")
		result.NothingNew = true
		result.Items, err = r.cache.ListItemsContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read cache: %w", err)
		}
		return result, nil
	}

	localIDs, err := r.cache.ListIDsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached IDs: %w", err)
	}

	remote := make(map[int]bool, len(remoteIDs))
	for _, id := range remoteIDs {
		remote[id] = true
	}
	local := make(map[int]bool, len(localIDs))
	for _, id := range localIDs {
		local[id] = true
	}

	// toDelete = L \ R
	var toDelete []int
	for _, id := range localIDs {
		if !remote[id] {
			toDelete = append(toDelete, id)
		}
	}
	if len(toDelete) > 0 {
		if err := r.cache.DeleteItemsContext(ctx, toDelete); err != nil {
			return nil, fmt.Errorf("failed to delete stale work items: %w", err)
		}
		r.logger.Printf("Deleted %d work items no longer present remotely", len(toDelete))
	}
	result.Deleted = len(toDelete)

	// toFetch = R \ L, preserving remote listing order.
	var toFetch []int
	for _, id := range remoteIDs {
		if opts.ForceRefetch || !local[id] {
			toFetch = append(toFetch, id)
		}
	}

	if len(toFetch) == 0 {
		r.logger.Printf("No new work items to download")
		result.NothingNew = true
		result.Items, err = r.cache.ListItemsContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read cache: %w", err)
		}
		return result, nil
	}

	r.logger.Printf("Downloading %d work items...", len(toFetch))

	// Sequential fetch; skipped IDs stay in toFetch on the next pass.
	var fetched []*workitem.WorkItem
	for _, id := range toFetch {
		item, err := r.source.GetWorkItem(ctx, id)
		if err != nil {
			r.logger.Printf("WARNING: Failed to fetch work item %d: %v", id, err)
			result.FetchFailed++
			continue
		}
		fetched = append(fetched, item)
	}

	if len(fetched) > 0 {
		if err := r.cache.UpsertItemsContext(ctx, fetched); err != nil {
			return nil, fmt.Errorf("failed to persist fetched work items: %w", err)
		}
	}
	result.Fetched = len(fetched)

	result.Items, err = r.cache.ListItemsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	r.logger.Printf("Sync complete: remote=%d deleted=%d fetched=%d failed=%d",
		result.Remote, result.Deleted, result.Fetched, result.FetchFailed)

	return result, nil
}
