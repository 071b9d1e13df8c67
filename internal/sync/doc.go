// Package sync provides the reconciliation bridge between Azure DevOps and
// the local work-item cache.
//
// # Overview
//
// The sync package implements the core logic of workdash: a set-difference
// reconciliation between the remote identifier set and the locally cached
// one. It fetches only records it doesn't have, deletes records the remote
// no longer has, and leaves everything else alone.
//
// # Architecture
//
//	Azure DevOps (remote)
//	     ├── WIQL query            → []int remote IDs
//	     └── detail fetch          → workitem.WorkItem
//	                                      ↓
//	                                  Reconciler
//	                                      ↓
//	                                  SQLite cache
//	                                  (read by CLI and dashboard)
//
// # Usage
//
//	store, err := cache.Open("work_items.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.InitSchema(); err != nil {
//	    return err
//	}
//
//	client, err := azdo.New(azdo.Config{ /* ... */ })
//	if err != nil {
//	    return err
//	}
//
//	rec := sync.New(store, client, nil)
//	result, err := rec.Reconcile(ctx, sync.Options{})
//
// # Error handling
//
// Two failure severities exist:
//
//   - Listing failure: the remote ID query failed. The pass aborts with an
//     error and the cache is left exactly as it was.
//   - Detail-fetch failure: one record fetch failed. It is logged as a
//     warning and skipped; the rest of the batch still persists. The
//     skipped ID remains absent from the cache and is retried on the next
//     pass.
//
// An empty remote listing is deliberately treated as "nothing to sync"
// rather than "delete everything", since it is indistinguishable from an
// outage at this layer.
package sync
