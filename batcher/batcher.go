// Package batcher maintains batcher identities. Addresses observed
// profiting from the same batch transaction belong to the same operator,
// so identities are merged union-find style as the chain reveals links.
package batcher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/muesliswap/batcher-monitor/metrics"
	"github.com/muesliswap/batcher-monitor/store"
)

// Resolver maps candidate address sets to one batcher id per
// transaction. It keeps an in-memory view of address ownership and merge
// history so repeat lookups skip the store; the store stays canonical.
type Resolver struct {
	byAddress map[string]int64
	parent    map[int64]int64
	log       *zap.SugaredLogger
}

// New returns an empty resolver.
func New(log *zap.SugaredLogger) *Resolver {
	return &Resolver{
		byAddress: make(map[string]int64),
		parent:    make(map[int64]int64),
		log:       log,
	}
}

// find follows merge forwarding with path compression.
func (r *Resolver) find(id int64) int64 {
	root := id
	for {
		next, ok := r.parent[root]
		if !ok {
			break
		}
		root = next
	}
	for id != root {
		next := r.parent[id]
		r.parent[id] = root
		id = next
	}
	return root
}

func (r *Resolver) lookup(ctx context.Context, tx *store.Tx, addr string) (int64, bool, error) {
	if id, ok := r.byAddress[addr]; ok {
		return r.find(id), true, nil
	}
	id, err := tx.FindBatcherByAddress(ctx, addr)
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	r.byAddress[addr] = id
	return r.find(id), true, nil
}

// Resolve attributes one transaction's candidate addresses to a batcher.
// No candidates yields nil. All-unknown candidates mint a fresh identity.
// Candidates spanning several identities merge them into the first one
// seen, rewiring history in the store.
func (r *Resolver) Resolve(ctx context.Context, tx *store.Tx, addrs []string) (*int64, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	var known []int64
	seen := make(map[int64]bool)
	var unknown []string
	for _, addr := range addrs {
		id, ok, err := r.lookup(ctx, tx, addr)
		if err != nil {
			return nil, err
		}
		if !ok {
			unknown = append(unknown, addr)
			continue
		}
		if !seen[id] {
			seen[id] = true
			known = append(known, id)
		}
	}

	var dst int64
	if len(known) == 0 {
		id, err := tx.CreateBatcher(ctx)
		if err != nil {
			return nil, err
		}
		dst = id
	} else {
		dst = known[0]
		for _, src := range known[1:] {
			r.log.Infow("merging batchers", "into", dst, "from", src)
			if err := tx.MergeBatchers(ctx, dst, src); err != nil {
				return nil, err
			}
			r.parent[src] = dst
			metrics.BatcherMerges.Inc()
		}
	}

	for _, addr := range unknown {
		if err := tx.LinkAddress(ctx, addr, dst); err != nil {
			return nil, err
		}
		r.byAddress[addr] = dst
	}
	return &dst, nil
}
