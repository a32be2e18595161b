// Package rollback walks the store backwards to recover from chain forks.
package rollback

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muesliswap/batcher-monitor/cardano"
	"github.com/muesliswap/batcher-monitor/metrics"
	"github.com/muesliswap/batcher-monitor/store"
)

// maxAllowedSlots caps how far back fork recovery may reach. Two days of
// 20-second security-parameter blocks; anything deeper indicates a
// corrupt store, not a fork.
const maxAllowedSlots = 2 * cardano.SlotsPerDay / 20

// ErrExceededRollback reports a fork deeper than the allowed window.
var ErrExceededRollback = errors.New("rollback: exceeded maximum allowed depth")

// ErrNoMoreBlocks reports that the store has no older point to offer.
var ErrNoMoreBlocks = errors.New("rollback: no more blocks")

// Handler proposes progressively older intersection points and truncates
// the store once one is accepted. The candidate points are loaded up
// front so no store cursor is held while Rollback runs its transaction.
type Handler struct {
	store        *store.Store
	points       []store.BlockPoint
	pos          int
	originalSlot uint64
	log          *zap.SugaredLogger
}

// New opens a handler anchored at the store's current tip. The first
// point of the walk is the tip itself and is skipped: the caller already
// knows the node rejected it.
func New(ctx context.Context, st *store.Store, log *zap.SugaredLogger) (*Handler, error) {
	tip, _, err := st.MaxSlotBlock(ctx)
	if err != nil {
		return nil, err
	}
	points, err := st.CreatedBlocks(ctx)
	if err != nil {
		return nil, err
	}
	return &Handler{store: st, points: points, pos: 1, originalSlot: tip, log: log}, nil
}

// PrevBlock yields the next older candidate point. ErrNoMoreBlocks once
// the store is exhausted, ErrExceededRollback past the depth cap.
func (h *Handler) PrevBlock() (slot uint64, hash string, err error) {
	if h.pos >= len(h.points) {
		return 0, "", ErrNoMoreBlocks
	}
	p := h.points[h.pos]
	h.pos++
	if h.originalSlot-p.Slot > maxAllowedSlots {
		return 0, "", fmt.Errorf("%w: tip %d, candidate %d", ErrExceededRollback, h.originalSlot, p.Slot)
	}
	return p.Slot, p.Hash, nil
}

// Rollback truncates everything past the accepted point in one
// transaction.
func (h *Handler) Rollback(ctx context.Context, slot uint64) error {
	h.log.Infow("rolling back", "slot", slot, "tip", h.originalSlot)

	tx, err := h.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.DeleteUtxosCreatedAfter(ctx, slot); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rollback commit: %w", err)
	}

	metrics.Rollbacks.Inc()
	return nil
}
