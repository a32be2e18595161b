// Package parser turns the block stream into utxos, orders, and
// attributed batch transactions.
package parser

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muesliswap/batcher-monitor/batcher"
	"github.com/muesliswap/batcher-monitor/blockfrost"
	"github.com/muesliswap/batcher-monitor/cardano"
	"github.com/muesliswap/batcher-monitor/chainsync"
	"github.com/muesliswap/batcher-monitor/config"
	"github.com/muesliswap/batcher-monitor/datum"
	"github.com/muesliswap/batcher-monitor/metrics"
	"github.com/muesliswap/batcher-monitor/prices"
	"github.com/muesliswap/batcher-monitor/queue"
	"github.com/muesliswap/batcher-monitor/store"
)

const (
	popTimeout = 10 * time.Second

	// evictionInterval is how many blocks pass between sweeps of
	// long-spent utxos.
	evictionInterval = 1000
)

// UtxoSource resolves the inputs of a transaction the store cannot
// account for, typically outputs created before the bootstrap point.
type UtxoSource interface {
	TxInputs(ctx context.Context, txHash string) ([]blockfrost.Input, error)
}

// Parser consumes blocks from the queue and writes the results of each
// block in one store transaction.
type Parser struct {
	store    *store.Store
	queue    *queue.BlockQueue[chainsync.Block]
	oracle   *prices.Oracle
	fallback UtxoSource
	resolver *batcher.Resolver

	orderbooks  map[string]config.Version
	poolHashes  map[string]bool
	profitAddrs map[string]bool

	openOrders  map[string]bool
	currentSlot uint64
	blocks      uint64

	log *zap.SugaredLogger
}

// New wires a parser. fallback may be nil, in which case transactions
// with unresolvable inputs are stored without attribution.
func New(
	st *store.Store,
	q *queue.BlockQueue[chainsync.Block],
	oracle *prices.Oracle,
	fallback UtxoSource,
	contracts config.Contracts,
	log *zap.SugaredLogger,
) *Parser {
	pool := make(map[string]bool, len(contracts.PoolScriptHashes))
	for _, h := range contracts.PoolScriptHashes {
		pool[h] = true
	}
	profit := make(map[string]bool, len(contracts.ProfitAddresses))
	for _, a := range contracts.ProfitAddresses {
		profit[a] = true
	}
	return &Parser{
		store:       st,
		queue:       q,
		oracle:      oracle,
		fallback:    fallback,
		resolver:    batcher.New(log),
		orderbooks:  contracts.Orderbooks,
		poolHashes:  pool,
		profitAddrs: profit,
		openOrders:  make(map[string]bool),
		log:         log,
	}
}

// Run processes blocks until the queue closes and drains or ctx is done.
func (p *Parser) Run(ctx context.Context) error {
	ids, err := p.store.OpenOrderIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		p.openOrders[id] = true
	}
	metrics.OpenOrders.Set(float64(len(p.openOrders)))
	p.log.Infow("parser starting", "open_orders", len(p.openOrders))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		block, ok := p.queue.Pop(popTimeout)
		if !ok {
			if p.queue.Closed() {
				return nil
			}
			p.log.Debug("no block within timeout")
			continue
		}
		if err := p.processBlock(ctx, block); err != nil {
			return fmt.Errorf("block %s (slot %d): %w", block.ID, block.Slot, err)
		}
	}
}

func (p *Parser) processBlock(ctx context.Context, block chainsync.Block) error {
	stx, err := p.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer stx.Rollback()

	p.currentSlot = block.Slot
	for _, t := range block.Transactions {
		if err := p.processTx(ctx, stx, block, t); err != nil {
			return err
		}
	}

	p.blocks++
	if p.blocks%evictionInterval == 0 && block.Slot > cardano.SlotsPerDay {
		n, err := stx.DeleteUtxosSpentBefore(ctx, block.Slot-cardano.SlotsPerDay)
		if err != nil {
			return err
		}
		p.log.Infow("evicted spent utxos", "rows", n, "slot", block.Slot)
	}

	if err := stx.Commit(); err != nil {
		return err
	}

	metrics.BlocksProcessed.Inc()
	metrics.CurrentSlot.Set(float64(block.Slot))
	metrics.OpenOrders.Set(float64(len(p.openOrders)))
	p.log.Infow("processed block",
		"slot", block.Slot,
		"height", block.Height,
		"time", cardano.SlotTime(block.Slot).Format(time.RFC3339),
		"txs", len(block.Transactions))
	return nil
}

// processTx classifies outputs first so a malformed order datum skips
// the whole transaction before anything is written.
func (p *Parser) processTx(ctx context.Context, stx *store.Tx, block chainsync.Block, t chainsync.Tx) error {
	inputRefs := make([]string, len(t.Inputs))
	for i, in := range t.Inputs {
		inputRefs[i] = in.Ref()
	}
	var orderIDs []string
	for _, ref := range inputRefs {
		if p.openOrders[ref] {
			orderIDs = append(orderIDs, ref)
		}
	}

	var newOrders []store.Order
	var newUtxos []store.Utxo
	for idx, out := range t.Outputs {
		ref := fmt.Sprintf("%s#%d", t.ID, idx)
		version, isOrder := p.orderbooks[out.Address]
		if !isOrder {
			newUtxos = append(newUtxos, store.Utxo{
				ID:          ref,
				Owner:       out.Address,
				Value:       cardano.ValueFromOgmios(out.Value),
				CreatedSlot: block.Slot,
				BlockHash:   block.ID,
			})
			continue
		}
		sender, recipient, err := orderWallets(t, out, version)
		if err != nil {
			p.log.Warnw("undecodable order datum, skipping transaction",
				"tx", t.ID, "output", idx, "err", err)
			return nil
		}
		newOrders = append(newOrders, store.Order{
			ID:         ref,
			Sender:     sender.Key(),
			Recipient:  recipient.Key(),
			PlacedSlot: block.Slot,
		})
	}

	if err := stx.MarkSpent(ctx, inputRefs, block.Slot); err != nil {
		return err
	}
	for _, u := range newUtxos {
		if err := stx.UpsertUtxo(ctx, u); err != nil {
			return err
		}
	}
	for _, o := range newOrders {
		if err := stx.InsertOrder(ctx, o); err != nil {
			return err
		}
		p.openOrders[o.ID] = true
	}

	if len(orderIDs) > 0 {
		if err := p.attribute(ctx, stx, block.Slot, t, inputRefs, orderIDs, newUtxos); err != nil {
			return err
		}
		for _, id := range orderIDs {
			delete(p.openOrders, id)
		}
	}
	return nil
}

// orderWallets extracts the order's sender and recipient wallets from its
// datum. Swap orders carry one wallet used for both roles; liquidity
// orders carry the pair explicitly.
func orderWallets(t chainsync.Tx, out chainsync.TxOutput, version config.Version) (datum.Wallet, datum.Wallet, error) {
	cborHex := out.Datum
	if cborHex == "" {
		cborHex = t.Datums[out.DatumHash]
	}
	if cborHex == "" {
		return datum.Wallet{}, datum.Wallet{}, fmt.Errorf("order output carries no datum")
	}
	d, err := datum.DecodeHex(cborHex)
	if err != nil {
		return datum.Wallet{}, datum.Wallet{}, err
	}

	if !version.IsLiquidity() {
		w, err := datum.ExtractWallet(d)
		if err != nil {
			return datum.Wallet{}, datum.Wallet{}, err
		}
		return w, w, nil
	}

	senderNode, err := datum.Field(d, 0)
	if err != nil {
		return datum.Wallet{}, datum.Wallet{}, err
	}
	sender, err := datum.ExtractWallet(senderNode)
	if err != nil {
		return datum.Wallet{}, datum.Wallet{}, err
	}
	recipientNode, err := datum.Field(d, 1)
	if err != nil {
		return datum.Wallet{}, datum.Wallet{}, err
	}
	recipient, err := datum.ExtractWallet(recipientNode)
	if err != nil {
		return datum.Wallet{}, datum.Wallet{}, err
	}
	return sender, recipient, nil
}
