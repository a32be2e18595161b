package parser

import (
	"context"
	"errors"
	"fmt"

	"github.com/muesliswap/batcher-monitor/blockfrost"
	"github.com/muesliswap/batcher-monitor/cardano"
	"github.com/muesliswap/batcher-monitor/chainsync"
	"github.com/muesliswap/batcher-monitor/metrics"
	"github.com/muesliswap/batcher-monitor/store"
)

// ErrMissingInputs reports inputs that neither the store nor the
// fallback could resolve. The affected transaction stays unattributed.
var ErrMissingInputs = errors.New("parser: inputs unresolvable")

// attribute computes the profit flow of one batch transaction and writes
// the attributed transaction row. Inputs that cannot be resolved even
// through the fallback make the transaction unattributable; it is then
// skipped without failing the block.
func (p *Parser) attribute(
	ctx context.Context,
	stx *store.Tx,
	slot uint64,
	t chainsync.Tx,
	inputRefs, orderIDs []string,
	outputs []store.Utxo,
) error {
	orderSet := make(map[string]bool, len(orderIDs))
	for _, id := range orderIDs {
		orderSet[id] = true
	}
	var plainRefs []string
	for _, ref := range inputRefs {
		if !orderSet[ref] {
			plainRefs = append(plainRefs, ref)
		}
	}

	loaded, err := stx.GetUtxos(ctx, plainRefs)
	if err != nil {
		return err
	}
	var missing []string
	for _, ref := range plainRefs {
		if _, ok := loaded[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		synth, err := p.resolveMissing(ctx, t.ID, missing)
		if err != nil {
			p.log.Warnw("skipping attribution, inputs unresolvable",
				"tx", t.ID, "missing", len(missing), "err", err)
			return nil
		}
		for ref, u := range synth {
			loaded[ref] = u
		}
	}

	orders, err := stx.GetOrders(ctx, orderIDs)
	if err != nil {
		return err
	}
	senders := make(map[string]bool, len(orders))
	recipients := make(map[string]bool, len(orders))
	for _, o := range orders {
		sAddr, err := walletBech32(o.Sender)
		if err != nil {
			p.log.Warnw("skipping attribution, bad sender wallet", "tx", t.ID, "err", err)
			return nil
		}
		rAddr, err := walletBech32(o.Recipient)
		if err != nil {
			p.log.Warnw("skipping attribution, bad recipient wallet", "tx", t.ID, "err", err)
			return nil
		}
		senders[sAddr] = true
		recipients[rAddr] = true
	}

	// Inputs not owned by the order senders belong to whoever ran the
	// batch; their owners are the batcher candidates.
	inValue := cardano.Value{}
	var candidates []string
	seen := make(map[string]bool)
	for _, ref := range plainRefs {
		u, ok := loaded[ref]
		if !ok || senders[u.Owner] {
			continue
		}
		inValue.Add(u.Value)
		if !seen[u.Owner] {
			seen[u.Owner] = true
			candidates = append(candidates, u.Owner)
		}
	}

	outValue := cardano.Value{}
	for _, u := range outputs {
		if senders[u.Owner] || recipients[u.Owner] || p.profitAddrs[u.Owner] {
			continue
		}
		if ph, err := cardano.PaymentHash(u.Owner); err == nil && p.poolHashes[ph] {
			continue
		}
		outValue.Add(u.Value)
	}

	diff := inValue.Diff(outValue)
	adaProfit := diff.Lovelace()
	netAssets := cardano.Value{}
	var equivalent float64
	for tok, amt := range diff {
		if tok.IsLovelace() {
			continue
		}
		netAssets[tok] = amt
		price, err := p.oracle.Price(ctx, tok)
		if err != nil {
			p.log.Debugw("no quote for asset", "token", tok.String(), "err", err)
			continue
		}
		equivalent += float64(amt) * price
	}

	batcherID, err := p.resolver.Resolve(ctx, stx, candidates)
	if err != nil {
		return err
	}

	_, err = stx.InsertTransaction(ctx, store.Transaction{
		TxHash:        t.ID,
		Slot:          slot,
		BatcherID:     batcherID,
		AdaProfit:     adaProfit,
		NetworkFee:    t.Fee.Ada.Lovelace,
		EquivalentAda: int64(equivalent),
		NetAssets:     netAssets,
	}, orderIDs)
	if err != nil {
		return err
	}
	metrics.TransactionsAttributed.Inc()
	return nil
}

// resolveMissing synthesizes utxos for inputs the store never saw.
// A single external lookup of the consuming transaction describes all
// of its inputs; extraneous entries are discarded.
func (p *Parser) resolveMissing(ctx context.Context, txHash string, refs []string) (map[string]store.Utxo, error) {
	if p.fallback == nil {
		return nil, fmt.Errorf("%w: no fallback source configured", ErrMissingInputs)
	}

	fetched, err := p.fallback.TxInputs(ctx, txHash)
	if err != nil {
		return nil, err
	}
	byRef := make(map[string]blockfrost.Input, len(fetched))
	for _, in := range fetched {
		byRef[in.Ref()] = in
	}

	out := make(map[string]store.Utxo, len(refs))
	for _, ref := range refs {
		in, ok := byRef[ref]
		if !ok {
			return nil, fmt.Errorf("%w: input %s not in external response for %s", ErrMissingInputs, ref, txHash)
		}
		out[ref] = store.Utxo{ID: ref, Owner: in.Address, Value: in.Value}
	}
	return out, nil
}

// walletBech32 renders a stored wallet key (pkh || skh hex) as the
// mainnet bech32 address it pays to.
func walletBech32(key string) (string, error) {
	if len(key) < 56 {
		return "", fmt.Errorf("wallet key too short: %q", key)
	}
	return cardano.FromKeyHashes(key[:56], key[56:]).Bech32()
}
