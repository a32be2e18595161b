// Package blockfrost resolves transaction inputs the local store has
// never seen, typically outputs created before the bootstrap point.
// Responses are immutable, so they are cached on disk forever.
package blockfrost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Salvionied/apollo/serialization/Address"
	"github.com/cockroachdb/pebble/v2"
	"go.uber.org/zap"

	"github.com/muesliswap/batcher-monitor/cardano"
	"github.com/muesliswap/batcher-monitor/metrics"
)

// ErrUnavailable reports that the lookup failed. The caller skips
// attribution for the affected transaction rather than aborting.
var ErrUnavailable = errors.New("blockfrost: unavailable")

// Input is one input of a fetched transaction, i.e. an output some
// earlier transaction produced.
type Input struct {
	TxHash  string
	Index   uint32
	Address string
	Value   cardano.Value
}

// Ref renders the canonical "txHash#index" form.
func (in Input) Ref() string {
	return fmt.Sprintf("%s#%d", in.TxHash, in.Index)
}

// Client fetches /txs/{hash}/utxos with a persistent response cache.
type Client struct {
	baseURL   string
	projectID string
	http      *http.Client
	cache     *pebble.DB
	log       *zap.SugaredLogger
}

// New opens the client and its pebble cache at cacheDir.
func New(baseURL, projectID, cacheDir string, log *zap.SugaredLogger) (*Client, error) {
	db, err := pebble.Open(cacheDir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Client{
		baseURL:   baseURL,
		projectID: projectID,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     2 * time.Minute,
			},
		},
		cache: db,
		log:   log,
	}, nil
}

// Close releases the cache.
func (c *Client) Close() error {
	return c.cache.Close()
}

type txUtxosResponse struct {
	Inputs []struct {
		Address     string `json:"address"`
		TxHash      string `json:"tx_hash"`
		OutputIndex uint32 `json:"output_index"`
		Amount      []struct {
			Unit     string `json:"unit"`
			Quantity string `json:"quantity"`
		} `json:"amount"`
	} `json:"inputs"`
}

// TxInputs returns the inputs consumed by the given transaction, each
// identified by the producing transaction hash and output index. Inputs
// with addresses that do not parse as Cardano addresses are skipped.
func (c *Client) TxInputs(ctx context.Context, txHash string) ([]Input, error) {
	raw, err := c.fetch(ctx, txHash)
	if err != nil {
		metrics.FallbackErrors.Inc()
		return nil, err
	}

	var resp txUtxosResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		metrics.FallbackErrors.Inc()
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, txHash, err)
	}

	ins := make([]Input, 0, len(resp.Inputs))
	for _, in := range resp.Inputs {
		if _, err := Address.DecodeAddress(in.Address); err != nil {
			c.log.Debugw("skipping unparseable address", "tx", txHash, "address", in.Address)
			continue
		}
		val := cardano.Value{}
		for _, a := range in.Amount {
			amount, err := strconv.ParseInt(a.Quantity, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: quantity %q in %s", ErrUnavailable, a.Quantity, txHash)
			}
			tok, err := cardano.TokenFromUnit(a.Unit)
			if err != nil {
				return nil, fmt.Errorf("%w: unit %q in %s", ErrUnavailable, a.Unit, txHash)
			}
			val[tok] += amount
		}
		ins = append(ins, Input{
			TxHash:  in.TxHash,
			Index:   in.OutputIndex,
			Address: in.Address,
			Value:   val,
		})
	}
	return ins, nil
}

// fetch returns the raw response body, served from the cache when the
// transaction was seen before.
func (c *Client) fetch(ctx context.Context, txHash string) ([]byte, error) {
	key := []byte("txutxos:" + txHash)
	if cached, closer, err := c.cache.Get(key); err == nil {
		body := make([]byte, len(cached))
		copy(body, cached)
		closer.Close()
		return body, nil
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: cache read: %v", ErrUnavailable, err)
	}

	url := c.baseURL + "/txs/" + txHash + "/utxos"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("project_id", c.projectID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnavailable, url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if err := c.cache.Set(key, body, pebble.Sync); err != nil {
		c.log.Warnw("cache write failed", "tx", txHash, "err", err)
	}
	return body, nil
}
