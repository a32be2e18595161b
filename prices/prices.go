// Package prices quotes native assets in lovelace via the analytics
// price oracle.
package prices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muesliswap/batcher-monitor/cardano"
	"github.com/muesliswap/batcher-monitor/metrics"
)

// ErrUnavailable reports a failed quote. Callers treat the asset as
// contributing nothing rather than aborting.
var ErrUnavailable = errors.New("prices: unavailable")

// refreshInterval is how long a quote stays fresh. The oracle itself
// aggregates slowly, so hammering it buys nothing.
const refreshInterval = 180 * time.Second

type quote struct {
	price     float64
	fetchedAt time.Time
}

// Oracle is a caching price client. Quotes are per token against ada.
type Oracle struct {
	baseURL string
	http    *http.Client
	log     *zap.SugaredLogger

	mu    sync.Mutex
	cache map[cardano.Token]quote
	now   func() time.Time
}

// New returns an oracle client against baseURL.
func New(baseURL string, log *zap.SugaredLogger) *Oracle {
	return &Oracle{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
		cache:   make(map[cardano.Token]quote),
		now:     time.Now,
	}
}

// Price quotes one unit of t in lovelace-per-unit terms. The native coin
// is always 1. Stale or missing quotes are refreshed; on failure the
// last known quote is served if one exists.
func (o *Oracle) Price(ctx context.Context, t cardano.Token) (float64, error) {
	if t.IsLovelace() {
		return 1, nil
	}

	o.mu.Lock()
	cached, ok := o.cache[t]
	o.mu.Unlock()
	if ok && o.now().Sub(cached.fetchedAt) < refreshInterval {
		return cached.price, nil
	}

	price, err := o.fetch(ctx, t)
	if err != nil {
		metrics.OracleErrors.Inc()
		if ok {
			o.log.Debugw("serving stale quote", "token", t.String(), "err", err)
			return cached.price, nil
		}
		return 0, err
	}

	o.mu.Lock()
	o.cache[t] = quote{price: price, fetchedAt: o.now()}
	o.mu.Unlock()
	return price, nil
}

func (o *Oracle) fetch(ctx context.Context, t cardano.Token) (float64, error) {
	// The base side stays empty, denoting ada; the quoted asset goes on
	// the quote side.
	params := url.Values{}
	params.Set("base-policy-id", "")
	params.Set("base-tokenname", "")
	params.Set("quote-policy-id", t.PolicyID)
	params.Set("quote-tokenname", t.Name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		o.baseURL+"/price?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: oracle returned %d for %s", ErrUnavailable, resp.StatusCode, t.String())
	}

	var body struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return body.Price, nil
}
