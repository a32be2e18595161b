package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/muesliswap/batcher-monitor/cardano"
	"github.com/muesliswap/batcher-monitor/store"
)

func seededServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(filepath.Join(t.TempDir(), "api.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.InitSchema(ctx); err != nil {
		t.Fatal(err)
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	bid, err := tx.CreateBatcher(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.LinkAddress(ctx, "addr1seeded", bid); err != nil {
		t.Fatal(err)
	}
	if _, err := tx.InsertTransaction(ctx, store.Transaction{
		TxHash: "cafe", Slot: 100, BatcherID: &bid,
		AdaProfit: 2_000_000, EquivalentAda: 500_000,
		NetAssets: cardano.Value{},
	}, nil); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	NewServer(s, zap.NewNop().Sugar()).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestBatchersEndpoint(t *testing.T) {
	srv := seededServer(t)
	var batchers []struct {
		TransactionCount int      `json:"transaction_count"`
		Addresses        []string `json:"addresses"`
	}
	if code := getJSON(t, srv.URL+"/batchers", &batchers); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(batchers) != 1 || batchers[0].TransactionCount != 1 {
		t.Errorf("batchers: %+v", batchers)
	}
	if len(batchers[0].Addresses) != 1 || batchers[0].Addresses[0] != "addr1seeded" {
		t.Errorf("addresses: %v", batchers[0].Addresses)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := seededServer(t)
	var stats struct {
		Total float64 `json:"total"`
	}
	if code := getJSON(t, srv.URL+"/stats?address=addr1seeded", &stats); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if stats.Total != 2_500_000 {
		t.Errorf("total: %f", stats.Total)
	}

	if code := getJSON(t, srv.URL+"/stats?address=addr1nobody", &stats); code != http.StatusNotFound {
		t.Errorf("unknown address: status %d", code)
	}
	if code := getJSON(t, srv.URL+"/stats", &stats); code != http.StatusBadRequest {
		t.Errorf("missing address: status %d", code)
	}
}

func TestAllStatsEndpoint(t *testing.T) {
	srv := seededServer(t)
	var all []struct {
		NumTransactions int      `json:"num_transactions"`
		Addresses       []string `json:"addresses"`
	}
	if code := getJSON(t, srv.URL+"/all-stats", &all); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(all) != 1 || all[0].NumTransactions != 1 {
		t.Errorf("all-stats: %+v", all)
	}
}

func TestTransactionsEndpoint(t *testing.T) {
	srv := seededServer(t)
	var txs []struct {
		TxHash    string `json:"tx_hash"`
		AdaProfit int64  `json:"ada_profit"`
	}
	if code := getJSON(t, srv.URL+"/transactions?address=addr1seeded", &txs); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(txs) != 1 || txs[0].TxHash != "cafe" || txs[0].AdaProfit != 2_000_000 {
		t.Errorf("transactions: %+v", txs)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := seededServer(t)
	var health map[string]string
	if code := getJSON(t, srv.URL+"/health", &health); code != http.StatusOK || health["status"] != "ok" {
		t.Errorf("health: %v", health)
	}
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status %d", resp.StatusCode)
	}
}
