// Command querier follows the chain through an Ogmios node, attributes
// DEX batch transactions to batcher identities, and serves the
// aggregated analytics over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muesliswap/batcher-monitor/api"
	"github.com/muesliswap/batcher-monitor/blockfrost"
	"github.com/muesliswap/batcher-monitor/chainsync"
	"github.com/muesliswap/batcher-monitor/config"
	"github.com/muesliswap/batcher-monitor/logging"
	"github.com/muesliswap/batcher-monitor/parser"
	"github.com/muesliswap/batcher-monitor/prices"
	"github.com/muesliswap/batcher-monitor/queue"
	"github.com/muesliswap/batcher-monitor/rollback"
	"github.com/muesliswap/batcher-monitor/store"
)

func main() {
	contractsPath := flag.String("contracts", "", "YAML contract table override")
	apiOnly := flag.Bool("api-only", false, "serve the HTTP API without following the chain")
	// Accepted for compatibility with older deployments; the pipelined
	// runner is always used.
	_ = flag.Bool("singlethreaded", false, "ignored")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)
	defer log.Sync()

	if err := run(cfg, *contractsPath, *apiOnly, log); err != nil {
		log.Fatalw("querier failed", "err", err)
	}
}

func run(cfg config.Config, contractsPath string, apiOnly bool, log *zap.SugaredLogger) error {
	ctx := context.Background()

	contracts := config.DefaultContracts()
	if contractsPath != "" {
		var err error
		if contracts, err = config.LoadContracts(contractsPath); err != nil {
			return err
		}
	}

	st, err := store.Open(cfg.DatabaseURI)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.InitSchema(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	api.NewServer(st, log).RegisterRoutes(mux)
	go func() {
		log.Infow("serving API", "addr", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			log.Fatalw("api server failed", "err", err)
		}
	}()

	if apiOnly {
		select {}
	}

	var fallback parser.UtxoSource
	if cfg.BlockfrostProjectID != "" {
		bf, err := blockfrost.New(cfg.BlockfrostURL, cfg.BlockfrostProjectID, cfg.CacheDir, log)
		if err != nil {
			return err
		}
		defer bf.Close()
		fallback = bf
	} else {
		log.Warn("BLOCKFROST_PROJECT_ID not set, missing inputs will not be resolved")
	}

	oracle := prices.New(cfg.OracleURL, log)

	if err := startupRollback(ctx, st, log); err != nil {
		return err
	}

	// Each session syncs until the node announces a fork, then the store
	// is rolled back to a shared point and the session restarts.
	for {
		err := syncSession(ctx, cfg, st, oracle, fallback, contracts, log)
		if errors.Is(err, chainsync.ErrRollbackBackward) {
			log.Infow("reconnecting after fork")
			continue
		}
		return err
	}
}

// startupRollback drops the newest stored block: the process may have
// died while it was half-written, and replaying it is cheap.
func startupRollback(ctx context.Context, st *store.Store, log *zap.SugaredLogger) error {
	tip, _, err := st.MaxSlotBlock(ctx)
	if err != nil || tip == 0 {
		return err
	}
	rb, err := rollback.New(ctx, st, log)
	if err != nil {
		return err
	}
	slot, _, err := rb.PrevBlock()
	if errors.Is(err, rollback.ErrNoMoreBlocks) {
		slot = tip - 1
	} else if err != nil {
		return err
	}
	return rb.Rollback(ctx, slot)
}

func syncSession(
	ctx context.Context,
	cfg config.Config,
	st *store.Store,
	oracle *prices.Oracle,
	fallback parser.UtxoSource,
	contracts config.Contracts,
	log *zap.SugaredLogger,
) error {
	start := chainsync.Point{Slot: contracts.StartSlot, Hash: contracts.StartHash}
	if slot, hash, err := st.MaxSlotBlock(ctx); err != nil {
		return err
	} else if slot > 0 {
		start = chainsync.Point{Slot: slot, Hash: hash}
	}
	log.Infow("starting chain sync", "slot", start.Slot)

	client, err := chainsync.Dial(ctx, cfg.OgmiosURL, log)
	if err != nil {
		return err
	}
	defer client.Close()

	rb, err := rollback.New(ctx, st, log)
	if err != nil {
		return err
	}
	if err := client.Connect(ctx, start, rb); err != nil {
		return err
	}

	q := queue.New[chainsync.Block]()
	p := parser.New(st, q, oracle, fallback, contracts, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer q.Close()
		return client.Run(gctx, q)
	})
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		// Unblocks the websocket read if the parser fails first.
		<-gctx.Done()
		client.Close()
		return nil
	})
	return g.Wait()
}
