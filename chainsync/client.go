package chainsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muesliswap/batcher-monitor/queue"
)

const (
	// pipelineDepth is how many nextBlock requests stay in flight.
	pipelineDepth = 100

	handshakeTimeout = 10 * time.Second
)

var (
	// ErrIntersectionNotFound reports that the node does not know the
	// proposed point, usually because it was forked away.
	ErrIntersectionNotFound = errors.New("chainsync: intersection not found")

	// ErrRollbackBackward reports a backward message mid-stream. The
	// caller restarts the connection with fork recovery.
	ErrRollbackBackward = errors.New("chainsync: node rolled backward")
)

func utxoRef(txHash string, index uint32) string {
	return txHash + "#" + strconv.FormatUint(uint64(index), 10)
}

// RollbackSource proposes progressively older points during fork
// recovery and truncates local state once one is accepted.
type RollbackSource interface {
	PrevBlock() (slot uint64, hash string, err error)
	Rollback(ctx context.Context, slot uint64) error
}

// Client is a chain-sync session against one Ogmios node.
type Client struct {
	conn *websocket.Conn
	log  *zap.SugaredLogger
}

// Dial opens the websocket session.
func Dial(ctx context.Context, url string, log *zap.SugaredLogger) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn, log: log}, nil
}

// Close shuts the session down.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(method string, params any) error {
	req := request{JSONRPC: "2.0", Method: method, Params: params}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}
	return nil
}

func (c *Client) recv() (*response, error) {
	var resp response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("recv: %w", err)
	}
	return &resp, nil
}

// FindIntersection proposes a single point. ErrIntersectionNotFound when
// the node rejects it.
func (c *Client) FindIntersection(p Point) error {
	if err := c.send("findIntersection", intersectionParams{Points: []Point{p}}); err != nil {
		return err
	}
	resp, err := c.recv()
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s (slot %d)", ErrIntersectionNotFound, resp.Error.Message, p.Slot)
	}
	return nil
}

// Connect negotiates an intersection starting at start. When the node
// rejects it, progressively older points from rb are proposed; on the
// first accepted one the local store is rolled back to match. The
// backward acknowledgement that follows intersection is consumed here so
// Run sees only forward traffic.
func (c *Client) Connect(ctx context.Context, start Point, rb RollbackSource) error {
	err := c.FindIntersection(start)
	for errors.Is(err, ErrIntersectionNotFound) {
		slot, hash, perr := rb.PrevBlock()
		if perr != nil {
			return fmt.Errorf("fork recovery: %w", perr)
		}
		c.log.Infow("proposing older intersection", "slot", slot)
		if err = c.FindIntersection(Point{Slot: slot, Hash: hash}); err == nil {
			if rerr := rb.Rollback(ctx, slot); rerr != nil {
				return rerr
			}
		}
	}
	if err != nil {
		return err
	}

	if err := c.send("nextBlock", nil); err != nil {
		return err
	}
	resp, err := c.recv()
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("chainsync: nextBlock: %s", resp.Error.Message)
	}
	var res nextBlockResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		return fmt.Errorf("chainsync: decode nextBlock: %w", err)
	}
	if res.Direction != "backward" {
		return fmt.Errorf("chainsync: expected backward acknowledgement, got %q", res.Direction)
	}
	return nil
}

// Run pipelines nextBlock requests and pushes each forward block onto q.
// Returns ErrRollbackBackward when the node announces a fork; the caller
// reconnects with fork recovery. Blocks until the connection fails or
// ctx is done.
func (c *Client) Run(ctx context.Context, q *queue.BlockQueue[Block]) error {
	for i := 0; i < pipelineDepth; i++ {
		if err := c.send("nextBlock", nil); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := c.recv()
		if err != nil {
			return err
		}
		if resp.Error != nil {
			return fmt.Errorf("chainsync: nextBlock: %s", resp.Error.Message)
		}
		var res nextBlockResult
		if err := json.Unmarshal(resp.Result, &res); err != nil {
			return fmt.Errorf("chainsync: decode nextBlock: %w", err)
		}
		if res.Direction == "backward" {
			var p Point
			_ = json.Unmarshal(res.Point, &p)
			c.log.Warnw("node rolled backward", "slot", p.Slot)
			return ErrRollbackBackward
		}

		var block Block
		if err := json.Unmarshal(res.Block, &block); err != nil {
			return fmt.Errorf("chainsync: decode block: %w", err)
		}
		q.Push(block)

		if err := c.send("nextBlock", nil); err != nil {
			return err
		}
	}
}
