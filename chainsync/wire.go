// Package chainsync streams blocks from an Ogmios node over websocket.
package chainsync

import "encoding/json"

// Point identifies a block on the chain.
type Point struct {
	Slot uint64 `json:"slot"`
	Hash string `json:"id"`
}

// Block is the subset of the Ogmios block payload the parser consumes.
type Block struct {
	ID           string `json:"id"`
	Slot         uint64 `json:"slot"`
	Height       uint64 `json:"height"`
	Transactions []Tx   `json:"transactions"`
}

// Tx is one transaction inside a block.
type Tx struct {
	ID      string            `json:"id"`
	Inputs  []TxInput         `json:"inputs"`
	Outputs []TxOutput        `json:"outputs"`
	Datums  map[string]string `json:"datums"`
	Fee     Fee               `json:"fee"`
}

// TxInput references a previously produced output.
type TxInput struct {
	Transaction struct {
		ID string `json:"id"`
	} `json:"transaction"`
	Index uint32 `json:"index"`
}

// Ref renders the canonical "txHash#index" form.
func (in TxInput) Ref() string {
	return utxoRef(in.Transaction.ID, in.Index)
}

// TxOutput is a produced output. Value maps policy id to asset name to
// amount; ada appears under the "ada"/"lovelace" pair. Datum is the
// inline datum CBOR hex when present.
type TxOutput struct {
	Address   string                      `json:"address"`
	Value     map[string]map[string]int64 `json:"value"`
	Datum     string                      `json:"datum,omitempty"`
	DatumHash string                      `json:"datumHash,omitempty"`
}

// Fee carries the network fee in lovelace.
type Fee struct {
	Ada struct {
		Lovelace int64 `json:"lovelace"`
	} `json:"ada"`
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type intersectionParams struct {
	Points []Point `json:"points"`
}

type nextBlockResult struct {
	Direction string          `json:"direction"`
	Block     json.RawMessage `json:"block"`
	Point     json.RawMessage `json:"point"`
	Tip       Point           `json:"tip"`
}
