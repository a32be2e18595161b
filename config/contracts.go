package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Version names a contract family. Orderbook versions place and fulfil swap
// orders; liquidity versions place deposits/withdrawals against pools.
type Version string

const (
	V1    Version = "v1"
	V2    Version = "v2"
	V3    Version = "v3"
	V4    Version = "v4"
	V1LQ  Version = "v1_lq"
	V2LQ  Version = "v2_lq"
	CLPLQ Version = "clp_lq"
)

// IsLiquidity reports whether orders of this family carry the two-wallet
// liquidity datum layout.
func (v Version) IsLiquidity() bool {
	switch v {
	case V1LQ, V2LQ, CLPLQ:
		return true
	}
	return false
}

// Contracts is the address table the parser recognizes.
type Contracts struct {
	// Orderbooks maps bech32 script addresses to their contract family.
	Orderbooks map[string]Version `yaml:"orderbooks"`

	// PoolScriptHashes are payment hashes of pool scripts; outputs paying
	// them never count toward batcher profit.
	PoolScriptHashes []string `yaml:"pool_script_hashes"`

	// ProfitAddresses are protocol fee wallets, likewise excluded.
	ProfitAddresses []string `yaml:"profit_addresses"`

	// StartSlot and StartHash bootstrap an empty store.
	StartSlot uint64 `yaml:"start_slot"`
	StartHash string `yaml:"start_hash"`
}

// Mainnet contract addresses.
const (
	v1Orderbook = "addr1wy2mjh76em44qurn5x73nzqrxua7ataasftql0u2h6g88lc3gtgpz"
	v2Orderbook = "addr1z8c7eyxnxgy80qs5ehrl4yy93tzkyqjnmx0cfsgrxkfge27q47h8tv3jp07j8yneaxj7qc63zyzqhl933xsglcsgtqcqxzc2je"
	v3Orderbook = "addr1z8l28a6jsx4870ulrfygqvqqdnkdjc5sa8f70ys6dvgvjqc3r6dxnzml343sx8jweqn4vn3fz2kj8kgu9czghx0jrsyqxyrhvq"
	v4Orderbook = "addr1zyq0kyrml023kwjk8zr86d5gaxrt5w8lxnah8r6m6s4jp4g3r6dxnzml343sx8jweqn4vn3fz2kj8kgu9czghx0jrsyqqktyhv"

	v1Liquidity  = "addr1wydncknydgqcur8m6s8m49633j8f2hjcd8c2l48cc45yj0s4ta38n"
	v2Liquidity  = "addr1w9e7m6yn74r7m0f9mf548ldr8j4v6q05gprey2lhch8tj5gsvyte9"
	clpLiquidity = "addr1w87gl00kfuj7qnk8spf25x5e0wfcvasgj5tq3lt5egh6swc4aa5lh"
)

// DefaultContracts returns the compiled-in mainnet table and bootstrap point.
func DefaultContracts() Contracts {
	return Contracts{
		Orderbooks: map[string]Version{
			v1Orderbook:  V1,
			v2Orderbook:  V2,
			v3Orderbook:  V3,
			v4Orderbook:  V4,
			v1Liquidity:  V1LQ,
			v2Liquidity:  V2LQ,
			clpLiquidity: CLPLQ,
		},
		PoolScriptHashes: []string{
			"de9b756719341e79785aa13c164e7fe68c189ed04d61c9876b2fe53f",
		},
		ProfitAddresses: []string{
			"addr1v9fmzedv25qhq9u5g9me29npsyu2lph4uqsqrl5vnyvzd7q5ks9nj",
		},
		StartSlot: 125879182,
		StartHash: "f6566cd85706932d8e60d02cdd882640ec358e73b0c8171d969045c1bb1199e1",
	}
}

// LoadContracts reads a YAML override file; zero-valued sections fall back
// to the compiled-in defaults.
func LoadContracts(path string) (Contracts, error) {
	defaults := DefaultContracts()
	data, err := os.ReadFile(path)
	if err != nil {
		return Contracts{}, fmt.Errorf("read contracts file: %w", err)
	}
	var loaded Contracts
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Contracts{}, fmt.Errorf("parse contracts file: %w", err)
	}
	if loaded.Orderbooks == nil {
		loaded.Orderbooks = defaults.Orderbooks
	}
	if loaded.PoolScriptHashes == nil {
		loaded.PoolScriptHashes = defaults.PoolScriptHashes
	}
	if loaded.ProfitAddresses == nil {
		loaded.ProfitAddresses = defaults.ProfitAddresses
	}
	if loaded.StartSlot == 0 {
		loaded.StartSlot = defaults.StartSlot
	}
	if loaded.StartHash == "" {
		loaded.StartHash = defaults.StartHash
	}
	return loaded, nil
}
