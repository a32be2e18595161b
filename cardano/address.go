package cardano

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// ShelleyAddress is a decoded Shelley payment address. Only key/key base
// addresses (header 0) and enterprise addresses (headers 6 and 7) appear in
// the flows we track; anything else fails decoding.
type ShelleyAddress struct {
	Mainnet      bool
	PubKeyHash   string // hex, 28 bytes
	StakeKeyHash string // hex, empty for enterprise addresses
}

// Address codecs are hot: every output of every block passes through them.
// Encoded forms are memoized the same way for both directions.
var (
	encCache *bigcache.BigCache
	decCache *bigcache.BigCache
)

func init() {
	cfg := bigcache.DefaultConfig(time.Hour)
	cfg.Verbose = false
	encCache, _ = bigcache.New(context.Background(), cfg)
	decCache, _ = bigcache.New(context.Background(), cfg)
}

// FromKeyHashes builds a mainnet address from a payment key hash and an
// optional stake key hash.
func FromKeyHashes(pubKeyHash, stakeKeyHash string) ShelleyAddress {
	return ShelleyAddress{Mainnet: true, PubKeyHash: pubKeyHash, StakeKeyHash: stakeKeyHash}
}

// Key returns the concatenation pkh || skh, the wallet key form stored on
// orders.
func (a ShelleyAddress) Key() string {
	return a.PubKeyHash + a.StakeKeyHash
}

// IsEnterprise reports whether the address carries no staking part.
func (a ShelleyAddress) IsEnterprise() bool {
	return a.StakeKeyHash == ""
}

// Hex returns the canonical hex form: header nibble, network nibble, payment
// key hash, stake key hash.
func (a ShelleyAddress) Hex() string {
	header := "0"
	if a.StakeKeyHash == "" {
		header = "6"
	}
	network := "0"
	if a.Mainnet {
		network = "1"
	}
	return header + network + a.PubKeyHash + a.StakeKeyHash
}

// Bech32 returns the bech32 rendering of the address.
func (a ShelleyAddress) Bech32() (string, error) {
	return Bech32Encode(a.Hex())
}

// FromHex parses the canonical hex form.
func FromHex(hexAddr string) (ShelleyAddress, error) {
	if len(hexAddr) >= 2 && hexAddr[:2] == "0x" {
		hexAddr = hexAddr[2:]
	}
	if len(hexAddr) < 2+policyIDHexLen {
		return ShelleyAddress{}, fmt.Errorf("address hex too short: %q", hexAddr)
	}
	addr := ShelleyAddress{
		Mainnet:    hexAddr[1] == '1',
		PubKeyHash: hexAddr[2 : 2+policyIDHexLen],
	}
	switch hexAddr[0] {
	case '6', '7':
		return addr, nil
	case '0':
		addr.StakeKeyHash = hexAddr[2+policyIDHexLen:]
		return addr, nil
	}
	return ShelleyAddress{}, fmt.Errorf("unsupported address header %c", hexAddr[0])
}

// FromBech32 parses a bech32 address into its Shelley parts.
func FromBech32(addr string) (ShelleyAddress, error) {
	hexAddr, err := Bech32Decode(addr)
	if err != nil {
		return ShelleyAddress{}, err
	}
	return FromHex(hexAddr)
}

// Bech32Encode converts the canonical hex form to bech32.
func Bech32Encode(hexAddr string) (string, error) {
	if encCache != nil {
		if cached, err := encCache.Get(hexAddr); err == nil {
			return string(cached), nil
		}
	}
	raw, err := hex.DecodeString(hexAddr)
	if err != nil {
		return "", fmt.Errorf("decode address hex: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty address")
	}
	hrp := "addr_test"
	if raw[0]&0x0f == 1 {
		hrp = "addr"
	}
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	encoded, err := bech32.Encode(hrp, conv)
	if err != nil {
		return "", err
	}
	if encCache != nil {
		encCache.Set(hexAddr, []byte(encoded))
	}
	return encoded, nil
}

// Bech32Decode converts a bech32 address to the canonical hex form.
// Cardano addresses exceed the BIP-173 length limit, hence DecodeNoLimit.
func Bech32Decode(addr string) (string, error) {
	if decCache != nil {
		if cached, err := decCache.Get(addr); err == nil {
			return string(cached), nil
		}
	}
	_, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return "", fmt.Errorf("decode bech32 %q: %w", addr, err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", err
	}
	hexAddr := hex.EncodeToString(raw)
	if decCache != nil {
		decCache.Set(addr, []byte(hexAddr))
	}
	return hexAddr, nil
}

// PaymentHash extracts the payment part of a bech32 address without building
// the full struct. Used for pool-script filtering.
func PaymentHash(addr string) (string, error) {
	hexAddr, err := Bech32Decode(addr)
	if err != nil {
		return "", err
	}
	if len(hexAddr) < 2+policyIDHexLen {
		return "", fmt.Errorf("address hex too short: %q", hexAddr)
	}
	return hexAddr[2 : 2+policyIDHexLen], nil
}
