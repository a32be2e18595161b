package cardano

import (
	"strings"
	"testing"
)

func TestBech32RoundTrip(t *testing.T) {
	// v2 orderbook script address, a real mainnet address well over the
	// BIP-173 length limit.
	addr := "addr1z8c7eyxnxgy80qs5ehrl4yy93tzkyqjnmx0cfsgrxkfge27q47h8tv3jp07j8yneaxj7qc63zyzqhl933xsglcsgtqcqxzc2je"

	hexAddr, err := Bech32Decode(addr)
	if err != nil {
		t.Fatalf("Bech32Decode failed: %v", err)
	}

	back, err := Bech32Encode(hexAddr)
	if err != nil {
		t.Fatalf("Bech32Encode failed: %v", err)
	}
	if back != addr {
		t.Errorf("round trip mismatch:\n got %s\nwant %s", back, addr)
	}

	// Second pass exercises the cache path.
	back2, err := Bech32Encode(hexAddr)
	if err != nil {
		t.Fatalf("cached Bech32Encode failed: %v", err)
	}
	if back2 != addr {
		t.Errorf("cached round trip mismatch: got %s", back2)
	}
}

func TestShelleyAddressHexRoundTrip(t *testing.T) {
	pkh := strings.Repeat("ab", 28)
	skh := strings.Repeat("cd", 28)

	cases := []ShelleyAddress{
		{Mainnet: true, PubKeyHash: pkh, StakeKeyHash: skh},
		{Mainnet: true, PubKeyHash: pkh},
		{Mainnet: false, PubKeyHash: pkh, StakeKeyHash: skh},
		{Mainnet: false, PubKeyHash: pkh},
	}
	for _, want := range cases {
		got, err := FromHex(want.Hex())
		if err != nil {
			t.Fatalf("FromHex(%s) failed: %v", want.Hex(), err)
		}
		if got != want {
			t.Errorf("hex round trip: got %+v want %+v", got, want)
		}
	}
}

func TestShelleyAddressBech32RoundTrip(t *testing.T) {
	addr := ShelleyAddress{
		Mainnet:      true,
		PubKeyHash:   strings.Repeat("12", 28),
		StakeKeyHash: strings.Repeat("34", 28),
	}
	encoded, err := addr.Bech32()
	if err != nil {
		t.Fatalf("Bech32 failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "addr1") {
		t.Errorf("expected mainnet hrp, got %s", encoded)
	}

	decoded, err := FromBech32(encoded)
	if err != nil {
		t.Fatalf("FromBech32 failed: %v", err)
	}
	if decoded != addr {
		t.Errorf("bech32 round trip: got %+v want %+v", decoded, addr)
	}
}

func TestFromHexRejectsUnknownHeader(t *testing.T) {
	if _, err := FromHex("31" + strings.Repeat("00", 28)); err == nil {
		t.Error("expected error for script base address header")
	}
	if _, err := FromHex("61"); err == nil {
		t.Error("expected error for truncated address")
	}
}

func TestPaymentHash(t *testing.T) {
	pkh := strings.Repeat("ef", 28)
	addr := ShelleyAddress{Mainnet: true, PubKeyHash: pkh}
	encoded, err := addr.Bech32()
	if err != nil {
		t.Fatalf("Bech32 failed: %v", err)
	}
	got, err := PaymentHash(encoded)
	if err != nil {
		t.Fatalf("PaymentHash failed: %v", err)
	}
	if got != pkh {
		t.Errorf("PaymentHash: got %s want %s", got, pkh)
	}
}
