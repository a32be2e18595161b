package datum

import (
	"encoding/hex"
	"reflect"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, d Datum) {
	t.Helper()
	raw, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode(%#v) failed: %v", d, err)
	}
	back, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode(%x) failed: %v", raw, err)
	}
	if !reflect.DeepEqual(back, d) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", back, d)
	}
}

func TestConstructorTagRanges(t *testing.T) {
	// Base range: tags 121..127 encode constructors 0..6.
	for c := uint64(0); c <= 6; c++ {
		roundTrip(t, Constr{Constructor: c, Fields: []Datum{Int{Value: int64(c)}}})
	}
	// Extended range: tags 1280..1400 encode constructors 7..127.
	for _, c := range []uint64{7, 8, 64, 127} {
		roundTrip(t, Constr{Constructor: c, Fields: []Datum{}})
	}
	// Everything above 127 goes through the wrapped tag 102.
	roundTrip(t, Constr{Constructor: 500, Fields: []Datum{Bytes{Hex: "cafe"}}})
}

func TestWrappedConstructorDecodes(t *testing.T) {
	// d8 66 = tag 102, content [3, [7]]
	raw, _ := hex.DecodeString("d86682038107")
	d, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := Constr{Constructor: 3, Fields: []Datum{Int{Value: 7}}}
	if !reflect.DeepEqual(d, want) {
		t.Errorf("tag 102: got %#v want %#v", d, want)
	}
}

func TestLeavesAndContainers(t *testing.T) {
	roundTrip(t, Int{Value: 0})
	roundTrip(t, Int{Value: 1_000_000})
	roundTrip(t, Int{Value: -42})
	roundTrip(t, Bytes{Hex: strings.Repeat("ab", 28)})
	roundTrip(t, Bytes{Hex: ""})
	roundTrip(t, List{Items: []Datum{Int{Value: 1}, Bytes{Hex: "ff"}}})
	roundTrip(t, List{Items: []Datum{}})
	roundTrip(t, Map{Pairs: []Pair{{Key: Int{Value: 9}, Value: Bytes{Hex: "00"}}}})
	roundTrip(t, Constr{
		Constructor: 0,
		Fields: []Datum{
			Constr{Constructor: 1, Fields: []Datum{}},
			List{Items: []Datum{Int{Value: 5}}},
		},
	})
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	// Tag 104 is outside all constructor ranges.
	raw, _ := hex.DecodeString("d86880")
	if _, err := Decode(raw); err == nil {
		t.Error("expected error for tag 104")
	}
}

func TestDecodeHexRejectsGarbage(t *testing.T) {
	if _, err := DecodeHex("zz"); err == nil {
		t.Error("expected error for invalid hex")
	}
	if _, err := DecodeHex("ff"); err == nil {
		t.Error("expected error for bare simple value")
	}
}

func walletDatum(pkh, skh string) Datum {
	payment := Constr{Constructor: 0, Fields: []Datum{
		Constr{Constructor: 0, Fields: []Datum{Bytes{Hex: pkh}}},
	}}
	var staking Datum
	if skh == "" {
		staking = Constr{Constructor: 1, Fields: []Datum{}}
	} else {
		staking = Constr{Constructor: 0, Fields: []Datum{
			Constr{Constructor: 0, Fields: []Datum{
				Constr{Constructor: 0, Fields: []Datum{
					Constr{Constructor: 0, Fields: []Datum{Bytes{Hex: skh}}},
				}},
			}},
		}}
	}
	return Constr{Constructor: 0, Fields: []Datum{payment, staking}}
}

func TestExtractWallet(t *testing.T) {
	pkh := strings.Repeat("11", 28)
	skh := strings.Repeat("22", 28)

	w, err := ExtractWallet(walletDatum(pkh, skh))
	if err != nil {
		t.Fatalf("ExtractWallet failed: %v", err)
	}
	if w.PubKeyHash != pkh || w.StakeKeyHash != skh {
		t.Errorf("wallet: got %+v", w)
	}
	if w.Key() != pkh+skh {
		t.Errorf("Key: got %s", w.Key())
	}
}

func TestExtractWalletEnterprise(t *testing.T) {
	pkh := strings.Repeat("33", 28)
	w, err := ExtractWallet(walletDatum(pkh, ""))
	if err != nil {
		t.Fatalf("ExtractWallet failed: %v", err)
	}
	if w.PubKeyHash != pkh || w.StakeKeyHash != "" {
		t.Errorf("wallet: got %+v", w)
	}
}

func TestExtractWalletMalformed(t *testing.T) {
	if _, err := ExtractWallet(Int{Value: 1}); err == nil {
		t.Error("expected error for non-constructor datum")
	}
	if _, err := ExtractWallet(Constr{Constructor: 0}); err == nil {
		t.Error("expected error for missing fields")
	}
}

func TestWalletDatumSurvivesWire(t *testing.T) {
	// The datum as it would arrive from Ogmios: hex CBOR.
	pkh := strings.Repeat("44", 28)
	raw, err := Encode(walletDatum(pkh, ""))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	d, err := DecodeHex(hex.EncodeToString(raw))
	if err != nil {
		t.Fatalf("DecodeHex failed: %v", err)
	}
	w, err := ExtractWallet(d)
	if err != nil {
		t.Fatalf("ExtractWallet failed: %v", err)
	}
	if w.PubKeyHash != pkh {
		t.Errorf("pkh: got %s want %s", w.PubKeyHash, pkh)
	}
}
