package cardano

import (
	"encoding/json"
	"reflect"
	"testing"
)

var (
	tokenA = Token{PolicyID: "475362a850bf8d1f037794432cdea9fdbbf8d048a7c5115feeb7e91d", Name: "4d494c4b"}
	tokenB = Token{PolicyID: "f66d78b4a3cb3d37afa0ec36461e51ecbde00f26c8f0a68f94b69880", Name: "69425443"}
)

func TestValueAddCommutativeAssociative(t *testing.T) {
	a := Value{Lovelace: 5, tokenA: 2}
	b := Value{tokenA: 3, tokenB: 7}
	c := Value{Lovelace: 1}

	ab := a.Clone().Add(b)
	ba := b.Clone().Add(a)
	if !reflect.DeepEqual(ab, ba) {
		t.Errorf("Add not commutative: %v vs %v", ab, ba)
	}

	abc := a.Clone().Add(b).Add(c)
	bca := b.Clone().Add(c).Add(a)
	if !reflect.DeepEqual(abc, bca) {
		t.Errorf("Add not associative: %v vs %v", abc, bca)
	}

	withEmpty := a.Clone().Add(Value{})
	if !reflect.DeepEqual(withEmpty, a) {
		t.Errorf("empty value is not identity: %v vs %v", withEmpty, a)
	}
}

func TestValueDiff(t *testing.T) {
	in := Value{Lovelace: 10, tokenA: 5}
	out := Value{Lovelace: 12, tokenB: 3}

	diff := in.Diff(out)
	want := Value{Lovelace: 2, tokenA: -5, tokenB: 3}
	if !reflect.DeepEqual(diff, want) {
		t.Errorf("Diff: got %v want %v", diff, want)
	}

	// Equal entries drop out entirely.
	same := Value{tokenA: 4}
	if diff := same.Diff(Value{tokenA: 4}); len(diff) != 0 {
		t.Errorf("expected empty diff, got %v", diff)
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	v := Value{Lovelace: 2_000_000, tokenA: 41}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(back, v) {
		t.Errorf("round trip: got %v want %v", back, v)
	}
}

func TestValueFromOgmios(t *testing.T) {
	raw := map[string]map[string]int64{
		"ada":            {"lovelace": 1_500_000},
		tokenA.PolicyID:  {tokenA.Name: 9},
	}
	v := ValueFromOgmios(raw)
	want := Value{Lovelace: 1_500_000, tokenA: 9}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("ValueFromOgmios: got %v want %v", v, want)
	}
}

func TestTokenFromUnit(t *testing.T) {
	for _, unit := range []string{"lovelace", ""} {
		tok, err := TokenFromUnit(unit)
		if err != nil || !tok.IsLovelace() {
			t.Errorf("TokenFromUnit(%q): got %v, %v", unit, tok, err)
		}
	}

	tok, err := TokenFromUnit(tokenA.PolicyID + tokenA.Name)
	if err != nil {
		t.Fatalf("TokenFromUnit failed: %v", err)
	}
	if tok != tokenA {
		t.Errorf("TokenFromUnit: got %v want %v", tok, tokenA)
	}

	policyOnly, err := TokenFromUnit(tokenA.PolicyID)
	if err != nil {
		t.Fatalf("TokenFromUnit failed: %v", err)
	}
	if policyOnly.Name != "" || policyOnly.PolicyID != tokenA.PolicyID {
		t.Errorf("policy-only token parsed wrong: %v", policyOnly)
	}

	if _, err := TokenFromUnit("abc"); err == nil {
		t.Error("expected error for malformed unit")
	}
}

func TestSlotTimestamp(t *testing.T) {
	if got := SlotTimestamp(4924800); got != 1596491091 {
		t.Errorf("SlotTimestamp(4924800) = %d", got)
	}
	slot := uint64(125879182)
	if back := TimestampSlot(SlotTimestamp(slot)); back != slot {
		t.Errorf("timestamp round trip: got %d want %d", back, slot)
	}
}
