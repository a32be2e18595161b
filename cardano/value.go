package cardano

import "encoding/json"

// Value maps tokens to amounts. Chain values are non-negative; differentials
// computed by the analytics may carry negative entries.
type Value map[Token]int64

// Add returns v with w merged in. v is modified in place and returned.
func (v Value) Add(w Value) Value {
	for t, amt := range w {
		v[t] += amt
	}
	return v
}

// Sub subtracts w from v in place and returns v.
func (v Value) Sub(w Value) Value {
	for t, amt := range w {
		v[t] -= amt
	}
	return v
}

// Diff returns w - v per token, with zero entries dropped.
func (v Value) Diff(w Value) Value {
	diff := Value{}
	for t, amt := range w {
		diff[t] = amt
	}
	for t, amt := range v {
		diff[t] -= amt
	}
	for t, amt := range diff {
		if amt == 0 {
			delete(diff, t)
		}
	}
	return diff
}

// Clone returns an independent copy of v.
func (v Value) Clone() Value {
	c := make(Value, len(v))
	for t, amt := range v {
		c[t] = amt
	}
	return c
}

// Lovelace returns the native coin amount, defaulting to 0.
func (v Value) Lovelace() int64 {
	return v[Lovelace]
}

// MarshalJSON renders the value as {unit: amount}.
func (v Value) MarshalJSON() ([]byte, error) {
	m := make(map[string]int64, len(v))
	for t, amt := range v {
		m[t.Unit()] = amt
	}
	return json.Marshal(m)
}

// UnmarshalJSON parses the {unit: amount} form written by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	out := make(Value, len(m))
	for unit, amt := range m {
		t, err := TokenFromUnit(unit)
		if err != nil {
			return err
		}
		out[t] = amt
	}
	*v = out
	return nil
}

// ValueFromOgmios normalizes the Ogmios wire shape
// {policyId: {assetName: amount}} where the pair ada/lovelace denotes the
// native coin.
func ValueFromOgmios(raw map[string]map[string]int64) Value {
	v := Value{}
	for policy, assets := range raw {
		for name, amt := range assets {
			if policy == "ada" && name == "lovelace" {
				v[Lovelace] += amt
				continue
			}
			v[Token{PolicyID: policy, Name: name}] += amt
		}
	}
	return v
}
