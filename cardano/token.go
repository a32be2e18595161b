package cardano

import (
	"fmt"
	"strings"
)

// Token identifies a native asset by policy id and asset name, both hex.
// The zero value is the native coin (lovelace).
type Token struct {
	PolicyID string
	Name     string
}

// Lovelace is the distinguished native coin.
var Lovelace = Token{}

// policyIDHexLen is the length of a hex-encoded policy id (28 bytes).
const policyIDHexLen = 56

// IsLovelace reports whether t is the native coin.
func (t Token) IsLovelace() bool {
	return t.PolicyID == "" && t.Name == ""
}

// Unit returns the concatenated policy+name form used by Blockfrost and
// stored value JSON. The native coin is rendered as "lovelace".
func (t Token) Unit() string {
	if t.IsLovelace() {
		return "lovelace"
	}
	return t.PolicyID + t.Name
}

// TokenFromUnit parses the concatenated policy+name form, splitting at 56
// hex characters. "lovelace" and "" both denote the native coin.
func TokenFromUnit(unit string) (Token, error) {
	unit = strings.ReplaceAll(unit, ".", "")
	switch {
	case unit == "" || unit == "lovelace":
		return Lovelace, nil
	case len(unit) == policyIDHexLen:
		return Token{PolicyID: unit}, nil
	case len(unit) > policyIDHexLen:
		return Token{PolicyID: unit[:policyIDHexLen], Name: unit[policyIDHexLen:]}, nil
	}
	return Token{}, fmt.Errorf("invalid token unit %q", unit)
}

func (t Token) String() string {
	if t.IsLovelace() {
		return "lovelace"
	}
	if t.Name == "" {
		return t.PolicyID
	}
	return t.PolicyID + "." + t.Name
}
