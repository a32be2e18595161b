package datum

import "fmt"

// Wallet is the (pubKeyHash, stakeKeyHash) pair carried by an order datum's
// address node.
type Wallet struct {
	PubKeyHash   string
	StakeKeyHash string
}

// Key returns the concatenation pkh || skh.
func (w Wallet) Key() string {
	return w.PubKeyHash + w.StakeKeyHash
}

// ExtractWallet reads a wallet address from an address-bearing node:
// the payment key hash at fields[0].fields[0].fields[0] and, when
// fields[1] is constructor 0, the stake key hash at
// fields[1].fields[0].fields[0].fields[0].fields[0].
func ExtractWallet(d Datum) (Wallet, error) {
	pkhNode, err := path(d, 0, 0, 0)
	if err != nil {
		return Wallet{}, err
	}
	pkh, ok := pkhNode.(Bytes)
	if !ok {
		return Wallet{}, fmt.Errorf("%w: payment key hash is not bytes", ErrDecode)
	}

	staking, err := field(d, 1)
	if err != nil {
		return Wallet{}, err
	}
	stakingConstr, ok := staking.(Constr)
	if !ok {
		return Wallet{}, fmt.Errorf("%w: staking part is not a constructor", ErrDecode)
	}
	if stakingConstr.Constructor != 0 {
		return Wallet{PubKeyHash: pkh.Hex}, nil
	}

	skhNode, err := path(staking, 0, 0, 0, 0)
	if err != nil {
		return Wallet{}, err
	}
	skh, ok := skhNode.(Bytes)
	if !ok {
		return Wallet{}, fmt.Errorf("%w: stake key hash is not bytes", ErrDecode)
	}
	return Wallet{PubKeyHash: pkh.Hex, StakeKeyHash: skh.Hex}, nil
}

func field(d Datum, i int) (Datum, error) {
	c, ok := d.(Constr)
	if !ok {
		return nil, fmt.Errorf("%w: expected constructor node, got %T", ErrDecode, d)
	}
	if i >= len(c.Fields) {
		return nil, fmt.Errorf("%w: missing field %d", ErrDecode, i)
	}
	return c.Fields[i], nil
}

func path(d Datum, idx ...int) (Datum, error) {
	node := d
	for _, i := range idx {
		var err error
		node, err = field(node, i)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// Field navigates one constructor field, for callers outside the package.
func Field(d Datum, i int) (Datum, error) {
	return field(d, i)
}
