// Package datum decodes the plutus data encoding used by script outputs
// into an owned tree of tagged variants.
package datum

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/Salvionied/cbor/v2"
)

// ErrDecode reports a CBOR payload outside the plutus data subset.
var ErrDecode = errors.New("datum: cannot decode")

// Datum is one node of a decoded plutus datum.
type Datum interface {
	isDatum()
}

// Constr is a tagged constructor application.
type Constr struct {
	Constructor uint64
	Fields      []Datum
}

// Int is an integer leaf.
type Int struct {
	Value int64
}

// Bytes is a byte-string leaf, rendered hex.
type Bytes struct {
	Hex string
}

// List is a plain array.
type List struct {
	Items []Datum
}

// Map is a list of key/value pairs.
type Map struct {
	Pairs []Pair
}

// Pair is one map entry.
type Pair struct {
	Key   Datum
	Value Datum
}

func (Constr) isDatum() {}
func (Int) isDatum()    {}
func (Bytes) isDatum()  {}
func (List) isDatum()   {}
func (Map) isDatum()    {}

// Constructor tag ranges of the plutus data encoding: 121+c covers
// constructors 0..6, 1280+c' covers 7..127, and 102 wraps the general
// (constructor, fields) pair.
const (
	tagConstrBase    = 121
	tagConstrBaseMax = 127
	tagConstrExt     = 1280
	tagConstrExtMax  = 1280 + (127 - 7)
	tagConstrWrapped = 102
	constrExtOffset  = 7
)

// DecodeHex decodes a hex-encoded datum payload.
func DecodeHex(s string) (Datum, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad hex: %v", ErrDecode, err)
	}
	return Decode(raw)
}

// Decode decodes a raw CBOR datum payload.
func Decode(raw []byte) (Datum, error) {
	var v interface{}
	if err := cbor.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return fromCBOR(v)
}

func fromCBOR(v interface{}) (Datum, error) {
	switch x := v.(type) {
	case cbor.Tag:
		return constrFromTag(x)
	case uint64:
		if x > uint64(1)<<62 {
			return nil, fmt.Errorf("%w: integer overflow", ErrDecode)
		}
		return Int{Value: int64(x)}, nil
	case int64:
		return Int{Value: x}, nil
	case big.Int:
		if !x.IsInt64() {
			return nil, fmt.Errorf("%w: integer overflow", ErrDecode)
		}
		return Int{Value: x.Int64()}, nil
	case []byte:
		return Bytes{Hex: hex.EncodeToString(x)}, nil
	case string:
		// Plutus data has no text strings; some decoders surface byte
		// string map keys this way.
		return Bytes{Hex: hex.EncodeToString([]byte(x))}, nil
	case []interface{}:
		items := make([]Datum, 0, len(x))
		for _, item := range x {
			d, err := fromCBOR(item)
			if err != nil {
				return nil, err
			}
			items = append(items, d)
		}
		return List{Items: items}, nil
	case map[interface{}]interface{}:
		pairs := make([]Pair, 0, len(x))
		for k, val := range x {
			kd, err := fromCBOR(k)
			if err != nil {
				return nil, err
			}
			vd, err := fromCBOR(val)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, Pair{Key: kd, Value: vd})
		}
		return Map{Pairs: pairs}, nil
	}
	return nil, fmt.Errorf("%w: unexpected value %T", ErrDecode, v)
}

func constrFromTag(tag cbor.Tag) (Datum, error) {
	var (
		constructor uint64
		rawFields   interface{}
	)
	switch {
	case tag.Number >= tagConstrBase && tag.Number <= tagConstrBaseMax:
		constructor = tag.Number - tagConstrBase
		rawFields = tag.Content
	case tag.Number >= tagConstrExt && tag.Number <= tagConstrExtMax:
		constructor = tag.Number - tagConstrExt + constrExtOffset
		rawFields = tag.Content
	case tag.Number == tagConstrWrapped:
		pair, ok := tag.Content.([]interface{})
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: malformed tag 102 content", ErrDecode)
		}
		c, ok := toUint64(pair[0])
		if !ok {
			return nil, fmt.Errorf("%w: non-integer constructor in tag 102", ErrDecode)
		}
		constructor = c
		rawFields = pair[1]
	default:
		return nil, fmt.Errorf("%w: invalid tag %d", ErrDecode, tag.Number)
	}

	items, ok := rawFields.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: constructor fields are not a list", ErrDecode)
	}
	fields := make([]Datum, 0, len(items))
	for _, item := range items {
		d, err := fromCBOR(item)
		if err != nil {
			return nil, err
		}
		fields = append(fields, d)
	}
	return Constr{Constructor: constructor, Fields: fields}, nil
}

func toUint64(v interface{}) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case int64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	}
	return 0, false
}

// Encode re-serializes a datum tree. Decode ∘ Encode is the identity on
// well-formed datums.
func Encode(d Datum) ([]byte, error) {
	switch x := d.(type) {
	case Int:
		return cbor.Marshal(x.Value)
	case Bytes:
		raw, err := hex.DecodeString(x.Hex)
		if err != nil {
			return nil, fmt.Errorf("%w: bad bytes hex: %v", ErrDecode, err)
		}
		return cbor.Marshal(raw)
	case List:
		return encodeItems(4, x.Items)
	case Map:
		out := head(5, uint64(len(x.Pairs)))
		for _, p := range x.Pairs {
			k, err := Encode(p.Key)
			if err != nil {
				return nil, err
			}
			v, err := Encode(p.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, k...)
			out = append(out, v...)
		}
		return out, nil
	case Constr:
		return encodeConstr(x)
	}
	return nil, fmt.Errorf("%w: unknown node %T", ErrDecode, d)
}

func encodeConstr(c Constr) ([]byte, error) {
	var tag uint64
	switch {
	case c.Constructor < constrExtOffset:
		tag = tagConstrBase + c.Constructor
	case c.Constructor <= 127:
		tag = tagConstrExt + c.Constructor - constrExtOffset
	default:
		fields, err := encodeItems(4, c.Fields)
		if err != nil {
			return nil, err
		}
		constructor, err := cbor.Marshal(c.Constructor)
		if err != nil {
			return nil, err
		}
		out := tagHead(tagConstrWrapped)
		out = append(out, head(4, 2)...)
		out = append(out, constructor...)
		out = append(out, fields...)
		return out, nil
	}
	fields, err := encodeItems(4, c.Fields)
	if err != nil {
		return nil, err
	}
	return append(tagHead(tag), fields...), nil
}

func encodeItems(major byte, items []Datum) ([]byte, error) {
	out := head(major, uint64(len(items)))
	for _, item := range items {
		enc, err := Encode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

func head(major byte, n uint64) []byte {
	switch {
	case n < 24:
		return []byte{major<<5 | byte(n)}
	case n < 1<<8:
		return []byte{major<<5 | 24, byte(n)}
	case n < 1<<16:
		return []byte{major<<5 | 25, byte(n >> 8), byte(n)}
	default:
		return []byte{major<<5 | 26, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

func tagHead(tag uint64) []byte {
	return head(6, tag)
}
