package readout

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/robertof/go-victron-exporter/bitreader"
)

// Value is a scaled reading which the device may report as not available.
type Value struct {
	Float float64
	Valid bool
}

func Some(f float64) Value {
	return Value{Float: f, Valid: true}
}

func (v Value) String() string {
	if !v.Valid {
		return "n/a"
	}

	return strconv.FormatFloat(v.Float, 'f', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}

	return json.Marshal(v.Float)
}

// unsignedField reads an n-bit unsigned field. All bits set means "not available".
func unsignedField(r *bitreader.Reader, field string, bits uint, divisor, offset float64) (Value, error) {
	raw, err := r.ReadUnsigned(bits)
	if err != nil {
		return Value{}, errors.Wrapf(err, "reading %s", field)
	}

	if raw == 1<<bits-1 {
		return Value{}, nil
	}

	// Adding offset turns the -0 of a negative divisor into +0.
	return Some(float64(raw)/divisor + offset), nil
}

// signedField reads an n-bit two's complement field. The largest positive code means
// "not available".
func signedField(r *bitreader.Reader, field string, bits uint, divisor float64) (Value, error) {
	raw, err := r.ReadSigned(bits)
	if err != nil {
		return Value{}, errors.Wrapf(err, "reading %s", field)
	}

	if raw == 1<<(bits-1)-1 {
		return Value{}, nil
	}

	return Some(float64(raw) / divisor), nil
}

// code reads a raw enumeration or bitset code, which has no "not available" state.
func code(r *bitreader.Reader, field string, bits uint) (uint64, error) {
	raw, err := r.ReadUnsigned(bits)
	if err != nil {
		return 0, errors.Wrapf(err, "reading %s", field)
	}

	return raw, nil
}
