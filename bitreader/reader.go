// Package bitreader reads arbitrarily sized integers out of a packed, LSB-first bit stream.
package bitreader

import "errors"

var ErrOutOfData = errors.New("bitreader: data was shorter than expected")

// Reader is a cursor over an immutable byte slice. It is a plain value: copying it (see
// Clone) yields an independent cursor over the same data.
type Reader struct {
	data   []byte
	cursor uint
}

func New(data []byte) Reader {
	return Reader{data: data}
}

// Clone returns a checkpoint of the reader that advances independently.
func (r *Reader) Clone() Reader {
	return *r
}

// Offset is the number of bits consumed so far.
func (r *Reader) Offset() uint {
	return r.cursor
}

func (r *Reader) Remaining() uint {
	return uint(len(r.data))*8 - r.cursor
}

func (r *Reader) ReadBool() (bool, error) {
	if r.cursor >= uint(len(r.data))*8 {
		return false, ErrOutOfData
	}

	bit := (r.data[r.cursor/8] >> (r.cursor % 8)) & 1
	r.cursor += 1

	return bit == 1, nil
}

// ReadUnsigned consumes n bits (n <= 64). The i-th bit consumed becomes bit i of the result.
func (r *Reader) ReadUnsigned(n uint) (uint64, error) {
	if n > 64 {
		panic("bitreader: cannot read more than 64 bits at once")
	}

	var value uint64

	for i := uint(0); i < n; i++ {
		set, err := r.ReadBool()
		if err != nil {
			return 0, err
		}

		if set {
			value |= 1 << i
		}
	}

	return value, nil
}

// ReadSigned consumes n bits (1 <= n <= 64) as a two's complement integer.
func (r *Reader) ReadSigned(n uint) (int64, error) {
	if n == 0 || n > 64 {
		panic("bitreader: signed reads must be between 1 and 64 bits wide")
	}

	magnitude, err := r.ReadUnsigned(n - 1)
	if err != nil {
		return 0, err
	}

	negative, err := r.ReadBool()
	if err != nil {
		return 0, err
	}

	value := int64(magnitude)

	if negative {
		value -= int64(1) << (n - 1)
	}

	return value, nil
}

func (r *Reader) Skip(n uint) error {
	_, err := r.ReadUnsigned(n)
	return err
}
