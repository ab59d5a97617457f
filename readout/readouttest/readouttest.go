// Package readouttest builds encrypted Instant Readout records for tests.
package readouttest

import (
	"crypto/aes"
	"crypto/cipher"
	"testing"

	"github.com/robertof/go-victron-exporter/readout"
)

// Key is an arbitrary device key. Its first byte is 0x11.
var Key = []byte{
	0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18,
	0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f, 0x20,
}

type Field struct {
	Width uint
	Value uint64
}

func Unsigned(width uint, v uint64) Field {
	return Field{width, v}
}

// Signed stores v in two's complement, truncated to width by Pack.
func Signed(width uint, v int64) Field {
	return Field{width, uint64(v)}
}

func AllOnes(width uint) Field {
	return Field{width, 1<<width - 1}
}

// Pack lays fields out LSB-first into a 16-byte payload, the way devices do.
func Pack(tb testing.TB, fields ...Field) []byte {
	tb.Helper()

	out := make([]byte, aes.BlockSize)
	pos := uint(0)

	for _, f := range fields {
		for i := uint(0); i < f.Width; i++ {
			if pos >= uint(len(out))*8 {
				tb.Fatalf("Pack: fields do not fit in %d bytes", len(out))
			}

			if f.Value>>i&1 == 1 {
				out[pos/8] |= 1 << (pos % 8)
			}

			pos++
		}
	}

	return out
}

// Seal builds a well-formed manufacturer data record around plaintext, without the
// company identifier prefix.
func Seal(tb testing.TB, recordType readout.RecordType, key []byte, iv uint16, plaintext []byte) []byte {
	tb.Helper()

	block, err := aes.NewCipher(key)
	if err != nil {
		tb.Fatalf("aes.NewCipher: %v", err)
	}

	ivBlock := make([]byte, aes.BlockSize)
	ivBlock[0] = byte(iv)
	ivBlock[1] = byte(iv >> 8)

	ciphertext := make([]byte, len(plaintext))
	cipher.NewCTR(block, ivBlock).XORKeyStream(ciphertext, plaintext)

	record := []byte{0x10, 0x00, 0xa0, 0x58, byte(recordType), ivBlock[0], ivBlock[1], key[0]}

	return append(record, ciphertext...)
}

// WithCompanyID prefixes record with the little endian Victron company identifier, as
// BLE stacks report manufacturer data.
func WithCompanyID(record []byte) []byte {
	return append([]byte{byte(readout.ManufacturerID & 0xff), byte(readout.ManufacturerID >> 8)}, record...)
}

// TestRecord seals a test record reporting the given uptime and temperature.
func TestRecord(tb testing.TB, key []byte, iv uint16, uptime uint64, celsius int64) []byte {
	tb.Helper()

	payload := Pack(tb, Unsigned(30, uptime), Unsigned(7, uint64(celsius+40)))

	return Seal(tb, readout.RecordTypeTestRecord, key, iv, payload[:5])
}
