package readout

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

const (
	// ManufacturerID is the Bluetooth SIG company identifier registered to Victron Energy.
	ManufacturerID uint16 = 0x02e1

	KeySize = 16

	maxRecordSize    = 24
	headerSize       = 8
	statusRecordMark = 0x10
)

// Record is a validated Instant Readout manufacturer data record:
//
//	Bytes | Meaning
//	0     | 0x10, device status record
//	1     | unused
//	2-3   | model id
//	4     | record type
//	5-6   | IV seed, little endian
//	7     | first byte of the encryption key
//	8..   | AES-128-CTR encrypted payload
type Record struct {
	data []byte
	key  []byte
}

// OpenRecord validates the record framing against key. It never decrypts anything.
func OpenRecord(data []byte, key []byte) (Record, error) {
	if len(data) > maxRecordSize {
		return Record{}, ErrRecordTooBig
	}

	if len(data) == 0 || data[0] != statusRecordMark {
		return Record{}, ErrWrongAdvertisement
	}

	if len(data) < headerSize {
		return Record{}, fmt.Errorf("%w: record header is %d bytes", ErrDataTooShort, len(data))
	}

	if len(key) != KeySize {
		return Record{}, ErrInvalidDeviceEncryptionKey
	}

	if data[7] != key[0] {
		return Record{}, ErrIncorrectDeviceEncryptionKey
	}

	return Record{data: data, key: key}, nil
}

func (r Record) RecordType() RecordType {
	return RecordType(r.data[4])
}

func (r Record) ModelID() uint16 {
	return binary.LittleEndian.Uint16(r.data[2:4])
}

func (r Record) IV() (iv [aes.BlockSize]byte) {
	iv[0] = r.data[5]
	iv[1] = r.data[6]

	return iv
}

func (r Record) Ciphertext() []byte {
	return r.data[headerSize:]
}

// Decrypt returns the decrypted payload block. Only the first len(Ciphertext()) bytes carry
// data, the rest is the decrypted padding.
func (r Record) Decrypt() (out [aes.BlockSize]byte, err error) {
	block, err := aes.NewCipher(r.key)

	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	padded := padCiphertext(r.Ciphertext())
	iv := r.IV()

	// a single block never increments the counter, so the counter endianness is irrelevant.
	cipher.NewCTR(block, iv[:]).XORKeyStream(out[:], padded[:])

	return out, nil
}

func padCiphertext(c []byte) (padded [aes.BlockSize]byte) {
	n := copy(padded[:], c)
	pad := byte(aes.BlockSize - n)

	for i := n; i < aes.BlockSize; i++ {
		padded[i] = pad
	}

	return padded
}
