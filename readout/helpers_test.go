package readout_test

import "github.com/robertof/go-victron-exporter/readout/readouttest"

var testKey = readouttest.Key

type bits = readouttest.Field

var (
	unsigned      = readouttest.Unsigned
	signed        = readouttest.Signed
	allOnes       = readouttest.AllOnes
	pack          = readouttest.Pack
	encryptRecord = readouttest.Seal
)
