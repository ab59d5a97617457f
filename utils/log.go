package utils

import (
	"fmt"

	"github.com/rs/zerolog"
)

func ToZeroLogArray[T fmt.Stringer](arr []T) (ret *zerolog.Array) {
	ret = zerolog.Arr()

	for _, elem := range arr {
		ret = ret.Str(elem.String())
	}

	return ret
}

// KeyHint identifies a key in logs without revealing it. Only the first byte is shown,
// which devices broadcast in the clear anyway.
func KeyHint(key []byte) string {
	if len(key) == 0 {
		return "<none>"
	}

	return fmt.Sprintf("%02x…(%d bytes)", key[0], len(key))
}
