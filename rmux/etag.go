package rmux

import (
	"strconv"

	"github.com/akyoto/hash"
)

// ETag produces a hash for the given slice of bytes.
// It is the value used for the ETag header of a response.
func ETag(b []byte) string {
	return strconv.FormatUint(hash.Bytes(b), 16)
}
