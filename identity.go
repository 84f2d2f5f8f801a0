package wsrelay

import (
	"errors"
	"strconv"
	"unicode/utf16"
)

// ErrEmptyIdentity is returned when a connection identifier is missing.
var ErrEmptyIdentity = errors.New("connection identifier is required")

// HashIdentity derives the stable identity token for a caller-supplied
// connection identifier: the decimal form of a 32-bit signed h = h*31 + c
// fold over the identifier's UTF-16 code units.
//
// The digest is deterministic but not cryptographic. Two different
// identifiers can hash to the same token, silently merging their persisted
// memberships; this is a known limitation of the wire protocol, kept for
// compatibility with existing clients.
func HashIdentity(connectionID string) (string, error) {
	if connectionID == "" {
		return "", ErrEmptyIdentity
	}
	var h int32
	for _, u := range utf16.Encode([]rune(connectionID)) {
		h = h*31 + int32(u)
	}
	return strconv.FormatInt(int64(h), 10), nil
}
