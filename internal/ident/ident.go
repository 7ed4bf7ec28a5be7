// Package ident mints collision-resistant local identifiers for records
// created before any server acknowledgment exists.
package ident

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// suffixLen is the number of base36 characters in the random suffix.
const suffixLen = 9

var maxSuffix = new(big.Int).Exp(big.NewInt(36), big.NewInt(suffixLen), nil)

// New returns an identifier of the form "prefix_<unixmilli>_<suffix>".
// IDs are unique within a running session for interactive use; they are
// not cryptographically unguessable and carry no cross-session guarantee.
func New(prefix string) string {
	n, err := rand.Int(rand.Reader, maxSuffix)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to the clock rather than panic in UI code.
		n = big.NewInt(time.Now().UnixNano())
	}
	suffix := n.Text(36)
	for len(suffix) < suffixLen {
		suffix = "0" + suffix
	}
	return fmt.Sprintf("%s_%s_%s", prefix, strconv.FormatInt(time.Now().UnixMilli(), 10), suffix)
}
