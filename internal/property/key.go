// Package property normalizes free-form property identifiers and street
// addresses into the canonical forms the open-data endpoints filter on.
package property

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// KeyLen is the width of a canonical property key: borough(1) + block(5) + lot(4).
const KeyLen = 10

// Key is a parsed borough/block/lot composite.
type Key struct {
	Borough int
	Block   int
	Lot     int
}

// String renders the key in its fixed-width canonical form.
func (k Key) String() string {
	return fmt.Sprintf("%d%05d%04d", k.Borough, k.Block, k.Lot)
}

// Valid reports whether every component is inside its allowed range.
func (k Key) Valid() bool {
	return validBorough(k.Borough) &&
		k.Block > 0 && k.Block <= 99999 &&
		k.Lot > 0 && k.Lot <= 9999
}

// NormalizeKey converts a raw property key into its 10-digit canonical form.
// Accepted shapes: a 10-digit string (returned as is), a dash-separated
// borough-block-lot triple, and a loosely digited string whose last four
// digits are the lot and whose first digit is the borough. When no structured
// form matches the digits-only string is returned; it may be empty. Validity
// is the caller's concern.
func NormalizeKey(raw string) string {
	raw = strings.TrimSpace(raw)
	digits := digitsOnly(raw)
	if len(digits) == KeyLen {
		return digits
	}
	if k, ok := parseTriple(strings.TrimFunc(raw, notDigitOrDash)); ok {
		return k.String()
	}
	if k, ok := parseLoose(digits); ok {
		return k.String()
	}
	return digits
}

// ParseKey normalizes raw and splits it into a validated Key.
func ParseKey(raw string) (Key, error) {
	s := NormalizeKey(raw)
	if len(s) != KeyLen {
		return Key{}, eris.Errorf("property: key %q does not normalize to %d digits", raw, KeyLen)
	}
	k := Key{
		Borough: atoi(s[:1]),
		Block:   atoi(s[1:6]),
		Lot:     atoi(s[6:]),
	}
	if !k.Valid() {
		return Key{}, eris.Errorf("property: key %q out of range", raw)
	}
	return k, nil
}

func parseTriple(raw string) (Key, bool) {
	parts := strings.Split(raw, "-")
	if len(parts) != 3 {
		return Key{}, false
	}
	widths := [3]int{1, 5, 4}
	var vals [3]int
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || len(p) > widths[i] || digitsOnly(p) != p {
			return Key{}, false
		}
		vals[i] = atoi(p)
	}
	if !validBorough(vals[0]) {
		return Key{}, false
	}
	return Key{Borough: vals[0], Block: vals[1], Lot: vals[2]}, true
}

// notDigitOrDash trims labels such as "BBL " around a dash triple.
func notDigitOrDash(r rune) bool {
	return r != '-' && (r < '0' || r > '9')
}

// parseLoose handles strings like "18430004": borough 1, block 843, lot 4.
func parseLoose(digits string) (Key, bool) {
	if len(digits) < 6 || len(digits) > KeyLen-1 {
		return Key{}, false
	}
	borough := atoi(digits[:1])
	if !validBorough(borough) {
		return Key{}, false
	}
	lotStart := len(digits) - 4
	return Key{
		Borough: borough,
		Block:   atoi(digits[1:lotStart]),
		Lot:     atoi(digits[lotStart:]),
	}, true
}

// NormalizeBIN strips everything but digits from a building identification number.
func NormalizeBIN(raw string) string {
	return digitsOnly(raw)
}

// ValidBIN reports whether bin is a 7-digit building number with a borough
// prefix. Placeholder numbers (borough digit followed by six zeros) are
// assigned to buildings without a real BIN and are rejected.
func ValidBIN(bin string) bool {
	bin = NormalizeBIN(bin)
	if len(bin) != 7 {
		return false
	}
	if !validBorough(atoi(bin[:1])) {
		return false
	}
	return bin[1:] != "000000"
}

func validBorough(b int) bool {
	return b >= 1 && b <= 5
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
