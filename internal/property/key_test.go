package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey_ShapeInvariance(t *testing.T) {
	const canonical = "1008430004"
	inputs := []string{
		"1008430004",
		" 1008430004 ",
		"1-00843-0004",
		"1-843-4",
		"18430004",
		"1008430004\n",
		"BBL 1-843-4",
		"bbl: 1-00843-0004.",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, canonical, NormalizeKey(in))
		})
	}
}

func TestNormalizeKey_Idempotent(t *testing.T) {
	inputs := []string{"3-1234-56", "412345678", "5000010001", "2-7-8", "abc", ""}
	for _, in := range inputs {
		once := NormalizeKey(in)
		assert.Equal(t, once, NormalizeKey(once), "input %q", in)
	}
}

func TestNormalizeKey_InvalidBoroughTriple(t *testing.T) {
	// Borough 7 is rejected by the triple parser and the loose parser; the
	// digits-only string comes back.
	assert.Equal(t, "78434", NormalizeKey("7-843-4"))
}

func TestNormalizeKey_Unparseable(t *testing.T) {
	assert.Equal(t, "", NormalizeKey("n/a"))
	assert.Equal(t, "123", NormalizeKey("lot 123"))
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("2-3456-78")
	require.NoError(t, err)
	assert.Equal(t, Key{Borough: 2, Block: 3456, Lot: 78}, k)
	assert.Equal(t, "2034560078", k.String())
	assert.True(t, k.Valid())
}

func TestParseKey_Errors(t *testing.T) {
	_, err := ParseKey("123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not normalize")

	_, err = ParseKey("9000010001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	_, err = ParseKey("1000000000")
	require.Error(t, err)
}

func TestValidBIN(t *testing.T) {
	assert.True(t, ValidBIN("1034304"))
	assert.True(t, ValidBIN("1-034-304"))
	assert.False(t, ValidBIN("1000000"))
	assert.False(t, ValidBIN("6034304"))
	assert.False(t, ValidBIN("103430"))
	assert.Equal(t, "1034304", NormalizeBIN(" 1034304 "))
}
