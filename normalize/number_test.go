package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	n, ok := ParseNumber(" 12.5 ")
	assert.True(t, ok)
	assert.Equal(t, 12.5, n)

	n, ok = ParseNumber(7)
	assert.True(t, ok)
	assert.Equal(t, 7.0, n)

	for _, bad := range []any{"", "  ", "abc", math.NaN(), math.Inf(1), nil, true} {
		_, ok := ParseNumber(bad)
		assert.False(t, ok, "%v", bad)
	}
}

func TestNumberPredicates(t *testing.T) {
	assert.True(t, IsPositiveNumber("3"))
	assert.False(t, IsPositiveNumber("0"))
	assert.False(t, IsPositiveNumber("-1"))

	assert.True(t, IsIntegerNumber("4"))
	assert.False(t, IsIntegerNumber("4.2"))

	assert.True(t, InRange(5, 1, 5))
	assert.False(t, InRange(6, 1, 5))
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "usa", CanonicalKey("U.S.A."))
	assert.Equal(t, "unitedstates", CanonicalKey("  United   States "))
	assert.Equal(t, "us", CanonicalKey("u s"))
	assert.Equal(t, "", CanonicalKey(" .,- "))
}
