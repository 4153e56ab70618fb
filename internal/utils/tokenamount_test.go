package utils_test

import (
	"math/big"
	"testing"

	"github.com/fundmatch-labs/fundmatch/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenAmount(t *testing.T) {
	t.Run("whole amount", func(t *testing.T) {
		v, err := utils.ParseTokenAmount("100", 6)
		require.NoError(t, err)
		assert.Equal(t, "100000000", v.String())
	})

	t.Run("fractional amount", func(t *testing.T) {
		v, err := utils.ParseTokenAmount("1.5", 6)
		require.NoError(t, err)
		assert.Equal(t, "1500000", v.String())
	})

	t.Run("leading dot", func(t *testing.T) {
		v, err := utils.ParseTokenAmount(".25", 2)
		require.NoError(t, err)
		assert.Equal(t, "25", v.String())
	})

	t.Run("negative amount", func(t *testing.T) {
		v, err := utils.ParseTokenAmount("-3.2", 6)
		require.NoError(t, err)
		assert.Equal(t, "-3200000", v.String())
	})

	t.Run("zero decimals", func(t *testing.T) {
		v, err := utils.ParseTokenAmount("42", 0)
		require.NoError(t, err)
		assert.Equal(t, "42", v.String())
	})

	t.Run("rejects excess precision", func(t *testing.T) {
		_, err := utils.ParseTokenAmount("1.2345678", 6)
		assert.Error(t, err)
	})

	t.Run("rejects empty string", func(t *testing.T) {
		_, err := utils.ParseTokenAmount("", 6)
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := utils.ParseTokenAmount("12x", 6)
		assert.Error(t, err)
	})
}

func TestFormatTokenAmount(t *testing.T) {
	t.Run("trims trailing zeros", func(t *testing.T) {
		assert.Equal(t, "1.5", utils.FormatTokenAmount(big.NewInt(1500000), 6))
	})

	t.Run("whole value", func(t *testing.T) {
		assert.Equal(t, "1000", utils.FormatTokenAmount(big.NewInt(100000), 2))
	})

	t.Run("sub-unit value", func(t *testing.T) {
		assert.Equal(t, "0.000001", utils.FormatTokenAmount(big.NewInt(1), 6))
	})

	t.Run("nil is zero", func(t *testing.T) {
		assert.Equal(t, "0", utils.FormatTokenAmount(nil, 6))
	})

	t.Run("round trip", func(t *testing.T) {
		for _, s := range []string{"0", "1", "0.01", "264.71", "735.29", "1234567.890123"} {
			parsed, err := utils.ParseTokenAmount(s, 6)
			require.NoError(t, err)
			assert.Equal(t, s, utils.FormatTokenAmount(parsed, 6))
		}
	})
}
