package billing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmountRejectsNonFinite(t *testing.T) {
	_, err := Amount(math.NaN())
	require.Error(t, err)

	_, err = Amount(math.Inf(1))
	require.Error(t, err)

	_, err = Amount(math.Inf(-1))
	require.Error(t, err)
}

func TestAmountClampsNegativeToZero(t *testing.T) {
	d, err := Amount(-12.5)
	require.NoError(t, err)
	require.True(t, d.IsZero())
}

func TestAmountFromString(t *testing.T) {
	d, err := AmountFromString(" 19.99 ")
	require.NoError(t, err)
	require.Equal(t, "19.99", d.String())

	d, err = AmountFromString("")
	require.NoError(t, err)
	require.True(t, d.IsZero())

	d, err = AmountFromString("-3")
	require.NoError(t, err)
	require.True(t, d.IsZero())

	_, err = AmountFromString("abc")
	require.Error(t, err)
}

func TestQuantity(t *testing.T) {
	d, err := Quantity(2.5)
	require.NoError(t, err)
	require.Equal(t, "2.5", d.String())

	_, err = Quantity(0)
	require.Error(t, err)

	_, err = Quantity(-1)
	require.Error(t, err)

	_, err = Quantity(math.NaN())
	require.Error(t, err)
}
