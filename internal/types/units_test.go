package types

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	var tests = []struct {
		value string
		unit  string
		want  string
	}{
		{"1000000", "ether", "1000000000000000000000000"},
		{"1.5", "ether", "1500000000000000000"},
		{"0.000000000000000001", "ether", "1"},
		{"1", "gwei", "1000000000"},
		{"42", "wei", "42"},
		{"1.25", "6", "1250000"},
		{"0", "ether", "0"},
		{"000.000", "ether", "0"},
		{"1.", "ether", "1000000000000000000"},
		{".5", "ether", "500000000000000000"},
	}
	for _, tc := range tests {
		t.Run(tc.value+" "+tc.unit, func(t *testing.T) {
			v, err := ParseUnits(tc.value, tc.unit)
			require.NoError(t, err)
			require.Equal(t, tc.want, v.ToBig().String())
		})
	}
}

func TestParseUnits_Errors(t *testing.T) {
	_, err := ParseUnits("-1", "ether")
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = ParseUnits("", "ether")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseUnits(".", "ether")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseUnits("1e18", "wei")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseUnits("0.1", "wei")
	require.ErrorIs(t, err, ErrTooManyDecimals)

	_, err = ParseUnits("1", "finney")
	require.ErrorIs(t, err, ErrUnknownUnit)

	_, err = ParseUnits("1", "78")
	require.ErrorIs(t, err, ErrUnknownUnit)

	// 2^256 in wei
	_, err = ParseUnits("115792089237316195423570985008687907853269984665640564039457584007913129639936", "wei")
	require.ErrorIs(t, err, ErrAmountOverflow)
}

func TestFormatUnits(t *testing.T) {
	require.Equal(t, "1000000", FormatEther(Ether(1000000)))
	require.Equal(t, "1.5", FormatEther(uint256.NewInt(1500000000000000000)))
	require.Equal(t, "0.000000000000000001", FormatEther(uint256.NewInt(1)))
	require.Equal(t, "0", FormatEther(uint256.NewInt(0)))
	require.Equal(t, "0", FormatEther(nil))
	require.Equal(t, "12.34", FormatUnits(uint256.NewInt(1234), 2))
	require.Equal(t, "1234", FormatUnits(uint256.NewInt(1234), 0))
}

func TestEther(t *testing.T) {
	v, err := ParseUnits("2000000", "ether")
	require.NoError(t, err)
	require.Equal(t, v, Ether(2000000))
	require.Equal(t, new(uint256.Int).Add(Ether(1000000), Ether(1000000)), Ether(2000000))
}
