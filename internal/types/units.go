package types

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

const (
	WeiDecimals   = 0
	GweiDecimals  = 9
	EtherDecimals = 18
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrAmountOverflow  = errors.New("amount does not fit into 256 bits")
	ErrUnknownUnit     = errors.New("unknown unit")
)

var namedUnits = map[string]uint8{
	"wei":   WeiDecimals,
	"gwei":  GweiDecimals,
	"ether": EtherDecimals,
}

// UnitDecimals resolves unit name ("wei", "gwei", "ether") or a decimal count ("6") to the number of decimals.
func UnitDecimals(unit string) (uint8, error) {
	if d, ok := namedUnits[strings.ToLower(unit)]; ok {
		return d, nil
	}
	d, err := strconv.ParseUint(unit, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
	if d > 77 {
		return 0, fmt.Errorf("%w: at most 77 decimals supported, got %d", ErrUnknownUnit, d)
	}
	return uint8(d), nil
}

/*
ParseUnits converts human readable decimal string into integer amount scaled by
the unit, ie ParseUnits("1.5", "ether") == 1500000000000000000.
*/
func ParseUnits(value, unit string) (*uint256.Int, error) {
	decimals, err := UnitDecimals(unit)
	if err != nil {
		return nil, err
	}
	return ParseDecimals(value, decimals)
}

// ParseEther is shorthand for ParseUnits(value, "ether").
func ParseEther(value string) (*uint256.Int, error) {
	return ParseDecimals(value, EtherDecimals)
}

func ParseDecimals(value string, decimals uint8) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "-") {
		return nil, ErrNegativeAmount
	}
	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d", ErrTooManyDecimals, value, decimals)
	}
	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", int(decimals)-len(frac)), "0")
	if digits == "" {
		return uint256.NewInt(0), nil
	}
	b, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return v, nil
}

// FormatUnits is the inverse of ParseDecimals, trailing fractional zeros are dropped.
func FormatUnits(v *uint256.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	s := v.ToBig().String()
	if decimals == 0 {
		return s
	}
	if len(s) <= int(decimals) {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	whole, frac := s[:len(s)-int(decimals)], strings.TrimRight(s[len(s)-int(decimals):], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func FormatEther(v *uint256.Int) string {
	return FormatUnits(v, EtherDecimals)
}

// Ether returns n * 10^18.
func Ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(EtherDecimals)))
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
