// Package domain contains core business types and interfaces.
//
// This file defines the Credits money type. Credits are the platform's
// internal spendable unit, pre-purchased with real money and consumed per
// booked session. They are stored as integer hundredths of a credit;
// ledger arithmetic is exact and no float ever touches a balance.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Credits is an amount of spendable credits in hundredths (45.50 credits is
// Credits(4550)). The underlying integer is what the database stores.
type Credits int64

// CreditsFromUnits builds a Credits value from whole credits.
func CreditsFromUnits(units int64) Credits {
	return Credits(units * 100)
}

// String renders the amount with two decimal places, e.g. "45.00".
func (c Credits) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Float64 returns the amount as a float for display-only uses (metrics,
// JSON responses). Never feed the result back into ledger arithmetic.
func (c Credits) Float64() float64 {
	return float64(c) / 100
}

// ParseCredits parses a decimal credit amount such as "20", "20.5" or
// "20.50". At most two fractional digits are accepted; anything finer than a
// hundredth of a credit is not representable and is rejected rather than
// silently rounded.
func ParseCredits(s string) (Credits, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse credits: empty amount")
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("parse credits %q: more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse credits %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse credits %q: %w", s, err)
	}

	v := w*100 + f
	if neg {
		v = -v
	}
	return Credits(v), nil
}
