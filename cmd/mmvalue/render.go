package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/mmvalue/internal/validation"
)

var (
	okBadge   = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnBadge = color.New(color.FgYellow, color.Bold).SprintFunc()
	errBadge  = color.New(color.FgRed, color.Bold).SprintFunc()
	header    = color.New(color.FgCyan, color.Bold).SprintFunc()
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// usd rounds to cents and groups thousands: 1234567.891 -> $1,234,567.89
func usd(v float64) string {
	s := decimal.NewFromFloat(v).Round(2).StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// pct renders a fraction or percentage with fixed places
func pct(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).StringFixed(places) + "%"
}

func rangeBadge(inRange bool) string {
	if inRange {
		return okBadge("IN RANGE")
	}
	return errBadge("OUT OF RANGE")
}

func stableBadge(stable bool) string {
	if stable {
		return okBadge("STABLE")
	}
	return warnBadge("UNSETTLED")
}

func printValidation(w io.Writer, s *validation.Summary) {
	if s == nil {
		return
	}
	status := okBadge("VALID")
	if !s.Valid {
		status = errBadge("INVALID")
	}
	fmt.Fprintf(w, "\n%s %s (%d checks)\n", header("Validation:"), status, s.TotalChecks)
	for _, r := range s.Errors {
		fmt.Fprintf(w, "  %s %s\n", errBadge("error"), r.Message)
	}
	for _, r := range s.Warnings {
		fmt.Fprintf(w, "  %s %s\n", warnBadge("warn "), r.Message)
	}
}
