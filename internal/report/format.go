// Package report renders block snapshots and summaries for human
// consumption: console tables, Markdown, and CSV exports.
package report

import (
	"fmt"
	"strings"
)

// FormatUSD renders a USD amount with thousands separators and two
// decimals.
func FormatUSD(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}

	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, fracPart := s[:dot], s[dot:]

	var sb strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(ch)
	}

	out := "$" + sb.String() + fracPart
	if neg {
		return "-" + out
	}
	return out
}

// FormatPercent renders a percentage with a sign and two decimals.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// ShortAddress abbreviates an address-like identifier to its first six
// and last four characters.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// WarningBreakdown classifies flat pricing-error lists by failure
// kind so a long list collapses to a few counters.
type WarningBreakdown struct {
	MissingPrice int `json:"missing_price"`
	ZeroPrice    int `json:"zero_price"`
	Derivation   int `json:"derivation"`
	Other        int `json:"other"`
}

// ClassifyWarnings buckets pricing errors by failure kind.
func ClassifyWarnings(errs []string) WarningBreakdown {
	var b WarningBreakdown
	for _, e := range errs {
		switch {
		case strings.Contains(e, "no price available"):
			b.MissingPrice++
		case strings.Contains(e, "zero price"):
			b.ZeroPrice++
		case strings.Contains(e, "derive price") || strings.Contains(e, "derivation"):
			b.Derivation++
		default:
			b.Other++
		}
	}
	return b
}
