package phone

import "strings"

// Config describes the country defaults applied to numbers written in
// national format. The gateway's wire format is digits only, so the
// leading '+' is stripped from the final result.
type Config struct {
	// DefaultCountryCode is prepended to numbers that carry no
	// international prefix, e.g. "54".
	DefaultCountryCode string
	// TrunkPrefix is the national dialing prefix replaced by the country
	// code, e.g. "0".
	TrunkPrefix string
	// MobilePrefix is inserted after the country code when a trunk
	// prefix is replaced (Argentina's "9"). May be empty.
	MobilePrefix string
}

type Normalizer struct {
	cfg Config
}

func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize converts arbitrary phone-number text into the gateway's
// digits-only format. It is total: any input yields a best-effort string
// and callers re-validate length before use.
func (n *Normalizer) Normalize(raw string) string {
	cleaned := stripFormatting(raw)

	switch {
	case strings.HasPrefix(cleaned, "+"):
		// Already international.
	case strings.HasPrefix(cleaned, "00"):
		cleaned = "+" + cleaned[2:]
	case n.cfg.TrunkPrefix != "" && strings.HasPrefix(cleaned, n.cfg.TrunkPrefix):
		cleaned = "+" + n.cfg.DefaultCountryCode + n.cfg.MobilePrefix + cleaned[len(n.cfg.TrunkPrefix):]
	default:
		cleaned = "+" + n.cfg.DefaultCountryCode + cleaned
	}

	return strings.TrimPrefix(cleaned, "+")
}

// IsPlausible reports whether a normalized number is long enough to hand
// to the gateway.
func IsPlausible(normalized string) bool {
	return len(normalized) >= 10
}

func stripFormatting(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
