package format

import (
	"fmt"
	"strconv"
	"strings"

	orgdomain "github.com/praxishq/praxis/internal/org/domain"
)

// FormatNumber renders a human-readable invoice number from the tenant's
// numbering scheme and a monotonic sequence:
//
//	{prefix}-{paddedNumber}[-{suffix}]
//
// This function is PURE: no side effects, no DB access, fully deterministic.
func FormatNumber(scheme orgdomain.NumberingScheme, seq int64) (string, error) {
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}

	prefix := strings.TrimSpace(scheme.Prefix)
	if prefix == "" {
		return "", fmt.Errorf("invoice prefix is empty")
	}

	number := strconv.FormatInt(seq, 10)
	if scheme.ZeroPad && scheme.Width > len(number) {
		number = fmt.Sprintf("%0*d", scheme.Width, seq)
	}

	out := prefix + "-" + number
	if suffix := strings.TrimSpace(scheme.Suffix); suffix != "" {
		out += "-" + suffix
	}
	return out, nil
}
