package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrFileSize marks a file size string that is not of the form "<number> MB".
var ErrFileSize = errors.New("malformed file size")

// ParseFileSize converts "<number> MB" to bytes using 1 MB = 1,000,000 bytes.
// Fractional bytes are truncated. Any other unit is an error.
func ParseFileSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	num, ok := strings.CutSuffix(s, " MB")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrFileSize, s)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(num))
	if err != nil || d.IsNegative() {
		return 0, fmt.Errorf("%w: %q", ErrFileSize, s)
	}
	return d.Shift(6).IntPart(), nil
}
