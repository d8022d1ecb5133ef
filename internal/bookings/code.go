package bookings

import (
	"fmt"
	"strings"
	"time"
)

// GenerateCode builds the display code shown on confirmation screens:
// the vertical prefix followed by the last 8 digits of the epoch millisecond
// timestamp. The sequence repeats roughly daily, so the store keeps codes
// unique and rejects a taken one with ErrDuplicateCode; the booking id is
// assigned separately.
func GenerateCode(prefix string, at time.Time) string {
	millis := at.UnixMilli()
	if millis < 0 {
		millis = -millis
	}
	return fmt.Sprintf("%s%08d", strings.ToUpper(strings.TrimSpace(prefix)), millis%100_000_000)
}
