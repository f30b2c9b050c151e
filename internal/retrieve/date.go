package retrieve

import (
	"fmt"
	"strings"
	"time"
)

// Upstream dates look like "11/3/2024, 09:15 AM, +0000 UTC".
var upstreamLayouts = []string{
	"1/2/2006, 3:04 PM, -0700",
	"1/2/2006, 3:04 PM, -07:00",
}

const (
	displayLayout = "02/01/2006, 03:04 PM"
	displayShift  = 8 * time.Hour
)

// FormatDate converts an upstream timestamp to "DD/MM/YYYY, HH:MM AM/PM",
// moved forward by a fixed eight hours.
func FormatDate(date string) (string, error) {
	s := strings.TrimSpace(strings.Replace(date, " UTC", "", 1))

	var firstErr error
	for _, layout := range upstreamLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Add(displayShift).Format(displayLayout), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", fmt.Errorf("parsing date %q: %w", date, firstErr)
}
