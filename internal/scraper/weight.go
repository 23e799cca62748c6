package scraper

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	leadingNumberPattern = regexp.MustCompile(`\d+(\.\d+)?`)
	trailingUnitsPattern = regexp.MustCompile(`[^\d.]+$`)
)

// TransformWeight pads a scraped shipping weight: the numeric part is rounded
// up and increased by 5, because the weights katom publishes understate the
// actual packaged weight. The trailing unit text is kept. Values with no
// leading number pass through unchanged.
func TransformWeight(value string) string {
	match := leadingNumberPattern.FindString(value)
	if match == "" {
		return value
	}

	number, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return value
	}

	final := int(math.Ceil(number)) + 5
	units := strings.TrimSpace(trailingUnitsPattern.FindString(value))
	if units == "" {
		return strconv.Itoa(final)
	}
	return fmt.Sprintf("%d %s", final, units)
}
