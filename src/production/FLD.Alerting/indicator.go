package alerting

import (
	"strconv"
	"strings"

	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	thingspeak "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ThingSpeak"
)

// IndicatorActive is the field value that raises an alert
const IndicatorActive = 1

// ParseIndicator reports whether the alert field holds the active value.
// The leading integer decides, so "1.0" and "1abc" are active. Absent
// values and values without leading digits are inactive.
func ParseIndicator(v thingspeak.FieldValue) bool {
	if !v.Valid() {
		return false
	}
	n, ok := leadingInt(v.String())
	return ok && n == IndicatorActive
}

// leadingInt reads an optionally signed run of digits after leading
// whitespace and ignores whatever follows it.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ReadingRule is the secondary threshold check against a stored reading.
// Either condition is enough to match.
type ReadingRule struct {
	WaterLevelThreshold float64
	RainThreshold       int
}

func (r ReadingRule) Matches(rd fldmodels.Reading) bool {
	if rd.WaterLevel != nil && *rd.WaterLevel >= r.WaterLevelThreshold {
		return true
	}
	if n, ok := leadingInt(rd.RainingStatus); ok && n == r.RainThreshold {
		return true
	}
	return false
}
