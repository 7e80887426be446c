package pipeline

import (
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"avance/internal/util"
)

const DisplayDateLayout = "02/01/2006"

// Layouts tried in order. Slash dates are read day-first; dash dates with a
// two-digit year follow excelize's default mm-dd-yy rendering.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"2006/01/02",
	"01-02-06",
	"1-2-06",
	"02-01-2006",
	"02.01.2006",
}

// ParseDate coerces a header or cell to a date. Excel serial numbers are
// accepted. Unparseable values report false.
func ParseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := util.NormalizeSpaces(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		if strings.ContainsAny(s, "/-.") {
			return time.Time{}, false
		}
	}
	return serialDate(v)
}

func serialDate(v any) (time.Time, bool) {
	f, ok := util.ParseNumber(v)
	if !ok || f < 1 || f > 2958465 {
		return time.Time{}, false
	}
	parsed, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
