package domain

// Season labels.
const (
	Winter = "Winter"
	Spring = "Spring"
	Summer = "Summer"
	Fall   = "Fall"
)

var monthAbbr = [...]string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var seasonNames = [...]string{Winter, Spring, Summer, Fall}

// MonthOrder is the chart order of months. Starting at December keeps the
// whole winter contiguous across the year boundary.
var MonthOrder = []string{"Dec", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov"}

// Weekdays is the display order of weekday names.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// QuarterWindow is a run of months drawn as one chart line. Adjacent windows
// share their boundary month so the lines meet.
type QuarterWindow struct {
	Season string
	Months []string
}

// QuarterWindows lists the four overlapping chart windows in MonthOrder.
var QuarterWindows = []QuarterWindow{
	{Season: Winter, Months: []string{"Dec", "Jan", "Feb", "Mar"}},
	{Season: Spring, Months: []string{"Mar", "Apr", "May", "Jun"}},
	{Season: Summer, Months: []string{"Jun", "Jul", "Aug", "Sep"}},
	{Season: Fall, Months: []string{"Sep", "Oct", "Nov"}},
}

// MonthAbbr returns the three-letter English abbreviation of month m (1-12),
// or "" when m is out of range.
func MonthAbbr(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthAbbr[m]
}

// MonthNumber is the inverse of MonthAbbr. It returns 0 for unknown labels.
func MonthNumber(abbr string) int {
	for i := 1; i <= 12; i++ {
		if monthAbbr[i] == abbr {
			return i
		}
	}
	return 0
}

// SeasonOf maps a month number to its meteorological season:
// Dec-Feb Winter, Mar-May Spring, Jun-Aug Summer, Sep-Nov Fall.
func SeasonOf(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return seasonNames[m%12/3]
}

// SeasonOfAbbr is SeasonOf keyed by month abbreviation.
func SeasonOfAbbr(abbr string) string {
	return SeasonOf(MonthNumber(abbr))
}
