package intake

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// isoDate is the normalized calendar-date layout stored on the record.
const isoDate = "2006-01-02"

var (
	monthYearRE  = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?,?\s*(?:of\s+)?(\d{4})\b`)
	isoDateRE    = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	slashDateRE  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	slashMonthRE = regexp.MustCompile(`\b(\d{1,2})/(\d{4})\b`)
	bareYearRE   = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	lastMonthRE  = regexp.MustCompile(`(?i)\blast\s+month\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// parseReportedDate scans free text for a test date and normalizes it to an
// ISO calendar date. Recognized shapes, in priority order: month-name + year,
// numeric dates (ISO and d/m/y), month/year, the literal phrase "last month",
// and a bare four-digit year. Day-level precision is kept when given;
// month-level inputs normalize to the first of the month.
func parseReportedDate(message string, now time.Time) (string, bool) {
	if m := monthYearRE.FindStringSubmatch(message); m != nil {
		month, ok := monthsByPrefix[strings.ToLower(m[1])[:3]]
		if ok {
			year, _ := strconv.Atoi(m[2])
			return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format(isoDate), true
		}
	}

	if m := isoDateRE.FindStringSubmatch(message); m != nil {
		if d, ok := calendarDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}

	// d/m/y ordering; clinics in this flow report dates day-first.
	if m := slashDateRE.FindStringSubmatch(message); m != nil {
		if d, ok := calendarDate(m[3], m[2], m[1]); ok {
			return d, true
		}
	}

	if m := slashMonthRE.FindStringSubmatch(message); m != nil {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 {
			return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format(isoDate), true
		}
	}

	if lastMonthRE.MatchString(message) {
		firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return firstOfThisMonth.AddDate(0, -1, 0).Format(isoDate), true
	}

	if m := bareYearRE.FindStringSubmatch(message); m != nil {
		year, _ := strconv.Atoi(m[1])
		if year <= now.Year() {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Format(isoDate), true
		}
	}

	return "", false
}

func calendarDate(yearStr, monthStr, dayStr string) (string, bool) {
	year, _ := strconv.Atoi(yearStr)
	month, _ := strconv.Atoi(monthStr)
	day, _ := strconv.Atoi(dayStr)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format(isoDate), true
}
