package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pilosa/dspxml"
)

// Calendar is the calendar of a canonical date.
type Calendar uint8

const (
	Gregorian Calendar = iota
	Julian
)

func (c Calendar) String() string {
	if c == Julian {
		return "JULIAN"
	}
	return "GREGORIAN"
}

// ParseCalendar accepts "Gregorian" or "Julian" in any case.
func ParseCalendar(s string) (Calendar, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gregorian":
		return Gregorian, nil
	case "julian":
		return Julian, nil
	}
	return 0, dspxml.InputErrorf("unknown calendar_type %q, expected Gregorian or Julian", s)
}

// DatePattern describes how a date is written. Tokens: "dd" day, "mm"
// numeric month, "month" month name, "yyyy" year of up to four digits.
// Whitespace matches any run of whitespace; everything else is literal. A
// token that was already seen starts the second date of a range.
type DatePattern struct {
	Pattern string
	// Epoch is "CE" (the default) or "BCE".
	Epoch string
}

type field uint8

const (
	fieldDay field = iota
	fieldMonth
	fieldMonthName
	fieldYear
)

type capture struct {
	field field
	date  int
}

type compiledPattern struct {
	re       *regexp.Regexp
	captures []capture
}

var patternCache *lru.Cache[string, *compiledPattern]

func init() {
	var err error
	patternCache, err = lru.New[string, *compiledPattern](256)
	if err != nil {
		panic(err)
	}
}

var tokens = []struct {
	text  string
	field field
	re    string
}{
	{"month", fieldMonthName, `(\p{L}+\.?)`},
	{"yyyy", fieldYear, `(\d{1,4})`},
	{"dd", fieldDay, `(\d{1,2})`},
	{"mm", fieldMonth, `(\d{1,2})`},
}

func compilePattern(pattern string) (*compiledPattern, error) {
	if cp, ok := patternCache.Get(pattern); ok {
		return cp, nil
	}
	var (
		sb   strings.Builder
		caps []capture
		seen = map[field]bool{}
		date = 0
	)
	sb.WriteString(`^\s*`)
	for i := 0; i < len(pattern); {
		matched := false
		for _, tok := range tokens {
			if !strings.HasPrefix(strings.ToLower(pattern[i:]), tok.text) {
				continue
			}
			f := tok.field
			if f == fieldMonthName {
				f = fieldMonth
			}
			if seen[f] {
				if date == 1 {
					return nil, dspxml.InputErrorf("date pattern %q describes more than two dates", pattern)
				}
				date = 1
				seen = map[field]bool{}
			}
			seen[f] = true
			caps = append(caps, capture{field: tok.field, date: date})
			sb.WriteString(tok.re)
			i += len(tok.text)
			matched = true
			break
		}
		if matched {
			continue
		}
		if pattern[i] == ' ' || pattern[i] == '\t' {
			for i < len(pattern) && (pattern[i] == ' ' || pattern[i] == '\t') {
				i++
			}
			sb.WriteString(`\s*`)
			continue
		}
		sb.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		i++
	}
	sb.WriteString(`\s*$`)
	if len(caps) == 0 {
		return nil, dspxml.InputErrorf("date pattern %q contains no day, month or year", pattern)
	}
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, dspxml.InputErrorf("date pattern %q: %v", pattern, err)
	}
	cp := &compiledPattern{re: re, captures: caps}
	patternCache.Add(pattern, cp)
	return cp, nil
}

// ValidatePattern reports whether p compiles.
func ValidatePattern(p DatePattern) error {
	if p.Epoch != "" && p.Epoch != "CE" && p.Epoch != "BCE" {
		return dspxml.InputErrorf("date pattern %q: unknown epoch %q", p.Pattern, p.Epoch)
	}
	_, err := compilePattern(p.Pattern)
	return err
}

type ymd struct {
	year, month, day int
	// captured fields
	hasYear, hasMonth, hasDay bool
}

// match parses v; ok is false if v does not match or a captured field is
// not a real date in cal. Fields the pattern does not capture are taken
// from the other half of a range, else month and day default to 1.
func (cp *compiledPattern) match(v string, cal Calendar, bce bool) (dates [2]ymd, ok bool) {
	m := cp.re.FindStringSubmatch(v)
	if m == nil {
		return dates, false
	}
	var set [2]bool
	for i, c := range cp.captures {
		s := m[i+1]
		set[c.date] = true
		d := &dates[c.date]
		switch c.field {
		case fieldMonthName:
			mo, found := ParseMonth(s)
			if !found {
				return dates, false
			}
			d.month, d.hasMonth = int(mo), true
		default:
			n, err := strconv.Atoi(s)
			if err != nil || n == 0 {
				return dates, false
			}
			switch c.field {
			case fieldDay:
				d.day, d.hasDay = n, true
			case fieldMonth:
				d.month, d.hasMonth = n, true
			case fieldYear:
				d.year, d.hasYear = n, true
			}
		}
	}
	if !set[1] {
		dates[1] = dates[0]
	}
	// a half without year, or with a day but no month, borrows from the
	// other half.
	for i := 0; i < 2; i++ {
		d, o := &dates[i], dates[1-i]
		if !d.hasYear && o.hasYear {
			d.year = o.year
		}
		if !d.hasMonth && d.hasDay && o.hasMonth {
			d.month, d.hasMonth = o.month, true
		}
	}
	for i := range dates {
		d := &dates[i]
		if !d.hasMonth {
			d.month = 1
		}
		if !d.hasDay {
			d.day = 1
		}
		if d.month > 12 || d.day > daysIn(cal, bce, d.year, d.month) {
			return dates, false
		}
	}
	return dates, true
}

var monthDays = [...]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// daysIn returns the number of days of month in year. BCE years are
// counted astronomically for the leap rule, so 1 BCE is a leap year.
func daysIn(cal Calendar, bce bool, year, month int) int {
	if month != 2 {
		return monthDays[month-1]
	}
	y := year
	if bce {
		y = 1 - year
	}
	leap := y%4 == 0
	if cal == Gregorian {
		leap = leap && (y%100 != 0 || y%400 == 0)
	}
	if leap {
		return 29
	}
	return 28
}

var canonicalDate = regexp.MustCompile(`^(GREGORIAN|JULIAN):(CE|BCE):\d{4}:\d{2}:\d{2}:(CE|BCE):\d{4}:\d{2}:\d{2}$`)

// IsCanonicalDate reports whether v is already a canonical date string.
func IsCanonicalDate(v string) bool {
	return canonicalDate.MatchString(v)
}

// ParseDate converts v with the first matching pattern into
// CAL:EPOCH:YYYY:MM:DD:EPOCH:YYYY:MM:DD. Canonical strings are returned
// unchanged.
func ParseDate(v string, cal Calendar, patterns []DatePattern) (string, error) {
	if IsCanonicalDate(v) {
		return v, nil
	}
	for _, p := range patterns {
		cp, err := compilePattern(p.Pattern)
		if err != nil {
			return "", err
		}
		epoch := p.Epoch
		if epoch == "" {
			epoch = "CE"
		}
		dates, ok := cp.match(v, cal, epoch == "BCE")
		if !ok {
			continue
		}
		return fmt.Sprintf("%s:%s:%04d:%02d:%02d:%s:%04d:%02d:%02d", cal,
			epoch, dates[0].year, dates[0].month, dates[0].day,
			epoch, dates[1].year, dates[1].month, dates[1].day), nil
	}
	return "", dspxml.ParsingErrorf("date %q matches none of the configured patterns", v)
}

func applyToDate(o ToDate, t *Table) (*DataColumn, error) {
	if len(o.Patterns) == 0 {
		return nil, dspxml.InputErrorf("to_date needs at least one pattern")
	}
	in, err := t.Resolve(o.Input)
	if err != nil {
		return nil, err
	}
	return mapValues(o.Output, in, func(v string) (string, error) {
		if v == "" {
			return v, nil
		}
		return ParseDate(v, o.Calendar, o.Patterns)
	})
}
