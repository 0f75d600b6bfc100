package token

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/Drgblack/timemeaning/plugin/timeref/failure"
	"github.com/Drgblack/timemeaning/server/timezone"
)

// MaxInputLength is the longest accepted input, in characters.
const MaxInputLength = 500

const monthNames = `(january|february|march|april|may|june|july|august|september|october|november|december|sept|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)`

// Patterns, most specific first. Each pass only claims text no earlier pass claimed.
var (
	isoPattern      = regexp.MustCompile(`(?i)\b(\d{4})-(\d{2})-(\d{2})[t ](\d{2}):(\d{2})(?::(\d{2})(?:[.,]\d{1,9})?)?(?:\s?(z|[+-]\d{2}(?::?\d{2})?))?`)
	isoDatePattern  = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	unixPattern     = regexp.MustCompile(`(?:^|[^\w.:/+-])(-?\d{13}|-?\d{10})(?:$|[^\w.:/-])`)
	zuluPattern     = regexp.MustCompile(`(?i)\b([01]\d|2[0-3]):?([0-5]\d)\s?z\b`)
	colonPattern    = regexp.MustCompile(`(?i)\b([01]?\d|2[0-3]):([0-5]\d)(?::([0-5]\d))?(?:\s*([ap])\.?m\b\.?)?`)
	meridiemPattern = regexp.MustCompile(`(?i)\b(1[0-2]|0?[1-9])\s*([ap])\.?m\b\.?`)
	namedPattern    = regexp.MustCompile(`(?i)\b(noon|midday|midnight)\b`)
	bareHourPattern = regexp.MustCompile(`(?i)\bat\s+([01]?\d|2[0-3])\b`)

	namedOffsetPattern = regexp.MustCompile(`(?i)\b(?:UTC|GMT)\s*([+\-−])\s*(\d{1,2})(?::?([0-5]\d))?\b`)
	bareOffsetPattern  = regexp.MustCompile(`(?:^|[\s(])([+\-−])(\d{2}):?([0-5]\d)\b`)
	ianaPattern        = regexp.MustCompile(`\b([A-Z][A-Za-z_]+(?:/[A-Z][A-Za-z0-9_+\-]+){1,2})`)

	dayAfterPattern  = regexp.MustCompile(`(?i)\b(?:the\s+)?day\s+after\s+tomorrow\b`)
	dayBeforePattern = regexp.MustCompile(`(?i)\b(?:the\s+)?day\s+before\s+yesterday\b`)
	casualPattern    = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|tmrw|yesterday)\b`)
	inPattern        = regexp.MustCompile(`(?i)\bin\s+(\d{1,4})\s*(minutes?|mins?|hours?|hrs?|days?|weeks?|wks?|months?|years?|yrs?)\b`)
	agoPattern       = regexp.MustCompile(`(?i)\b(\d{1,4})\s*(minutes?|mins?|hours?|hrs?|days?|weeks?|wks?|months?|years?|yrs?)\s+ago\b`)
	endOfDayPattern  = regexp.MustCompile(`(?i)\b(end\s+of\s+(?:the\s+)?(?:business\s+)?day|close\s+of\s+(?:business|play)|cob|eod|eob)\b`)

	weekdayPattern      = regexp.MustCompile(`(?i)\b(?:(next|this|last|coming)\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	shortWeekdayPattern = regexp.MustCompile(`\b(?:((?i:next|this|last|coming))\s+)?(Mon|Tues|Tue|Wed|Thurs|Thur|Thu|Fri|Sat|Sun)\b\.?`)

	monthDayPattern = regexp.MustCompile(`(?i)\b(?:(\d{4}),?\s+)?` + monthNames + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	dayMonthPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthNames + `\b\.?(?:,?\s+(\d{4})\b)?`)
	slashPattern    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}))?\b`)

	wordPattern = regexp.MustCompile(`\b([A-Za-z]{2,5})\b`)
	adjacentGap = regexp.MustCompile(`^[\s(,]*$`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]int{
	"january": 1, "jan": 1, "february": 2, "feb": 2, "march": 3, "mar": 3,
	"april": 4, "apr": 4, "may": 5, "june": 6, "jun": 6, "july": 7, "jul": 7,
	"august": 8, "aug": 8, "september": 9, "sept": 9, "sep": 9, "october": 10, "oct": 10,
	"november": 11, "nov": 11, "december": 12, "dec": 12,
}

// Upper-case words that are routinely written in capitals but are not zones.
var notZones = map[string]bool{
	"AM": true, "PM": true, "OK": true, "FYI": true, "ASAP": true, "TBD": true, "TBA": true,
	"RSVP": true, "ETA": true, "USA": true, "US": true, "UK": true, "EU": true, "PS": true,
	"NB": true, "ID": true, "IT": true, "HR": true, "CEO": true, "CTO": true, "API": true,
	"UI": true, "PR": true, "QA": true, "BTW": true, "IMO": true, "DM": true, "FAQ": true,
	"RE": true, "FW": true, "FWD": true, "AT": true, "ON": true, "IN": true, "BY": true,
	"OR": true, "AND": true, "THE": true, "TO": true, "OF": true, "FOR": true, "CALL": true,
	"MEET": true, "DUE": true, "NOTE": true,
}

// phraseBase anchors the phrase fallback. Only the distance between the
// matched time and this base is used.
var phraseBase = time.Date(2000, time.January, 5, 12, 0, 0, 0, time.UTC)

// Tokenizer recognizes time-reference tokens. It is safe for concurrent use.
type Tokenizer struct {
	kb      *timezone.KnowledgeBase
	phrases *when.Parser
}

// New creates a tokenizer backed by the given knowledge base.
func New(kb *timezone.KnowledgeBase) *Tokenizer {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Tokenizer{kb: kb, phrases: w}
}

// Tokenize splits input into tokens ordered by position. It fails only on
// empty or oversized input; text with nothing recognizable yields no tokens.
func (t *Tokenizer) Tokenize(input string) ([]Token, error) {
	if strings.TrimSpace(input) == "" {
		return nil, failure.InvalidInput("input is empty")
	}
	if n := utf8.RuneCountInString(input); n > MaxInputLength {
		return nil, failure.InvalidInput("input is " + strconv.Itoa(n) + " characters; the limit is " + strconv.Itoa(MaxInputLength))
	}

	s := &scanner{input: input, claimed: make([]bool, len(input))}
	s.scanISO()
	s.scanUnix()
	s.scanZulu()
	s.scanOffsets()
	s.scanClocks()
	s.scanIANA()
	s.scanRelative()
	s.scanWeekdays()
	s.scanDates()
	s.scanAbbreviations(t.kb)
	if !s.hasDateAnchor() {
		s.scanPhrases(t.phrases)
	}

	sort.SliceStable(s.tokens, func(i, j int) bool { return s.tokens[i].Start < s.tokens[j].Start })
	return s.tokens, nil
}

type scanner struct {
	input   string
	claimed []bool
	tokens  []Token
}

func (s *scanner) free(start, end int) bool {
	if start < 0 || end > len(s.input) || start >= end {
		return false
	}
	for i := start; i < end; i++ {
		if s.claimed[i] {
			return false
		}
	}
	return true
}

// claim records tok if its span is still free.
func (s *scanner) claim(tok Token) bool {
	if !s.free(tok.Start, tok.End) {
		return false
	}
	for i := tok.Start; i < tok.End; i++ {
		s.claimed[i] = true
	}
	tok.Text = s.input[tok.Start:tok.End]
	s.tokens = append(s.tokens, tok)
	return true
}

// each runs fn for every match of re, passing the submatch strings and the
// full submatch index slice.
func (s *scanner) each(re *regexp.Regexp, fn func(groups []string, idx []int)) {
	for _, idx := range re.FindAllStringSubmatchIndex(s.input, -1) {
		groups := make([]string, len(idx)/2)
		for g := range groups {
			if idx[2*g] >= 0 {
				groups[g] = s.input[idx[2*g]:idx[2*g+1]]
			}
		}
		fn(groups, idx)
	}
}

func (s *scanner) hasDateAnchor() bool {
	for _, tok := range s.tokens {
		switch tok.Kind {
		case KindISO, KindUnix, KindDate, KindRelative, KindWeekday:
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func (s *scanner) scanISO() {
	s.each(isoPattern, func(g []string, idx []int) {
		tok := Token{
			Kind: KindISO, Start: idx[0], End: idx[1],
			Year: atoi(g[1]), Month: atoi(g[2]), Day: atoi(g[3]),
			Hour: atoi(g[4]), Minute: atoi(g[5]), Second: atoi(g[6]),
			AmPmKnown: true,
		}
		if tok.Month < 1 || tok.Month > 12 || tok.Day < 1 || tok.Day > 31 || tok.Hour > 23 || tok.Minute > 59 || tok.Second > 59 {
			return
		}
		if off := g[7]; off != "" {
			minutes, ok := parseOffset(off)
			if !ok {
				return
			}
			tok.HasOffset = true
			tok.OffsetMinutes = minutes
		}
		s.claim(tok)
	})
	s.each(isoDatePattern, func(g []string, idx []int) {
		month, day := atoi(g[2]), atoi(g[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return
		}
		s.claim(Token{Kind: KindDate, Start: idx[0], End: idx[1], Year: atoi(g[1]), Month: month, Day: day})
	})
}

// parseOffset parses "Z", "+05:30", "+0530" or "-05".
func parseOffset(raw string) (int, bool) {
	if raw == "z" || raw == "Z" {
		return 0, true
	}
	sign := 1
	switch raw[0] {
	case '-':
		sign = -1
	case '+':
	default:
		return 0, false
	}
	digits := strings.ReplaceAll(raw[1:], ":", "")
	if len(digits) != 2 && len(digits) != 4 {
		return 0, false
	}
	hours := atoi(digits[:2])
	minutes := 0
	if len(digits) == 4 {
		minutes = atoi(digits[2:])
	}
	if hours > 14 || minutes > 59 {
		return 0, false
	}
	return sign * (hours*60 + minutes), true
}

func (s *scanner) scanUnix() {
	s.each(unixPattern, func(g []string, idx []int) {
		raw := g[1]
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return
		}
		digits := len(strings.TrimPrefix(raw, "-"))
		tok := Token{Kind: KindUnix, Start: idx[2], End: idx[3], Unix: n}
		if digits == 13 {
			tok.Millis = true
			tok.Unix = floorDiv(n, 1000)
		}
		s.claim(tok)
	})
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (s *scanner) scanZulu() {
	s.each(zuluPattern, func(g []string, idx []int) {
		s.claim(Token{
			Kind: KindZulu, Start: idx[0], End: idx[1],
			Hour: atoi(g[1]), Minute: atoi(g[2]), AmPmKnown: true,
			HasOffset: true, Zone: "Z", Known: true,
		})
	})
}

func (s *scanner) scanClocks() {
	s.each(colonPattern, func(g []string, idx []int) {
		hourText := g[1]
		tok := Token{Kind: KindClock, Start: idx[0], End: idx[1], Hour: atoi(hourText), Minute: atoi(g[2]), Second: atoi(g[3])}
		if m := strings.ToLower(g[4]); m != "" && tok.Hour >= 1 && tok.Hour <= 12 {
			tok.Meridiem = m + "m"
			tok.AmPmKnown = true
		} else {
			if m != "" {
				// "13:00pm": the marker is redundant, read as 24-hour time.
				tok.End = idx[5]
				if idx[7] >= 0 {
					tok.End = idx[7]
				}
			}
			tok.AmPmKnown = tok.Hour == 0 || tok.Hour >= 13 || (len(hourText) == 2 && hourText[0] == '0')
		}
		s.claim(tok)
	})
	s.each(meridiemPattern, func(g []string, idx []int) {
		s.claim(Token{
			Kind: KindClock, Start: idx[0], End: idx[1],
			Hour: atoi(g[1]), Meridiem: strings.ToLower(g[2]) + "m", AmPmKnown: true,
		})
	})
	s.each(namedPattern, func(g []string, idx []int) {
		tok := Token{Kind: KindClock, Start: idx[0], End: idx[1], Hour: 12, AmPmKnown: true}
		if strings.EqualFold(g[1], "midnight") {
			tok.Hour = 0
		}
		s.claim(tok)
	})
	s.each(bareHourPattern, func(g []string, idx []int) {
		hourText := g[1]
		hour := atoi(hourText)
		s.claim(Token{
			Kind: KindClock, Start: idx[2], End: idx[3], Hour: hour,
			AmPmKnown: hour == 0 || hour >= 13 || (len(hourText) == 2 && hourText[0] == '0'),
		})
	})
}

func (s *scanner) scanOffsets() {
	offset := func(sign, hours, minutes string) (int, bool) {
		h, m := atoi(hours), atoi(minutes)
		if h > 14 || m > 59 {
			return 0, false
		}
		total := h*60 + m
		if sign != "+" {
			total = -total
		}
		return total, true
	}
	s.each(namedOffsetPattern, func(g []string, idx []int) {
		if minutes, ok := offset(g[1], g[2], g[3]); ok {
			s.claim(Token{Kind: KindOffset, Start: idx[0], End: idx[1], HasOffset: true, OffsetMinutes: minutes, Known: true})
		}
	})
	s.each(bareOffsetPattern, func(g []string, idx []int) {
		if minutes, ok := offset(g[1], g[2], g[3]); ok {
			s.claim(Token{Kind: KindOffset, Start: idx[2], End: idx[1], HasOffset: true, OffsetMinutes: minutes, Known: true})
		}
	})
}

func (s *scanner) scanIANA() {
	s.each(ianaPattern, func(g []string, idx []int) {
		if !timezone.IsValidTimezone(g[1]) {
			return
		}
		s.claim(Token{Kind: KindIANA, Start: idx[0], End: idx[1], Zone: g[1], Known: true})
	})
}

func normalizeUnit(unit string) string {
	unit = strings.ToLower(unit)
	switch {
	case strings.HasPrefix(unit, "min"):
		return "minute"
	case strings.HasPrefix(unit, "h"):
		return "hour"
	case strings.HasPrefix(unit, "d"):
		return "day"
	case strings.HasPrefix(unit, "w"):
		return "week"
	case strings.HasPrefix(unit, "mo"):
		return "month"
	default:
		return "year"
	}
}

func (s *scanner) scanRelative() {
	s.each(dayAfterPattern, func(_ []string, idx []int) {
		s.claim(Token{Kind: KindRelative, Start: idx[0], End: idx[1], Relative: RelativeDays, Days: 2})
	})
	s.each(dayBeforePattern, func(_ []string, idx []int) {
		s.claim(Token{Kind: KindRelative, Start: idx[0], End: idx[1], Relative: RelativeDays, Days: -2})
	})
	s.each(casualPattern, func(g []string, idx []int) {
		tok := Token{Kind: KindRelative, Start: idx[0], End: idx[1], Relative: RelativeDays}
		switch strings.ToLower(g[1]) {
		case "tomorrow", "tmrw":
			tok.Days = 1
		case "yesterday":
			tok.Days = -1
		case "tonight":
			tok.DefaultHour = 20
		}
		s.claim(tok)
	})
	s.each(inPattern, func(g []string, idx []int) {
		s.claim(Token{Kind: KindRelative, Start: idx[0], End: idx[1], Relative: RelativeDuration, Amount: atoi(g[1]), Unit: normalizeUnit(g[2])})
	})
	s.each(agoPattern, func(g []string, idx []int) {
		s.claim(Token{Kind: KindRelative, Start: idx[0], End: idx[1], Relative: RelativeDuration, Amount: -atoi(g[1]), Unit: normalizeUnit(g[2])})
	})
	s.each(endOfDayPattern, func(_ []string, idx []int) {
		s.claim(Token{Kind: KindRelative, Start: idx[0], End: idx[1], Relative: RelativeEndOfDay})
	})
}

func (s *scanner) scanWeekdays() {
	for _, re := range []*regexp.Regexp{weekdayPattern, shortWeekdayPattern} {
		s.each(re, func(g []string, idx []int) {
			s.claim(Token{
				Kind: KindWeekday, Start: idx[0], End: idx[1],
				Weekday: weekdays[strings.ToLower(g[2])], Modifier: strings.ToLower(g[1]),
			})
		})
	}
}

func (s *scanner) scanDates() {
	// The year may lead ("1752 September 5") or trail ("September 5, 1752").
	s.each(monthDayPattern, func(g []string, idx []int) {
		if day := atoi(g[3]); day >= 1 && day <= 31 {
			year := atoi(g[4])
			if year == 0 {
				year = atoi(g[1])
			}
			s.claim(Token{Kind: KindDate, Start: idx[0], End: idx[1], Month: months[strings.ToLower(g[2])], Day: day, Year: year})
		}
	})
	s.each(dayMonthPattern, func(g []string, idx []int) {
		if day := atoi(g[1]); day >= 1 && day <= 31 {
			s.claim(Token{Kind: KindDate, Start: idx[0], End: idx[1], Month: months[strings.ToLower(g[2])], Day: day, Year: atoi(g[3])})
		}
	})
	s.each(slashPattern, func(g []string, idx []int) {
		first, second := atoi(g[1]), atoi(g[2])
		tok := Token{Kind: KindDate, Start: idx[0], End: idx[1], Year: atoi(g[3])}
		switch {
		case first >= 1 && first <= 12 && second >= 1 && second <= 31:
			tok.Month, tok.Day = first, second
			tok.SlashAmbiguous = second <= 12 && first != second
		case second >= 1 && second <= 12 && first >= 13 && first <= 31:
			tok.Month, tok.Day = second, first
		default:
			return
		}
		s.claim(tok)
	})
}

func (s *scanner) scanAbbreviations(kb *timezone.KnowledgeBase) {
	s.each(wordPattern, func(g []string, idx []int) {
		word := g[1]
		known := kb.Has(word)
		if word == strings.ToUpper(word) {
			if !known && notZones[word] {
				return
			}
		} else if !known || !s.followsClock(idx[0]) {
			return
		}
		s.claim(Token{Kind: KindAbbreviation, Start: idx[0], End: idx[1], Zone: timezone.NormalizeAbbreviation(word), Known: known})
	})
}

// followsClock reports whether pos is separated from the end of a clock
// token by nothing but spaces, commas or an opening parenthesis.
func (s *scanner) followsClock(pos int) bool {
	for _, tok := range s.tokens {
		if tok.Kind != KindClock || tok.End > pos {
			continue
		}
		if adjacentGap.MatchString(s.input[tok.End:pos]) {
			return true
		}
	}
	return false
}

// scanPhrases asks the general-purpose phrase detector about English date
// phrases the rules above do not cover, such as "in two weeks".
func (s *scanner) scanPhrases(w *when.Parser) {
	r, err := w.Parse(s.input, phraseBase)
	if err != nil || r == nil {
		return
	}
	start, end := r.Index, r.Index+len(r.Text)
	if end > len(s.input) || !strings.EqualFold(s.input[start:end], r.Text) {
		return
	}

	delta := r.Time.Sub(phraseBase)
	text := strings.ToLower(r.Text)
	tok := Token{Kind: KindRelative, Start: start, End: end}
	switch {
	case delta == 0:
		return
	case delta%(24*time.Hour) == 0:
		tok.Relative = RelativeDays
		tok.Days = int(delta / (24 * time.Hour))
	case delta%time.Minute == 0 && (strings.Contains(text, "in ") || strings.Contains(text, "within") || strings.Contains(text, "ago")):
		tok.Relative = RelativeDuration
		tok.Amount = int(delta / time.Minute)
		tok.Unit = "minute"
	default:
		return
	}
	s.claim(tok)
}
