// Package schedule turns compact OSM-style opening-hours expressions, as
// published by the border crossing listing, into English sentences.
//
// Only the subset observed upstream is understood: two-letter day codes,
// day ranges and lists, the PH (public holiday) flag, HH:MM-HH:MM time
// ranges, the 24/7 shorthand with an optional off modifier, and quoted
// free-text comments. Anything else renders as absent.
package schedule

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	openPrefix         = "Open "
	alwaysOpenText     = "Open every day, 24 hours."
	holidaysClosedText = "Holidays closed."
	alwaysToken        = "24/7"
)

var weekOrder = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

var dayNames = map[string]string{
	"Mo": "Monday",
	"Tu": "Tuesday",
	"We": "Wednesday",
	"Th": "Thursday",
	"Fr": "Friday",
	"Sa": "Saturday",
	"Su": "Sunday",
}

var (
	dayRe       = regexp.MustCompile(`\b(Mo|Tu|We|Th|Fr|Sa|Su)\b`)
	anyCaseDay  = regexp.MustCompile(`(?i)\b(mo|tu|we|th|fr|sa|su)\b`)
	dayRangeRe  = regexp.MustCompile(`\b(Mo|Tu|We|Th|Fr|Sa|Su)\s*-\s*(Mo|Tu|We|Th|Fr|Sa|Su)\b`)
	timeRangeRe = regexp.MustCompile(`(\d{2}):(\d{2})\s*-\s*(\d{2}):(\d{2})`)
	holidayRe   = regexp.MustCompile(`\bPH\b`)
	offRe       = regexp.MustCompile(`(?i)\boff\b`)
	closedRe    = regexp.MustCompile(`(?i)\b(closed|cerrado)\b`)
)

// Render converts expression into a sentence. The boolean is false when
// the expression is empty, not interpretable, or denotes a crossing that
// is closed and carries no free-text comment. Render never panics.
func Render(expression string) (string, bool) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return "", false
	}

	blocks := splitBlocks(expression)
	for _, b := range blocks {
		if b.hasMiscasedDays() {
			return "", false
		}
	}

	if isClosed(blocks) {
		annotations := collectAnnotations(blocks)
		if len(annotations) == 0 {
			return "", false
		}
		return strings.Join(annotations, ". "), true
	}

	if isAlwaysOpen(blocks) {
		return renderAlwaysOpen(blocks), true
	}

	var open, closed []string
	for _, b := range blocks {
		if b.off {
			if clause := b.closedClause(); clause != "" {
				if len(b.annotations) > 0 {
					clause += " " + strings.Join(b.annotations, " ")
				}
				closed = append(closed, clause)
			}
			continue
		}
		if text := b.render(); text != "" {
			open = append(open, text)
		}
	}
	if len(open) == 0 {
		if len(closed) == 0 {
			return "", false
		}
		return strings.Join(closed, " "), true
	}

	parts := []string{ensurePeriod(openPrefix + strings.Join(open, ". "))}
	parts = append(parts, closed...)
	return strings.Join(parts, " "), true
}

// isClosed reports whether the whole expression denotes a closed crossing:
// an explicit closed word anywhere outside comments, 24/7 with off, or a
// bare off without any day selector. An off in a block naming PH only
// closes holidays.
func isClosed(blocks []block) bool {
	for _, b := range blocks {
		if closedRe.MatchString(b.text) {
			return true
		}
		if b.off && !b.holiday && (b.always || len(b.days()) == 0) {
			return true
		}
	}
	return false
}

func isAlwaysOpen(blocks []block) bool {
	for _, b := range blocks {
		if b.always {
			return true
		}
	}
	return false
}

func renderAlwaysOpen(blocks []block) string {
	parts := []string{alwaysOpenText}
	for _, b := range blocks {
		if b.off {
			if clause := b.closedClause(); clause != "" {
				parts = append(parts, clause)
			}
		}
	}
	if annotations := collectAnnotations(blocks); len(annotations) > 0 {
		parts = append(parts, strings.Join(annotations, " "))
	}
	return strings.Join(parts, " ")
}

func collectAnnotations(blocks []block) []string {
	var out []string
	for _, b := range blocks {
		out = append(out, b.annotations...)
	}
	return out
}

// block is one ';'-separated rule with its quoted comments removed.
type block struct {
	text        string
	annotations []string
	holiday     bool
	off         bool
	always      bool
}

func newBlock(text string, annotations []string) block {
	text = strings.TrimSpace(text)
	return block{
		text:        text,
		annotations: annotations,
		holiday:     holidayRe.MatchString(text),
		off:         offRe.MatchString(text),
		always:      strings.Contains(text, alwaysToken),
	}
}

// days returns the distinct day codes of the block in order of appearance.
func (b block) days() []string {
	matches := dayRe.FindAllString(b.text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, code := range matches {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// hasMiscasedDays reports day codes outside the canonical two-letter
// form, such as "mo" or "FR". They are not read as days.
func (b block) hasMiscasedDays() bool {
	return len(anyCaseDay.FindAllString(b.text, -1)) > len(dayRe.FindAllString(b.text, -1))
}

func (b block) dayText() string {
	var text string
	if m := dayRangeRe.FindStringSubmatch(b.text); m != nil {
		text = "from " + dayNames[m[1]] + " to " + dayNames[m[2]]
	} else if codes := b.days(); len(codes) == len(weekOrder) {
		text = "every day"
	} else if len(codes) > 0 {
		names := make([]string, len(codes))
		for i, code := range codes {
			names[i] = dayNames[code]
		}
		text = joinList(names)
	}

	if b.holiday {
		if text == "" {
			return "public holidays"
		}
		text += " and public holidays"
	}
	return text
}

func (b block) timeText() string {
	matches := timeRangeRe.FindAllStringSubmatch(b.text, -1)
	ranges := make([]string, 0, len(matches))
	for _, m := range matches {
		start, ok := clockTime(m[1], m[2])
		if !ok {
			continue
		}
		end, ok := clockTime(m[3], m[4])
		if !ok {
			continue
		}
		ranges = append(ranges, "from "+start+" to "+end)
	}
	return strings.Join(ranges, " and ")
}

func (b block) render() string {
	var parts []string
	if days := b.dayText(); days != "" {
		parts = append(parts, days)
	}
	if times := b.timeText(); times != "" {
		parts = append(parts, times)
	}
	text := strings.Join(parts, " ")

	if len(b.annotations) > 0 {
		comment := strings.Join(b.annotations, " ")
		if text == "" {
			return comment
		}
		text += ". " + comment
	}
	return text
}

// closedClause renders an off rule scoped to specific days, e.g. "PH off"
// or "Sa,Su off". Comments are left to the caller.
func (b block) closedClause() string {
	switch days := b.dayText(); {
	case b.holiday && len(b.days()) == 0:
		return holidaysClosedText
	case days != "":
		return capitalize(days) + " closed."
	default:
		return ""
	}
}

// splitBlocks splits on ';' and extracts double-quoted comments in a single
// pass so that neither separators nor day codes inside comments are seen
// by the rule scanner. An unterminated quote runs to the end of input.
func splitBlocks(expression string) []block {
	var (
		blocks      []block
		text        strings.Builder
		comment     strings.Builder
		annotations []string
		inQuote     bool
	)

	flushComment := func() {
		if c := strings.TrimSpace(comment.String()); c != "" {
			annotations = append(annotations, c)
		}
		comment.Reset()
	}
	flushBlock := func() {
		b := newBlock(text.String(), annotations)
		if b.text != "" || len(b.annotations) > 0 {
			blocks = append(blocks, b)
		}
		text.Reset()
		annotations = nil
	}

	for _, r := range expression {
		switch {
		case r == '"':
			if inQuote {
				flushComment()
			}
			inQuote = !inQuote
			text.WriteRune(' ')
		case inQuote:
			comment.WriteRune(r)
		case r == ';':
			flushBlock()
		default:
			text.WriteRune(r)
		}
	}
	if inQuote {
		flushComment()
	}
	flushBlock()

	return blocks
}

func clockTime(hour, minute string) (string, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil || h > 24 {
		return "", false
	}
	m, err := strconv.Atoi(minute)
	if err != nil || m > 59 || (h == 24 && m != 0) {
		return "", false
	}
	return hour + ":" + minute, true
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func ensurePeriod(s string) string {
	if strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}
