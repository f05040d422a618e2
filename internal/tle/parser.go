package tle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Checksum returns the check digit for the first 68 columns of an element line.
// Digits count their value, each '-' counts 10, everything else counts 0.
func Checksum(line string) int {
	n := len(line)
	if n > LineLength-1 {
		n = LineLength - 1
	}
	sum := 0
	for i := 0; i < n; i++ {
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum += 10
		}
	}
	return sum % 10
}

// Batch holds the outcome of parsing a block of element text.
type Batch struct {
	Records []Record
	Errors  []error // one *ParseError per skipped pair or orphan line
}

// ParseText scans text for element line pairs, each optionally preceded by a
// name line. Malformed pairs are collected in Batch.Errors and skipped; they
// never stop the scan.
func ParseText(text string) Batch {
	var b Batch
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r\n \t")
	}

	var name string
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			continue
		}

		if isLine1(line) {
			if j := nextNonEmpty(lines, i+1); j >= 0 && isLine2(lines[j]) {
				rec, err := parsePair(name, line, lines[j], i+1)
				if err != nil {
					b.Errors = append(b.Errors, err)
				} else {
					b.Records = append(b.Records, rec)
				}
				name = ""
				i = j
				continue
			}
			b.Errors = append(b.Errors, &ParseError{Line: i + 1, Reason: "line 1 without a following line 2"})
			name = ""
			continue
		}
		if isLine2(line) {
			b.Errors = append(b.Errors, &ParseError{Line: i + 1, Reason: "line 2 without a preceding line 1"})
			name = ""
			continue
		}

		// Anything else is a candidate name for the next pair.
		name = strings.TrimSpace(strings.TrimPrefix(line, "0 "))
	}
	return b
}

func nextNonEmpty(lines []string, from int) int {
	for j := from; j < len(lines); j++ {
		if lines[j] != "" {
			return j
		}
	}
	return -1
}

func isLine1(s string) bool { return strings.HasPrefix(s, "1 ") }
func isLine2(s string) bool { return strings.HasPrefix(s, "2 ") }

// ParseLines validates one element line pair and builds a Record.
// Every failure is returned as a *ParseError.
func ParseLines(name, line1, line2 string) (Record, error) {
	rec, err := parsePair(strings.TrimSpace(name), line1, line2, 0)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func parsePair(name, line1, line2 string, lineNo int) (Record, *ParseError) {
	fail := func(offset int, id int, field, format string, args ...any) *ParseError {
		ln := 0
		if lineNo > 0 {
			ln = lineNo + offset
		}
		return &ParseError{Line: ln, CatalogID: id, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	for k, l := range []string{line1, line2} {
		if len(l) != LineLength {
			return Record{}, fail(k, 0, fmt.Sprintf("line%d", k+1), "length %d, expected %d", len(l), LineLength)
		}
		if l[0] != byte('1'+k) {
			return Record{}, fail(k, 0, fmt.Sprintf("line%d", k+1), "line number %q", l[0])
		}
		want := l[LineLength-1]
		if want < '0' || want > '9' {
			return Record{}, fail(k, 0, fmt.Sprintf("line%d", k+1), "checksum column %q is not a digit", want)
		}
		if got := Checksum(l); got != int(want-'0') {
			return Record{}, fail(k, 0, fmt.Sprintf("line%d", k+1), "checksum %d, line says %c", got, want)
		}
	}

	id, err := parseDigits(line1[2:7])
	if err != nil {
		return Record{}, fail(0, 0, "catalog", "%v", err)
	}
	id2, err := parseDigits(line2[2:7])
	if err != nil {
		return Record{}, fail(1, id, "catalog", "%v", err)
	}
	if id != id2 {
		return Record{}, fail(1, id, "catalog", "line 2 catalog %d does not match line 1", id2)
	}

	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return Record{}, fail(0, id, "epoch", "%v", err)
	}
	if _, err := parseFloatField(line1[33:43]); err != nil {
		return Record{}, fail(0, id, "mean_motion_dot", "%v", err)
	}
	if _, err := parseImpliedDecimal(line1[44:52]); err != nil {
		return Record{}, fail(0, id, "mean_motion_ddot", "%v", err)
	}
	if _, err := parseImpliedDecimal(line1[53:61]); err != nil {
		return Record{}, fail(0, id, "bstar", "%v", err)
	}
	if _, err := parseDigits(line1[64:68]); err != nil {
		return Record{}, fail(0, id, "element_set", "%v", err)
	}

	if _, err := parseElements(line1, line2); err != nil {
		return Record{}, fail(1, id, err.field, "%v", err.err)
	}

	return Record{
		CatalogID: id,
		Name:      name,
		Epoch:     epoch,
		Line1:     line1,
		Line2:     line2,
	}, nil
}

type fieldError struct {
	field string
	err   error
}

func parseElements(line1, line2 string) (Elements, *fieldError) {
	var el Elements
	var err error

	if el.InclinationDeg, err = parseFloatField(line2[8:16]); err != nil {
		return el, &fieldError{"inclination", err}
	}
	if el.InclinationDeg < 0 || el.InclinationDeg > 180 {
		return el, &fieldError{"inclination", fmt.Errorf("%.4f outside [0, 180]", el.InclinationDeg)}
	}
	if el.RAANDeg, err = parseFloatField(line2[17:25]); err != nil {
		return el, &fieldError{"raan", err}
	}
	if el.RAANDeg < 0 || el.RAANDeg >= 360 {
		return el, &fieldError{"raan", fmt.Errorf("%.4f outside [0, 360)", el.RAANDeg)}
	}
	digits := line2[26:33]
	if _, err = parseDigits(digits); err != nil || strings.TrimSpace(digits) != digits {
		return el, &fieldError{"eccentricity", fmt.Errorf("invalid implied-decimal value %q", digits)}
	}
	el.Eccentricity, _ = strconv.ParseFloat("0."+digits, 64)
	if el.ArgPerigeeDeg, err = parseFloatField(line2[34:42]); err != nil {
		return el, &fieldError{"argument_of_perigee", err}
	}
	if el.MeanAnomalyDeg, err = parseFloatField(line2[43:51]); err != nil {
		return el, &fieldError{"mean_anomaly", err}
	}
	if el.MeanMotion, err = parseFloatField(line2[52:63]); err != nil {
		return el, &fieldError{"mean_motion", err}
	}
	if el.MeanMotion <= 0 {
		return el, &fieldError{"mean_motion", fmt.Errorf("%.8f must be positive", el.MeanMotion)}
	}
	if _, err = parseDigits(line2[63:68]); err != nil {
		return el, &fieldError{"revolution_number", err}
	}

	el.MeanMotionDot, _ = parseFloatField(line1[33:43])
	el.BStar, _ = parseImpliedDecimal(line1[53:61])

	el.PeriodMinutes = 1440.0 / el.MeanMotion
	n := el.MeanMotion * 2 * math.Pi / 86400.0 // rad/s
	el.SemiMajorAxisKm = math.Cbrt(muEarth / (n * n))
	el.MeanAltitudeKm = el.SemiMajorAxisKm - earthRadiusKm
	el.PerigeeKm = el.SemiMajorAxisKm*(1-el.Eccentricity) - earthRadiusKm
	el.ApogeeKm = el.SemiMajorAxisKm*(1+el.Eccentricity) - earthRadiusKm
	return el, nil
}

const (
	muEarth       = 398600.4418 // km^3/s^2
	earthRadiusKm = 6378.137
)

// Elements decodes the mean elements of r. A Record not built by ParseLines
// (the zero value, or lines of the wrong width) yields zero Elements.
func (r Record) Elements() Elements {
	if len(r.Line1) != LineLength || len(r.Line2) != LineLength {
		return Elements{}
	}
	el, _ := parseElements(r.Line1, r.Line2)
	return el
}

// Inclination returns line 2 columns 9-16 in degrees.
func (r Record) Inclination() (float64, error) {
	if len(r.Line2) != LineLength {
		return 0, &ParseError{CatalogID: r.CatalogID, Field: "line2", Reason: fmt.Sprintf("length %d, expected %d", len(r.Line2), LineLength)}
	}
	inc, err := parseFloatField(r.Line2[8:16])
	if err != nil {
		return 0, &ParseError{CatalogID: r.CatalogID, Field: "inclination", Reason: err.Error()}
	}
	return inc, nil
}

// Summary returns the listing view of r.
func (r Record) Summary() Summary {
	el := r.Elements()
	return Summary{
		CatalogID:      r.CatalogID,
		Name:           r.Name,
		Epoch:          r.Epoch,
		InclinationDeg: el.InclinationDeg,
		MeanMotion:     el.MeanMotion,
	}
}

func parseDigits(s string) (int, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, fmt.Errorf("empty numeric field")
	}
	for i := 0; i < len(t); i++ {
		if t[i] < '0' || t[i] > '9' {
			return 0, fmt.Errorf("invalid integer %q", s)
		}
	}
	return strconv.Atoi(t)
}

func parseFloatField(s string) (float64, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, fmt.Errorf("empty numeric field")
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// parseImpliedDecimal decodes the 8-column " 12345-3" form: optional sign,
// five mantissa digits with an implied leading decimal point, signed exponent.
func parseImpliedDecimal(s string) (float64, error) {
	if len(s) != 8 {
		return 0, fmt.Errorf("implied-decimal field %q has width %d", s, len(s))
	}
	sign := 1.0
	switch s[0] {
	case ' ', '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("invalid sign in %q", s)
	}
	mantissa := s[1:6]
	for i := 0; i < len(mantissa); i++ {
		if mantissa[i] < '0' || mantissa[i] > '9' {
			return 0, fmt.Errorf("invalid mantissa in %q", s)
		}
	}
	if s[6] != '-' && s[6] != '+' && s[6] != ' ' {
		return 0, fmt.Errorf("invalid exponent sign in %q", s)
	}
	if s[7] < '0' || s[7] > '9' {
		return 0, fmt.Errorf("invalid exponent in %q", s)
	}
	m, _ := strconv.ParseFloat("0."+mantissa, 64)
	exp := float64(s[7] - '0')
	if s[6] == '-' {
		exp = -exp
	}
	return sign * m * math.Pow(10, exp), nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := parseDigits(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}
	if dayOfYear < 1 || dayOfYear >= 367 {
		return time.Time{}, fmt.Errorf("epoch day %v outside [1, 367)", dayOfYear)
	}

	// dayOfYear is 1-based: day 1.0 is Jan 1 00:00 UTC.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
