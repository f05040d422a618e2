package tle

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Check digits follow this package's rule (a '-' counts 10).
const (
	sunSyncName  = "SUNSYNC-1"
	sunSyncLine1 = "1 39634U 14016A   24100.50000000  .00000050  00000-0  20000-4 0  9998"
	sunSyncLine2 = "2 39634  98.1820 110.0000 0001300  85.0000 275.0000 14.30000000 52913"

	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9007"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01"

	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9996"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    07"
)

func corruptChecksum(line string) string {
	last := line[len(line)-1]
	return line[:len(line)-1] + string(rune('0'+(last-'0'+1)%10))
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{"sun-sync line1", sunSyncLine1, 8},
		{"sun-sync line2", sunSyncLine2, 3},
		{"iss line1", issLine1, 7},
		{"minus counts ten", "1 -" + strings.Repeat(" ", 66), 1},
		{"letters and dots ignored", "ABC.+" + strings.Repeat(" ", 64), 0},
		{"only first 68 columns", strings.Repeat(" ", 68) + "9", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.line))
		})
	}
}

func TestParseLines(t *testing.T) {
	rec, err := ParseLines("  "+sunSyncName+" ", sunSyncLine1, sunSyncLine2)
	require.NoError(t, err)

	assert.Equal(t, 39634, rec.CatalogID)
	assert.Equal(t, sunSyncName, rec.Name)
	assert.Equal(t, sunSyncLine1, rec.Line1)
	assert.Equal(t, sunSyncLine2, rec.Line2)
	assert.Equal(t, time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC), rec.Epoch)

	inc, err := rec.Inclination()
	require.NoError(t, err)
	assert.InDelta(t, 98.182, inc, 1e-9)
}

func TestParseLinesRejects(t *testing.T) {
	replace := func(line string, col int, s string) string {
		l := line[:col] + s + line[col+len(s):]
		return l[:LineLength-1] + string(rune('0'+Checksum(l)))
	}

	tests := []struct {
		name  string
		line1 string
		line2 string
		field string
	}{
		{"bad checksum line1", corruptChecksum(sunSyncLine1), sunSyncLine2, "line1"},
		{"bad checksum line2", sunSyncLine1, corruptChecksum(sunSyncLine2), "line2"},
		{"short line", sunSyncLine1[:68], sunSyncLine2, "line1"},
		{"swapped lines", sunSyncLine2, sunSyncLine1, "line1"},
		{"catalog mismatch", sunSyncLine1, replace(sunSyncLine2, 2, "39635"), "catalog"},
		{"non-numeric catalog", replace(sunSyncLine1, 2, "3963X"), sunSyncLine2, "catalog"},
		{"bad epoch", replace(sunSyncLine1, 18, "24400.5"), sunSyncLine2, "epoch"},
		{"bad bstar", replace(sunSyncLine1, 53, " 2000X-4"), sunSyncLine2, "bstar"},
		{"inclination out of range", sunSyncLine1, replace(sunSyncLine2, 8, " 198.182"), "inclination"},
		{"non-numeric inclination", sunSyncLine1, replace(sunSyncLine2, 8, " 98.1a20"), "inclination"},
		{"eccentricity with blanks", sunSyncLine1, replace(sunSyncLine2, 26, " 001300"), "eccentricity"},
		{"zero mean motion", sunSyncLine1, replace(sunSyncLine2, 52, " 0.00000000"), "mean_motion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLines("X", tt.line1, tt.line2)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestParseTextNameLines(t *testing.T) {
	text := strings.Join([]string{
		"0 " + sunSyncName,
		sunSyncLine1,
		sunSyncLine2,
		"",
		issLine1, // no name line
		issLine2,
		"STARLINK-1007\r",
		starlinkLine1 + "\r",
		starlinkLine2 + "\r",
	}, "\n")

	b := ParseText(text)
	require.Empty(t, b.Errors)
	require.Len(t, b.Records, 3)

	assert.Equal(t, sunSyncName, b.Records[0].Name)
	assert.Equal(t, "", b.Records[1].Name)
	assert.Equal(t, "STARLINK-1007", b.Records[2].Name)
	assert.Equal(t, starlinkLine2, b.Records[2].Line2)
}

func TestParseTextSkipsMalformed(t *testing.T) {
	text := strings.Join([]string{
		issName,
		issLine1,
		corruptChecksum(issLine2),
		"orphan",
		sunSyncLine2, // line 2 without line 1
		sunSyncName,
		sunSyncLine1,
		sunSyncLine2,
		starlinkLine1, // line 1 followed by another line 1
		starlinkLine1,
		starlinkLine2,
	}, "\n")

	b := ParseText(text)
	require.Len(t, b.Records, 2)
	assert.Equal(t, 39634, b.Records[0].CatalogID)
	assert.Equal(t, sunSyncName, b.Records[0].Name)
	assert.Equal(t, 44713, b.Records[1].CatalogID)

	require.Len(t, b.Errors, 3)
	var pe *ParseError
	require.True(t, errors.As(b.Errors[0], &pe))
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, "line2", pe.Field)
}

func TestParseTextEmpty(t *testing.T) {
	for _, text := range []string{"", "\n\n", "   \r\n", "just some words\nmore words"} {
		b := ParseText(text)
		assert.Empty(t, b.Records)
		assert.Empty(t, b.Errors)
	}
}

func TestElements(t *testing.T) {
	rec, err := ParseLines(sunSyncName, sunSyncLine1, sunSyncLine2)
	require.NoError(t, err)

	el := rec.Elements()
	assert.InDelta(t, 98.182, el.InclinationDeg, 1e-9)
	assert.InDelta(t, 110.0, el.RAANDeg, 1e-9)
	assert.InDelta(t, 0.00013, el.Eccentricity, 1e-12)
	assert.InDelta(t, 85.0, el.ArgPerigeeDeg, 1e-9)
	assert.InDelta(t, 275.0, el.MeanAnomalyDeg, 1e-9)
	assert.InDelta(t, 14.3, el.MeanMotion, 1e-9)
	assert.InDelta(t, 0.5e-6, el.MeanMotionDot, 1e-15)
	assert.InDelta(t, 0.2e-4, el.BStar, 1e-15)
	assert.InDelta(t, 1440.0/14.3, el.PeriodMinutes, 1e-9)

	// n = 14.3 rev/day puts the mean altitude near 794 km.
	assert.InDelta(t, 794, el.MeanAltitudeKm, 5)
	assert.Less(t, el.PerigeeKm, el.ApogeeKm)
}

func TestParseImpliedDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{" 10270-3", 0.10270e-3},
		{"-11606-4", -0.11606e-4},
		{" 00000+0", 0},
		{"+12345 1", 0.12345e1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseImpliedDecimal(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-15)
		})
	}

	for _, bad := range []string{"", "1234567", "x10270-3", " 1027a-3", " 10270*3", " 10270-x"} {
		_, err := parseImpliedDecimal(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"24100.50000000", time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)},
		{"57001.00000000", time.Date(1957, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"56366.00000000", time.Date(2056, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseEpoch(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}

	for _, bad := range []string{"241", "ab100.5", "24000.5", "24400.0", "24abc"} {
		_, err := parseEpoch(bad)
		assert.Error(t, err, bad)
	}
}

func TestElementsOfUnparsedRecord(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, Elements{}, Record{}.Elements())
		assert.Equal(t, Summary{CatalogID: 7, Name: "X"}, Record{CatalogID: 7, Name: "X"}.Summary())
	})

	short := Record{Line1: "1 25544U", Line2: "2 25544  51.6400"}
	assert.NotPanics(t, func() {
		assert.Equal(t, Elements{}, short.Elements())
	})
}
