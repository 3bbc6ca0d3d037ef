package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/star/satkit/internal/propagation"
)

const (
	twoPi   = 2 * math.Pi
	deg2rad = math.Pi / 180.0
	minday  = 1440.0
)

// Parse reads 3-line NORAD TLE format from r and returns parsed entries.
// Malformed entries are skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]TLEEntry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []TLEEntry
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		// Validate line prefixes.
		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			// Try to find next valid triplet.
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			i++
			continue
		}

		entry, err := Decode(line1, line2)
		if err != nil {
			logger.Warn("skipping undecodable TLE entry", "name", name, "error", err)
			i += 3
			continue
		}
		entry.Name = strings.TrimSpace(name)
		entries = append(entries, entry)
		i += 3
	}

	return entries, nil
}

// Decode parses one line pair into an entry with the element record fully
// converted to internal units (radians, radians per minute, derivatives
// pre-divided the way the lines carry them).
func Decode(line1, line2 string) (TLEEntry, error) {
	if len(line1) < 63 || len(line2) < 63 {
		return TLEEntry{}, fmt.Errorf("line too short (%d/%d chars)", len(line1), len(line2))
	}

	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid NORAD ID %q: %w", noradStr, err)
	}

	epochStr := strings.TrimSpace(line1[18:32])
	epoch, jd, err := parseEpoch(epochStr)
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid epoch %q: %w", epochStr, err)
	}

	ndot, err := parseField(line1[33:43])
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid ndot field: %w", err)
	}
	nddot, err := parseImpliedDecimal(line1[44:52])
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid nddot field: %w", err)
	}
	bstar, err := parseImpliedDecimal(line1[53:61])
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid bstar field: %w", err)
	}

	incl, err := parseField(line2[8:16])
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid inclination field: %w", err)
	}
	raan, err := parseField(line2[17:25])
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid RAAN field: %w", err)
	}
	ecc, err := parseField("." + strings.TrimSpace(line2[26:33]))
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid eccentricity field: %w", err)
	}
	argp, err := parseField(line2[34:42])
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid argument of perigee field: %w", err)
	}
	ma, err := parseField(line2[43:51])
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid mean anomaly field: %w", err)
	}
	n, err := parseField(line2[52:63])
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid mean motion field: %w", err)
	}
	if n <= 0 {
		return TLEEntry{}, fmt.Errorf("non-positive mean motion %v", n)
	}

	el := propagation.Elements{
		CatalogNumber: noradID,
		EpochJulian:   jd,
		EpochDS50:     jd - 2433281.5,
		NDot:          ndot * twoPi / (minday * minday),
		NDDot:         nddot * twoPi / (minday * minday * minday),
		Bstar:         bstar,
		Inclination:   incl * deg2rad,
		NodeRA:        raan * deg2rad,
		Eccentricity:  ecc,
		ArgPerigee:    argp * deg2rad,
		MeanAnomaly:   ma * deg2rad,
		MeanMotion:    n * twoPi / minday,
	}

	return TLEEntry{
		NORADID:  noradID,
		Epoch:    epoch,
		Line1:    line1,
		Line2:    line2,
		Elements: el,
	}, nil
}

// parseField parses a fixed-width float column, tolerating padding and a
// leading sign with embedded space (" .00073094").
func parseField(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" || s == "." {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseImpliedDecimal parses the NORAD exponent notation used for nddot and
// bstar: " 66816-4" means 0.66816e-4, "+00000-0" means 0.
func parseImpliedDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1.0
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("implied-decimal field %q too short", s)
	}

	expPart := s[len(s)-2:]
	mantPart := s[:len(s)-2]
	if expPart[0] != '-' && expPart[0] != '+' {
		// No exponent; plain mantissa.
		expPart = "+0"
		mantPart = s
	}

	mant, err := strconv.ParseFloat("."+strings.TrimSpace(mantPart), 64)
	if err != nil {
		return 0, fmt.Errorf("implied-decimal mantissa %q: %w", mantPart, err)
	}
	exp, err := strconv.Atoi(expPart)
	if err != nil {
		return 0, fmt.Errorf("implied-decimal exponent %q: %w", expPart, err)
	}
	return sign * mant * math.Pow(10, float64(exp)), nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to both a
// time.Time and a Julian date. Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, float64, error) {
	if len(s) < 5 {
		return time.Time{}, 0, fmt.Errorf("epoch string too short: %q", s)
	}

	yearStr := s[:2]
	dayStr := s[2:]

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid epoch year %q: %w", yearStr, err)
	}

	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(dayStr, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid epoch day %q: %w", dayStr, err)
	}

	// Julian date of Jan 0.0 of the epoch year, plus the day-of-year.
	jd := julian.CalendarGregorianToJD(year-1, 12, 31.0) + dayOfYear

	// Start of the year, then add fractional days.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	// dayOfYear is 1-based: day 1 = Jan 1.
	dur := time.Duration((dayOfYear - 1) * float64(24*time.Hour))
	t = t.Add(dur)

	return t, jd, nil
}
