package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var headerPattern = regexp.MustCompile(`^---\s*scanner\s+(\d+)\s*---$`)

// ParseReportFile reads and parses a scanner report file
func ParseReportFile(path string) (map[int][]Vector3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReport(f)
}

// ParseReportString parses a scanner report held in memory
func ParseReportString(s string) (map[int][]Vector3, error) {
	return ParseReport(strings.NewReader(s))
}

// ParseReport parses blocks of the form
//
//	--- scanner 0 ---
//	404,-588,-901
//	528,-643,409
//
// separated by blank lines. Beacon order within a block is preserved.
func ParseReport(r io.Reader) (map[int][]Vector3, error) {
	reports := make(map[int][]Vector3)
	current := -1
	lineNo := 0

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())

		if line == "" {
			current = -1
			continue
		}

		if m := headerPattern.FindStringSubmatch(line); m != nil {
			id, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: scanner id %q: %w", lineNo, m[1], ErrInvalidReport)
			}
			if _, dup := reports[id]; dup {
				return nil, fmt.Errorf("line %d: duplicate scanner %d: %w", lineNo, id, ErrInvalidReport)
			}
			reports[id] = []Vector3{}
			current = id
			continue
		}

		if current < 0 {
			return nil, fmt.Errorf("line %d: beacon %q outside a scanner block: %w", lineNo, line, ErrInvalidReport)
		}

		beacon, err := parseBeacon(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		reports[current] = append(reports[current], beacon)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	if len(reports) == 0 {
		return nil, ErrEmptyInput
	}
	return reports, nil
}

func parseBeacon(line string) (Vector3, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Vector3{}, fmt.Errorf("beacon %q: want 3 coordinates: %w", line, ErrInvalidReport)
	}

	var coords [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Vector3{}, fmt.Errorf("beacon %q: %w", line, ErrInvalidReport)
		}
		coords[i] = v
	}
	return Vector3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
