// Package parser turns recognized match-info text into a match record.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/matches"
)

var (
	noise    = regexp.MustCompile(`[^A-Za-z0-9\s]`)
	header   = regexp.MustCompile(`^([A-Za-z]+)\s+(\d+)$`)
	teamLine = regexp.MustCompile(`^\d+$`)
)

// teamCount is how many team lines a complete roster needs.
const teamCount = 2 * matches.TeamsPerAlliance

// Parse reads "<type> <number>" from the first non-empty line and team
// numbers from the digit-only lines after it. The first three teams are red,
// the next three blue and any extra are ignored. Only Type, Number, Red and
// Blue are set on the result.
func Parse(text string) (matches.Record, error) {
	lines := Lines(text)
	if len(lines) == 0 {
		return matches.Record{}, apperrors.New(apperrors.ErrorCodeParseFailed, "no text")
	}

	m := header.FindStringSubmatch(lines[0])
	if m == nil {
		return matches.Record{}, apperrors.Newf(apperrors.ErrorCodeParseFailed, "first line %q is not <type> <number>", lines[0])
	}
	number, err := strconv.Atoi(m[2])
	if err != nil {
		return matches.Record{}, apperrors.Wrapf(err, apperrors.ErrorCodeParseFailed, "match number %q", m[2])
	}

	teams := make([]int, 0, teamCount)
	for _, line := range lines[1:] {
		if !teamLine.MatchString(line) {
			continue
		}
		id, err := strconv.Atoi(line)
		if err != nil {
			return matches.Record{}, apperrors.Wrapf(err, apperrors.ErrorCodeParseFailed, "team %q", line)
		}
		if teams = append(teams, id); len(teams) == teamCount {
			break
		}
	}
	if len(teams) < teamCount {
		return matches.Record{}, apperrors.Newf(apperrors.ErrorCodeParseFailed, "found %d team lines, need %d", len(teams), teamCount).
			WithMetadata("type", m[1])
	}

	r := matches.Record{Type: m[1], Number: number}
	copy(r.Red[:], teams[:matches.TeamsPerAlliance])
	copy(r.Blue[:], teams[matches.TeamsPerAlliance:])
	return r, nil
}

// Lines splits text into trimmed lines with punctuation removed, dropping
// lines left empty.
func Lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(noise.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
