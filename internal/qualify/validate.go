package qualify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidScannerID rejects non-positive scanner ids before any
	// upstream call is made.
	ErrInvalidScannerID = errors.New("scanner id must be a positive integer")

	// ErrScannerNotFound is returned by state stores when no channel is
	// registered for the scanner id.
	ErrScannerNotFound = errors.New("scanner not found")
)

// ValidateScannerID checks the single piece of caller-supplied input.
func ValidateScannerID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidScannerID, id)
	}
	return nil
}

// YouTube video ids are exactly 11 chars of [A-Za-z0-9_-].
var videoIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ValidVideoID reports whether id looks like a YouTube video id.
func ValidVideoID(id string) bool {
	return videoIDRe.MatchString(id)
}

// FilterVideoIDs splits a work queue into well-formed ids and dropped
// entries. Malformed ids never fail a run; the caller records a warning
// and continues with what remains.
func FilterVideoIDs(ids []string) (valid, dropped []string) {
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if ValidVideoID(id) {
			valid = append(valid, id)
		} else {
			dropped = append(dropped, id)
		}
	}
	return valid, dropped
}

const minServiceDescription = 20

// ProjectWarnings inspects the project context for signs of truncated
// or missing data. It only ever produces warnings: a degraded project
// context lowers judgment quality but never blocks a run.
func ProjectWarnings(p Project) []string {
	var warns []string
	name := strings.TrimSpace(p.ProductName)
	if name == "" {
		warns = append(warns, "project context: product name is empty")
	} else if strings.HasSuffix(name, "-") {
		warns = append(warns, fmt.Sprintf("project context: product name %q looks truncated", name))
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.ServiceDescription)) < minServiceDescription {
		warns = append(warns, "project context: service description is too short for reliable judgment")
	}
	return warns
}
