// Package collect implements the named data-collection actions.
//
// Each action is a Collector that fetches one or more NHL API documents
// through the caching Fetcher, verifies the payload shape, and normalizes it
// into a Dataset. The Invoker wraps a collector call so that no failure --
// including a panic -- ever escapes as anything but an error.
package collect

import (
	"fmt"
	"regexp"
	"strconv"
)

// ActionIgnore is accepted by action resolution but performs no collection.
// It exists to smoke-test argument handling end to end.
const ActionIgnore = "testignore"

// UnexpectedPayloadError reports a document that was retrieved successfully
// but does not have the structure the collector expects.
type UnexpectedPayloadError struct {
	URL    string
	Reason string
}

func (e *UnexpectedPayloadError) Error() string {
	return fmt.Sprintf("unexpected payload from %s: %s", e.URL, e.Reason)
}

var seasonRe = regexp.MustCompile(`^[0-9]{8}$`)

// CheckSeason validates the season format: two directly concatenated YYYY
// values of consecutive years, e.g. "20252026".
func CheckSeason(season string) error {
	if !seasonRe.MatchString(season) {
		return fmt.Errorf("season %q is not two concatenated YYYY values (e.g. 20252026)", season)
	}
	first, _ := strconv.Atoi(season[:4])
	second, _ := strconv.Atoi(season[4:])
	if second != first+1 {
		return fmt.Errorf("season %q years are not consecutive", season)
	}
	return nil
}
