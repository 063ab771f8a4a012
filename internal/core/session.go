package core

import (
	"fmt"
	"regexp"
	"strings"
)

// CodeInvalidSessionID is reported for session ids that are unsafe to use as
// file names or keys.
const CodeInvalidSessionID = "INVALID_SESSION_ID"

var validSessionID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateSessionID rejects ids that are empty, too long, or could escape a
// directory when used as a file name.
func ValidateSessionID(id string) error {
	if !validSessionID.MatchString(id) || strings.Contains(id, "..") {
		return ErrValidation(CodeInvalidSessionID, fmt.Sprintf("invalid session id %q", id))
	}
	return nil
}
