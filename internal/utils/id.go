package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateSubmissionID returns an id of the form WIG-<YYYYMMDD>-<5 uppercase
// alphanumeric chars>, e.g. WIG-20260831-A3F0B.
func GenerateSubmissionID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:5])
	return fmt.Sprintf("WIG-%s-%s", now.Format("20060102"), suffix)
}
