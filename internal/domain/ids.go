package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewQuizID returns a client-generated session id such as quiz_1718000000000_3f9c2a1b0.
func NewQuizID(now time.Time) string {
	return fmt.Sprintf("quiz_%d_%s", now.UnixMilli(), shortRandom())
}

// NewDeviceID returns a fresh per-device correlation key.
func NewDeviceID() string {
	return "device_" + uuid.NewString()
}

func shortRandom() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// JoinURL builds the link encoded in the join code: <base>/join/<quizId>.
func JoinURL(baseURL, quizID string) string {
	return strings.TrimRight(baseURL, "/") + "/join/" + url.PathEscape(quizID)
}
