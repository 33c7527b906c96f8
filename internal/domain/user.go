package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultUTCOffset is used for users who never set a timezone (Moscow).
const DefaultUTCOffset = 3

const (
	MinUTCOffset = -12
	MaxUTCOffset = 14
)

// UserProfile is created lazily on the first message from a Telegram user.
type UserProfile struct {
	UserID     int64 // Telegram user ID
	Name       string
	Addressing string // "ты" / "вы"
	Tone       string // "дружелюбный", "деловой", ...
	UTCOffset  int    // whole hours east of UTC
	CreatedAt  time.Time
}

// Location returns the fixed zone of the profile offset.
func (p *UserProfile) Location() *time.Location {
	if p == nil {
		return Zone(DefaultUTCOffset)
	}
	return Zone(p.UTCOffset)
}

// Zone builds a fixed zone for a whole-hour UTC offset.
func Zone(offset int) *time.Location {
	return time.FixedZone(FormatOffset(offset), offset*3600)
}

// FormatOffset renders an offset the way it is stored and shown: "+3", "-5", "+0".
func FormatOffset(offset int) string {
	return fmt.Sprintf("%+d", offset)
}

// ParseOffset parses "+3", "-5", "3", "UTC+3" or "GMT-2".
func ParseOffset(s string) (int, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	s = strings.TrimPrefix(s, "UTC")
	s = strings.TrimPrefix(s, "GMT")
	if s == "" {
		return 0, fmt.Errorf("empty offset")
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("parse offset %q: %w", s, err)
	}
	if n < MinUTCOffset || n > MaxUTCOffset {
		return 0, fmt.Errorf("offset %d out of range [%d, %d]", n, MinUTCOffset, MaxUTCOffset)
	}
	return n, nil
}
