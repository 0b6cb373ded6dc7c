package chat

import (
	"strings"
	"time"

	"chatrelay/internal/constants"
	apperrors "chatrelay/pkg/errors"
)

// Family classifies a bus topic by the kind of traffic it carries.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyDirect
	FamilyNotification
	FamilyCommunity
)

func (f Family) String() string {
	switch f {
	case FamilyDirect:
		return "direct"
	case FamilyNotification:
		return "notification"
	case FamilyCommunity:
		return "community"
	default:
		return "unknown"
	}
}

// DirectChannel derives the canonical channel identifier for a user pair.
// Both orderings of the pair map to the same identifier.
func DirectChannel(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func DirectTopic(channel string) string {
	return constants.TopicPrefixDirect + channel
}

func NotificationTopic(userID string) string {
	return constants.TopicPrefixNotification + userID
}

func CommunityTopic(region string) string {
	return constants.TopicPrefixCommunity + region
}

// Classify maps a bus topic to its family and the channel identifier it
// addresses. Topics outside the three known prefixes are FamilyUnknown.
func Classify(topic string) (Family, string) {
	if c, ok := strings.CutPrefix(topic, constants.TopicPrefixDirect); ok {
		return FamilyDirect, c
	}
	if c, ok := strings.CutPrefix(topic, constants.TopicPrefixNotification); ok {
		return FamilyNotification, c
	}
	if c, ok := strings.CutPrefix(topic, constants.TopicPrefixCommunity); ok {
		return FamilyCommunity, c
	}
	return FamilyUnknown, ""
}

// ParseTimestamp converts a message's logical timestamp into its history
// rank, epoch seconds in the configured location.
func ParseTimestamp(ts string, loc *time.Location) (float64, error) {
	t, err := time.ParseInLocation(constants.TimestampLayout, ts, loc)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrValidation).
			WithDetail("timestamp", ts)
	}
	return float64(t.Unix()), nil
}

// FormatTimestamp is the inverse of ParseTimestamp for whole-second ranks.
func FormatTimestamp(rank float64, loc *time.Location) string {
	return time.Unix(int64(rank), 0).In(loc).Format(constants.TimestampLayout)
}

// Timestamp stamps the current wall clock in the configured location using
// the wire layout.
func Timestamp(loc *time.Location) string {
	return time.Now().In(loc).Format(constants.TimestampLayout)
}
