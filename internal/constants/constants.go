package constants

import "time"

// Bus topic prefixes. One call site in the legacy system doubled the colon
// on the community prefix; the single-colon form is canonical here and is
// applied on both the publish and subscribe side.
const (
	TopicPrefixDirect       = "chat:event:"
	TopicPrefixNotification = "noti:event:"
	TopicPrefixCommunity    = "community:events:"
)

const (
	HistoryKeyPrefix = "chat:history:"
	UnreadKeyPrefix  = "chat:unread:"
)

const (
	// HistoryCapacity is the maximum number of live entries per channel.
	HistoryCapacity = 100
	// HistoryExpiry reclaims a channel once every entry is concealed from
	// both participants.
	HistoryExpiry = 7 * 24 * time.Hour
)

const (
	TimestampLayout  = "2006-01-02 15:04:05"
	DefaultTimezone  = "Asia/Seoul"
	HistoryOpTimeout = 3 * time.Second
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	NotificationEvent          = "notification"
	DefaultNotificationQueue   = 256
	DefaultNotificationWorkers = 2
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DLQReasonUnmarshal  = "unmarshal_failure"
	DLQReasonUnknown    = "unknown_topic"
	DLQReasonProcessing = "processing_failure"
)
