package models

// ChatMessage is a direct message between two users. Timestamp is the
// client-declared logical timestamp in "YYYY-MM-DD HH:mm:ss" form; the
// history store derives its rank from it, not from arrival order.
type ChatMessage struct {
	Sender            string `json:"sender"`
	SenderNickname    string `json:"senderNickname"`
	Receiver          string `json:"receiver"`
	ReceiverNickname  string `json:"receiverNickname"`
	Content           string `json:"content"`
	Timestamp         string `json:"timestamp"`
	DeletedBySender   bool   `json:"deletedBySender"`
	DeletedByReceiver bool   `json:"deletedByReceiver"`
}

// ConcealedFrom reports whether the message is hidden from viewer for the
// role the viewer plays in it.
func (m ChatMessage) ConcealedFrom(viewer string) bool {
	if viewer == m.Sender && m.DeletedBySender {
		return true
	}
	if viewer == m.Receiver && m.DeletedByReceiver {
		return true
	}
	return false
}

// FullyConcealed reports whether both participants deleted the message.
func (m ChatMessage) FullyConcealed() bool {
	return m.DeletedBySender && m.DeletedByReceiver
}

// CommunityMessage is a regional broadcast message. It is live-only: never
// persisted, no per-recipient unread accounting. OpenSessionCount is derived
// by the relay per message and never stored.
type CommunityMessage struct {
	Sender           string `json:"sender"`
	SenderNickname   string `json:"senderNickname"`
	Region           string `json:"region"`
	Content          string `json:"content"`
	Timestamp        string `json:"timestamp"`
	OpenSessionCount int    `json:"openSessionCount"`
}

// NotificationPayload is the structured body of a NOTI envelope.
type NotificationPayload struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}
