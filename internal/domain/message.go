package domain

import "time"

// MessageType distinguishes plain text from file attachments.
const (
	MessageTypeText  = "TEXT"
	MessageTypeImage = "IMAGE"
	MessageTypeFile  = "FILE"
)

// SendTimeLayout formats timestamps so that lexical order equals
// chronological order. All send times are stored in UTC.
const SendTimeLayout = "2006-01-02T15:04:05.000Z"

// FormatSendTime renders a timestamp in the canonical sortable layout.
func FormatSendTime(t time.Time) string {
	return t.UTC().Format(SendTimeLayout)
}

// ChatMessage is one chat turn. ChatID is the negotiation id for contract
// chat and the room id for general chat. Messages are immutable except for
// the IsRead flag, which only the receiver's read path flips.
type ChatMessage struct {
	ID         string `json:"id"`
	ChatID     int64  `json:"chatId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	FileURL    string `json:"fileUrl,omitempty"`
	Type       string `json:"type"`
	IsRead     bool   `json:"isRead"`
	SendTime   string `json:"sendTime"`
}
