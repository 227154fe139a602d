package models

import "time"

// ConversationSession stores transient conversation data. It expires after
// inactivity; the User record it belongs to does not.
type ConversationSession struct {
	SessionID    string             `json:"session_id"`
	Phone        string             `json:"phone"`
	Continuation ContinuationMarker `json:"continuation"`
	PendingField ProfileField       `json:"pending_field"`

	// Option ids of the last choice sent, for numbered text replies
	LastChoices []string `json:"last_choices"`
	// Places delivered during this conversation, used by "show more"
	SentThisConversation []string `json:"sent_this_conversation"`
	// Recent outbound texts, used to detect echoes of our own messages
	RecentBotTexts []string `json:"recent_bot_texts"`

	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	ExpiresAt  time.Time `json:"expires_at"`
}

const maxRecentBotTexts = 10

// RememberBotText keeps a bounded history of outbound texts
func (s *ConversationSession) RememberBotText(text string) {
	if text == "" {
		return
	}
	s.RecentBotTexts = append(s.RecentBotTexts, text)
	if n := len(s.RecentBotTexts); n > maxRecentBotTexts {
		s.RecentBotTexts = s.RecentBotTexts[n-maxRecentBotTexts:]
	}
}

// ClearPending drops the continuation marker and the pending question
func (s *ConversationSession) ClearPending() {
	s.Continuation = ContinuationNone
	s.PendingField = ""
}
