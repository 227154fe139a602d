package models

import "time"

// User is one traveler, keyed by channel address. Lives for the process lifetime.
type User struct {
	Phone     string            `json:"phone"`
	Name      string            `json:"name"`
	City      string            `json:"city"`
	Interests []Interest        `json:"interests"`
	Profile   *Profile          `json:"profile,omitempty"`
	State     ConversationState `json:"state"`

	// Delivery records, append-only
	SentByInterest map[Interest][]string `json:"sent_by_interest"`
	Deliveries     []DeliveryRecord      `json:"deliveries"`

	Ratings         map[string]int `json:"ratings,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	LastInteraction time.Time      `json:"last_interaction"`
}

// DeliveryRecord is one place already delivered to the user
type DeliveryRecord struct {
	PlaceID  string    `json:"place_id"`
	Category string    `json:"category"`
	Interest Interest  `json:"interest"`
	SentAt   time.Time `json:"sent_at"`
}

// NewUser creates a user in the Start state
func NewUser(phone string, now time.Time) *User {
	return &User{
		Phone:           phone,
		State:           StateStart,
		SentByInterest:  make(map[Interest][]string),
		Ratings:         make(map[string]int),
		CreatedAt:       now,
		LastInteraction: now,
	}
}

func (u *User) HasInterest(i Interest) bool {
	for _, held := range u.Interests {
		if held == i {
			return true
		}
	}
	return false
}

// ToggleInterest adds i when absent and removes it when present.
// Returns true when the interest ends up selected.
func (u *User) ToggleInterest(i Interest) bool {
	for idx, held := range u.Interests {
		if held == i {
			u.Interests = append(u.Interests[:idx:idx], u.Interests[idx+1:]...)
			return false
		}
	}
	u.Interests = append(u.Interests, i)
	return true
}

// EnsureProfile creates the profile lazily
func (u *User) EnsureProfile() *Profile {
	if u.Profile == nil {
		u.Profile = &Profile{}
	}
	return u.Profile
}

// ResetConversation clears interests, profile and state. Delivery records stay.
func (u *User) ResetConversation() {
	u.Interests = nil
	u.Profile = nil
	u.State = StateStart
}

// UnpickedInterests lists menu interests the user has not selected yet
func (u *User) UnpickedInterests() []Interest {
	var out []Interest
	for _, i := range AllInterests {
		if !u.HasInterest(i) {
			out = append(out, i)
		}
	}
	return out
}
