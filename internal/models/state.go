package models

import "strings"

// ConversationState is the persisted step of a user's conversation
type ConversationState string

const (
	StateStart                ConversationState = "start"
	StateAwaitingConfirmation ConversationState = "awaiting_confirmation"
	StateSelectingInterests   ConversationState = "selecting_interests"
	StateBuildingProfile      ConversationState = "building_profile"
	StateGeneratingPlan       ConversationState = "generating_plan"
	StatePlanPresented        ConversationState = "plan_presented"
	StateFollowUp             ConversationState = "follow_up"
)

var allStates = []ConversationState{
	StateStart,
	StateAwaitingConfirmation,
	StateSelectingInterests,
	StateBuildingProfile,
	StateGeneratingPlan,
	StatePlanPresented,
	StateFollowUp,
}

// ParseState maps a stored tag back to a state; unknown tags report false
func ParseState(raw string) (ConversationState, bool) {
	s := ConversationState(strings.ToLower(strings.TrimSpace(raw)))
	for _, st := range allStates {
		if st == s {
			return st, true
		}
	}
	return "", false
}

// Valid reports whether the state belongs to the enumeration
func (s ConversationState) Valid() bool {
	for _, st := range allStates {
		if st == s {
			return true
		}
	}
	return false
}

// ContinuationMarker names a handler that receives the next raw message
// regardless of the conversation state
type ContinuationMarker string

const (
	ContinuationNone          ContinuationMarker = ""
	ContinuationProfileAnswer ContinuationMarker = "profile_answer"
	ContinuationMoreInterest  ContinuationMarker = "more_interest"
)
