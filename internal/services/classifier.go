package services

import (
	"regexp"
	"strings"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/utils"
)

// MessageClass is the classifier verdict for one inbound message
type MessageClass int

const (
	ClassUserIntentText MessageClass = iota
	ClassBotEcho
	ClassStaleButtonID
	ClassInterestSelection
)

func (c MessageClass) String() string {
	switch c {
	case ClassBotEcho:
		return "bot_echo"
	case ClassStaleButtonID:
		return "stale_button_id"
	case ClassInterestSelection:
		return "interest_selection"
	default:
		return "user_intent_text"
	}
}

// Classification carries the verdict plus what the router needs to act on it
type Classification struct {
	Class    MessageClass
	Interest models.Interest         // ClassInterestSelection
	Owner    models.ConversationState // ClassStaleButtonID: state owning the action
	Reason   string
}

// Complete texts we send; a message opening with one of them is a paste
// of our own output
var echoTexts = []string{
	msgGenericError,
	msgPlanFailure,
	msgNotUnderstood,
	"Respondé con el número de tu opción.",
}

// codeCaptionPattern matches a whole folded CodeCaption
var codeCaptionPattern = regexp.MustCompile(`^codigo de descuento para .+ mostra este codigo al llegar$`)

var buttonIDPattern = regexp.MustCompile(`^(profile|interest|interes|followup|more|start|interests)_[a-zA-Z0-9_]+$`)

// Classify decides how the router treats msg given the user's state
func Classify(msg models.Inbound, state models.ConversationState, session *models.ConversationSession) Classification {
	if msg.IsSelection() {
		return classifySelection(msg.ID, state, session)
	}

	text := strings.TrimSpace(msg.Text)
	if buttonIDPattern.MatchString(text) {
		return Classification{Class: ClassBotEcho, Reason: "raw button id"}
	}

	folded := utils.Fold(text)
	if folded != "" {
		if codeCaptionPattern.MatchString(folded) {
			return Classification{Class: ClassBotEcho, Reason: "code caption"}
		}
		for _, echo := range echoTexts {
			if strings.HasPrefix(folded, utils.Fold(echo)) {
				return Classification{Class: ClassBotEcho, Reason: "bot message"}
			}
		}
		if session != nil && len(folded) > 12 {
			for _, sent := range session.RecentBotTexts {
				if utils.Fold(sent) == folded {
					return Classification{Class: ClassBotEcho, Reason: "repeats bot message"}
				}
			}
		}
	}

	if state == models.StateSelectingInterests {
		if i, ok := models.MatchInterestText(text); ok {
			return Classification{Class: ClassInterestSelection, Interest: i, Reason: "interest keyword"}
		}
	}
	return Classification{Class: ClassUserIntentText}
}

func classifySelection(id string, state models.ConversationState, session *models.ConversationSession) Classification {
	owner, known := selectionOwner(id)
	if !known {
		return Classification{Class: ClassUserIntentText, Reason: "unknown id"}
	}

	accepted := false
	switch owner {
	case models.StateAwaitingConfirmation:
		accepted = state == models.StateStart || state == models.StateAwaitingConfirmation
	case models.StateFollowUp:
		accepted = state == models.StateFollowUp || state == models.StatePlanPresented
	default:
		accepted = state == owner
	}
	if session != nil {
		switch session.Continuation {
		case models.ContinuationMoreInterest:
			accepted = accepted || strings.HasPrefix(id, moreButtonPrefix)
		case models.ContinuationProfileAnswer:
			accepted = accepted || strings.HasPrefix(id, profileButtonPrefix)
		}
	}

	if !accepted {
		return Classification{Class: ClassStaleButtonID, Owner: owner, Reason: "button from another step"}
	}
	if i, ok := ParseInterestButton(id); ok {
		return Classification{Class: ClassInterestSelection, Interest: i}
	}
	return Classification{Class: ClassUserIntentText}
}

// selectionOwner maps an option id to the state that handles it
func selectionOwner(id string) (models.ConversationState, bool) {
	switch {
	case id == ButtonInterestsDone:
		return models.StateSelectingInterests, true
	case strings.HasPrefix(id, interestButtonPrefix), strings.HasPrefix(id, "interes_"):
		_, ok := ParseInterestButton(id)
		return models.StateSelectingInterests, ok
	case strings.HasPrefix(id, profileButtonPrefix):
		_, _, ok := AnswerForButton(id)
		return models.StateBuildingProfile, ok
	case strings.HasPrefix(id, "followup_"), strings.HasPrefix(id, moreButtonPrefix):
		return models.StateFollowUp, true
	case id == ButtonStartConfirm, id == ButtonStartHelp:
		return models.StateAwaitingConfirmation, true
	}
	return "", false
}
