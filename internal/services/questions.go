package services

import (
	"fmt"
	"strings"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/utils"
)

// Option ids sent on buttons and list rows
const (
	profileButtonPrefix  = "profile_"
	interestButtonPrefix = "interest_"
	moreButtonPrefix     = "more_"

	ButtonStartConfirm    = "start_confirm"
	ButtonStartHelp       = "start_help"
	ButtonInterestsDone   = "interests_done"
	ButtonFollowUpAdjust  = "followup_adjust"
	ButtonFollowUpNewPlan = "followup_new_plan"
	ButtonFollowUpAdd     = "followup_add_interests"
	ButtonFollowUpMore    = "followup_more"
)

// Question is the next profile field to ask for
type Question struct {
	Field    models.ProfileField
	Prompt   string
	Options  []models.FieldOption
	Position int // 1-based position among the required fields
	Total    int
}

type profileAnswer struct {
	field models.ProfileField
	value string
}

// Static button table, built once from the field registry
var profileButtons = buildProfileButtons()

func buildProfileButtons() map[string]profileAnswer {
	fields := []models.ProfileField{
		models.FieldTripType, models.FieldCompanionship, models.FieldFoodPref,
		models.FieldBudget, models.FieldGiftInterest, models.FieldClothingInterest,
		models.FieldShopTypePref, models.FieldCultureTypePref, models.FieldChildTravel,
		models.FieldDuration,
	}
	table := make(map[string]profileAnswer)
	for _, f := range fields {
		spec, _ := f.Spec()
		for _, o := range spec.Options {
			table[ProfileButtonID(f, o.Value)] = profileAnswer{field: f, value: o.Value}
		}
	}
	return table
}

// ProfileButtonID is the option id for answering field with value
func ProfileButtonID(field models.ProfileField, value string) string {
	return profileButtonPrefix + string(field) + "_" + value
}

// AnswerForButton maps a profile button id back to its field and value
func AnswerForButton(id string) (models.ProfileField, string, bool) {
	a, ok := profileButtons[strings.TrimSpace(id)]
	return a.field, a.value, ok
}

func InterestButtonID(i models.Interest) string {
	return interestButtonPrefix + string(i)
}

// ParseInterestButton accepts "interest_<id>" and the legacy "interes_<id>"
func ParseInterestButton(id string) (models.Interest, bool) {
	id = strings.TrimSpace(id)
	for _, prefix := range []string{interestButtonPrefix, "interes_"} {
		if strings.HasPrefix(id, prefix) {
			return models.ParseInterest(strings.TrimPrefix(id, prefix))
		}
	}
	return "", false
}

func MoreButtonID(i models.Interest) string {
	return moreButtonPrefix + string(i)
}

func ParseMoreButton(id string) (models.Interest, bool) {
	if !strings.HasPrefix(id, moreButtonPrefix) {
		return "", false
	}
	return models.ParseInterest(strings.TrimPrefix(id, moreButtonPrefix))
}

// NextQuestion returns the first missing required field of the user's profile
func NextQuestion(u *models.User) (Question, bool) {
	required := models.RequiredFields(u.Interests, u.Profile)
	missing := models.MissingFields(u.Interests, u.Profile)
	if len(missing) == 0 {
		return Question{}, false
	}
	q, ok := QuestionFor(missing[0])
	if !ok {
		return Question{}, false
	}
	q.Total = len(required)
	q.Position = len(required) - len(missing) + 1
	return q, true
}

// QuestionFor builds the question of one field
func QuestionFor(field models.ProfileField) (Question, bool) {
	spec, ok := field.Spec()
	if !ok {
		return Question{}, false
	}
	return Question{Field: field, Prompt: spec.Prompt, Options: spec.Options, Position: 1, Total: 1}, true
}

// RenderQuestion renders up to three options as buttons, more as a list
func RenderQuestion(q Question) models.Outbound {
	body := q.Prompt
	if q.Total > 1 {
		body = fmt.Sprintf("%s\n\n_Pregunta %d de %d_", q.Prompt, q.Position, q.Total)
	}

	options := make([]models.ChoiceOption, 0, len(q.Options))
	for _, o := range q.Options {
		options = append(options, models.ChoiceOption{
			ID:          ProfileButtonID(q.Field, o.Value),
			Title:       o.Label,
			Description: o.Description,
		})
	}
	return models.ChoiceMessage(BuildChoice(body, "Ver opciones", options))
}

// BuildChoice applies the platform limits: three buttons at most, otherwise a
// list capped at MaxListRows with truncated titles and descriptions
func BuildChoice(body, listButton string, options []models.ChoiceOption) models.Choice {
	if len(options) <= MaxButtons {
		buttons := make([]models.ChoiceOption, 0, len(options))
		for _, o := range options {
			buttons = append(buttons, models.ChoiceOption{
				ID:    o.ID,
				Title: utils.Truncate(o.Title, MaxButtonTitle),
			})
		}
		return models.Choice{Body: body, Options: buttons}
	}
	return buildList(body, listButton, options)
}

func buildList(body, listButton string, options []models.ChoiceOption) models.Choice {
	if len(options) > MaxListRows {
		options = options[:MaxListRows]
	}
	rows := make([]models.ChoiceOption, 0, len(options))
	for _, o := range options {
		rows = append(rows, models.ChoiceOption{
			ID:          o.ID,
			Title:       utils.Truncate(o.Title, MaxRowTitle),
			Description: utils.Truncate(o.Description, MaxRowDesc),
		})
	}
	return models.Choice{Body: body, ButtonLabel: listButton, Options: rows, AsList: true}
}

// InterestMenu lists interests with a mark on the selected ones. With
// onlyUnpicked the selected interests are left out. The continue row appears
// once at least one interest is held.
func InterestMenu(u *models.User, onlyUnpicked bool) models.Choice {
	var options []models.ChoiceOption
	for _, i := range models.AllInterests {
		selected := u.HasInterest(i)
		if selected && onlyUnpicked {
			continue
		}
		title := i.Label()
		if selected {
			title = "✅ " + title
		}
		options = append(options, models.ChoiceOption{
			ID:          InterestButtonID(i),
			Title:       title,
			Description: i.Description(),
		})
	}
	if len(u.Interests) > 0 {
		options = append(options, models.ChoiceOption{
			ID:          ButtonInterestsDone,
			Title:       "➡️ Continuar",
			Description: "Ya elegí mis intereses",
		})
	}

	body := "🎯 ¿Qué te gustaría conocer? Podés elegir varias opciones, de a una por vez."
	if len(u.Interests) > 0 {
		labels := make([]string, 0, len(u.Interests))
		for _, i := range u.Interests {
			labels = append(labels, i.Label())
		}
		body += "\n\nElegidos: " + strings.Join(labels, ", ")
	}

	return buildList(body, "Ver intereses", options)
}

// FollowUpMenu is offered after a plan is presented
func FollowUpMenu(u *models.User) models.Choice {
	options := []models.ChoiceOption{
		{ID: ButtonFollowUpMore, Title: "➕ Ver más lugares", Description: "Otra recomendación de tus intereses"},
		{ID: ButtonFollowUpNewPlan, Title: "🔄 Nuevo plan", Description: "Armar un plan con lugares nuevos"},
		{ID: ButtonFollowUpAdjust, Title: "✏️ Ajustar preferencias", Description: "Volver a responder el perfil"},
	}
	if len(u.UnpickedInterests()) > 0 {
		options = append(options, models.ChoiceOption{
			ID: ButtonFollowUpAdd, Title: "🎯 Agregar intereses", Description: "Sumar categorías nuevas",
		})
	}
	return BuildChoice("¿Qué querés hacer ahora?", "Ver opciones", options)
}

// MoreInterestMenu asks which interest "show more" is about
func MoreInterestMenu(u *models.User) models.Choice {
	options := make([]models.ChoiceOption, 0, len(u.Interests))
	for _, i := range u.Interests {
		options = append(options, models.ChoiceOption{ID: MoreButtonID(i), Title: i.Label(), Description: i.Description()})
	}
	return BuildChoice("¿De qué categoría querés ver más?", "Ver categorías", options)
}
