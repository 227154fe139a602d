package services

import (
	"fmt"
	"strings"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/utils"
)

const (
	msgGenericError  = "😕 Tuve un problema procesando tu mensaje. Probá de nuevo o escribí *reiniciar* para empezar de cero."
	msgPlanFailure   = "😕 Tuve un problema armando tu plan. Escribí *continuar* para intentarlo de nuevo o *reiniciar* para empezar de cero."
	msgReset         = "🔄 Listo, borré tus intereses y preferencias. Escribí *hola* cuando quieras empezar de nuevo."
	msgCancel        = "👌 Cancelado. Escribí *hola* cuando quieras retomar."
	msgNoInterests   = "Elegí al menos un interés para seguir 👇"
	msgNotUnderstood = "🤔 No entendí tu respuesta."
	msgRecovered     = "😅 Perdí el hilo de nuestra conversación. Escribí *hola* para empezar de nuevo."
	msgHelp          = "ℹ️ *Cómo funciona*\n" +
		"1. Elegí tus intereses.\n" +
		"2. Respondé unas preguntas rápidas sobre tu viaje.\n" +
		"3. Te mando un plan con lugares y códigos de descuento.\n\n" +
		"Comandos: *reiniciar* borra todo y empieza de cero, *cancelar* vuelve al inicio, *ayuda* muestra este mensaje."
)

var (
	affirmativeWords = []string{"si", "dale", "ok", "okay", "comenzar", "empezar", "empecemos", "continuar", "vamos", "listo", "yes", "claro", "de una"}
	doneWords        = []string{"listo", "continuar", "seguir", "siguiente", "ya", "eso es todo", "nada mas", "terminar", "done"}
)

func containsAny(folded string, words []string) bool {
	for _, w := range words {
		if utils.ContainsWord(folded, w) {
			return true
		}
	}
	return false
}

func (c *ConversationService) sendWelcome(t *turn) {
	name := ""
	if n := strings.TrimSpace(t.user.Name); n != "" {
		name = " " + n
	}
	body := fmt.Sprintf("¡Hola%s! 👋 Soy tu guía de viaje en %s. Te ayudo a armar un plan con lugares según tus intereses y tu forma de viajar.",
		name, t.user.City)
	t.choose(BuildChoice(body, "", []models.ChoiceOption{
		{ID: ButtonStartConfirm, Title: "🚀 Comenzar"},
		{ID: ButtonStartHelp, Title: "❓ Cómo funciona"},
	}))
}

func (c *ConversationService) handleStart(t *turn) {
	c.ensureCity(t.user)
	t.session.ClearPending()
	if t.msg.ID == ButtonStartConfirm {
		c.openInterests(t)
		return
	}
	c.sendWelcome(t)
	t.setState(models.StateAwaitingConfirmation)
}

func (c *ConversationService) handleAwaitingConfirmation(t *turn) {
	switch t.msg.ID {
	case ButtonStartConfirm:
		c.openInterests(t)
		return
	case ButtonStartHelp:
		t.say(msgHelp)
		c.sendWelcome(t)
		return
	}

	if t.msg.IsSelection() {
		c.sendWelcome(t)
		return
	}
	if i, ok := models.MatchInterestText(t.msg.Text); ok {
		t.setState(models.StateSelectingInterests)
		c.toggleInterest(t, i)
		return
	}
	if containsAny(utils.Fold(t.msg.Text), affirmativeWords) {
		c.openInterests(t)
		return
	}
	c.sendWelcome(t)
}

func (c *ConversationService) openInterests(t *turn) {
	t.setState(models.StateSelectingInterests)
	t.choose(InterestMenu(t.user, false))
}

func (c *ConversationService) handleSelectingInterests(t *turn, cls Classification) {
	if cls.Class == ClassInterestSelection {
		c.toggleInterest(t, cls.Interest)
		return
	}

	if t.msg.ID == ButtonInterestsDone || (!t.msg.IsSelection() && containsAny(utils.Fold(t.msg.Text), doneWords)) {
		if len(t.user.Interests) == 0 {
			t.say(msgNoInterests)
			t.choose(InterestMenu(t.user, false))
			return
		}
		c.proceedToPlan(t)
		return
	}

	// Ambiguous text just shows the menu again
	t.choose(InterestMenu(t.user, false))
}

func (c *ConversationService) toggleInterest(t *turn, i models.Interest) {
	selected := t.user.ToggleInterest(i)
	t.logger.Info().Str("interest", string(i)).Bool("selected", selected).Msg("Interest toggled")

	menu := InterestMenu(t.user, false)
	if selected {
		menu.Body = fmt.Sprintf("Agregué %s ✅\n\n%s", i.Label(), menu.Body)
	} else {
		menu.Body = fmt.Sprintf("Quité %s ❌\n\n%s", i.Label(), menu.Body)
	}
	t.choose(menu)
}

// proceedToPlan goes to the first step still missing before a plan
func (c *ConversationService) proceedToPlan(t *turn) {
	switch {
	case len(t.user.Interests) == 0:
		c.openInterests(t)
	case !models.IsProfileComplete(t.user.Interests, t.user.Profile):
		t.setState(models.StateBuildingProfile)
		c.askNext(t)
	default:
		c.generatePlan(t)
	}
}

// askNext asks the first missing profile field, or builds the plan once
// nothing is missing
func (c *ConversationService) askNext(t *turn) {
	q, ok := NextQuestion(t.user)
	if !ok {
		c.generatePlan(t)
		return
	}
	t.setState(models.StateBuildingProfile)
	t.session.PendingField = q.Field
	t.session.Continuation = models.ContinuationProfileAnswer
	t.reply(RenderQuestion(q))
}

func (c *ConversationService) handleBuildingProfile(t *turn) {
	active := t.session.PendingField
	if active == "" {
		if missing := models.MissingFields(t.user.Interests, t.user.Profile); len(missing) > 0 {
			active = missing[0]
		}
	}

	field, value, ok := c.profileAnswer(t, active)
	if !ok {
		t.say(msgNotUnderstood)
		c.askNext(t)
		return
	}

	if err := t.user.EnsureProfile().Set(field, value); err != nil {
		t.logger.Warn().Err(err).Str("field", string(field)).Str("value", value).Msg("Rejected profile answer")
		t.say(msgNotUnderstood)
		c.askNext(t)
		return
	}
	t.logger.Info().Str("field", string(field)).Str("value", value).Msg("Profile updated")
	c.askNext(t)
}

// profileAnswer resolves a button tap through the static table, typed text
// through the active question's options, and anything else through the
// interpreter
func (c *ConversationService) profileAnswer(t *turn, active models.ProfileField) (models.ProfileField, string, bool) {
	if t.msg.IsSelection() {
		return AnswerForButton(t.msg.ID)
	}

	if active != "" {
		if v, err := models.ParseFieldValue(active, t.msg.Text); err == nil {
			return active, v, true
		}
	}

	res := c.interpret(t, active)
	if res.Reply != "" && !res.FieldDetected {
		t.say(res.Reply)
	}
	if !res.FieldDetected {
		return "", "", false
	}
	return res.Field, res.Value, true
}

func (c *ConversationService) interpret(t *turn, active models.ProfileField) Interpretation {
	return c.interpreter.Interpret(t.ctx, InterpretRequest{
		FreeText:    t.msg.Text,
		State:       t.user.State,
		Profile:     t.user.Profile.Snapshot(),
		Interests:   t.user.Interests,
		City:        t.user.City,
		ActiveField: active,
	})
}

func (c *ConversationService) handleGeneratingPlan(t *turn) {
	c.proceedToPlan(t)
}

// generatePlan is the flow boundary for PlanGenerationFailure: on error the
// user gets the retry message and stays in GeneratingPlan
func (c *ConversationService) generatePlan(t *turn) {
	t.setState(models.StateGeneratingPlan)
	t.session.ClearPending()

	if err := c.buildAndDeliver(t); err != nil {
		t.logger.Error().Err(err).Msg("Plan generation failed")
		t.say(msgPlanFailure)
	}
}

func (c *ConversationService) buildAndDeliver(t *turn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plan generation panic: %v", r)
		}
	}()

	u := t.user
	if strings.TrimSpace(u.City) == "" {
		return ErrNoCity
	}
	if len(u.Interests) == 0 {
		return ErrNoInterests
	}

	rec, err := c.recommender.Recommend(t.ctx, u.City, u.Interests, u.Profile)
	if err != nil {
		return fmt.Errorf("failed to recommend places: %w", err)
	}
	for _, gap := range rec.Gaps {
		t.say(fmt.Sprintf("😔 Por ahora no tengo lugares de %s en %s.", gap.Label(), u.City))
	}

	tracker := NewDedupTracker(u, t.session)
	fresh := tracker.FilterUnsent(rec.Places)
	if len(fresh) == 0 {
		t.say("Ya te mostré todos los lugares que tengo para tus intereses 🙌 Podés agregar intereses nuevos o ajustar tus preferencias.")
		t.setState(models.StateFollowUp)
		t.choose(FollowUpMenu(u))
		return nil
	}

	places := make([]models.Place, 0, len(fresh))
	for _, rp := range fresh {
		places = append(places, rp.Place)
	}
	t.say(c.interpreter.Summarize(t.ctx, u, places))

	report := c.deliver(t, fresh)
	if report.Delivered == 0 {
		t.say("😕 No pude enviarte los lugares en este momento. Elegí *Nuevo plan* para intentarlo otra vez.")
	}

	t.setState(models.StatePlanPresented)
	t.choose(FollowUpMenu(u))
	return nil
}

func (c *ConversationService) deliver(t *turn, places []RecommendedPlace) *BatchReport {
	report := c.pipeline.DeliverBatch(t.ctx, t.user, NewDedupTracker(t.user, t.session), places)
	for _, d := range report.Deliveries {
		if d.Status.Delivered() {
			t.delivered = append(t.delivered, d.Place.ID)
			t.session.RememberBotText(d.Place.InfoText())
		}
	}
	t.logger.Info().
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("Delivery batch finished")
	return report
}

// Command phrases understood after a plan. The whole message has to be one
// of them; anything longer goes to the interpreter.
var followUpCommands = map[string][]string{
	ButtonFollowUpNewPlan: {"nuevo plan", "otro plan", "new plan", "quiero otro plan", "armame otro plan"},
	ButtonFollowUpAdjust:  {"ajustar", "ajustar preferencias", "cambiar preferencias", "modificar preferencias", "preferencias"},
	ButtonFollowUpAdd:     {"agregar", "agregar intereses", "sumar intereses", "añadir intereses", "mas intereses"},
	ButtonFollowUpMore:    {"mas", "ver mas", "mostrame mas", "quiero mas", "uno mas", "otro", "otra", "otro lugar", "more", "show more"},
}

var followUpPhrases = func() map[string]string {
	out := make(map[string]string)
	for action, phrases := range followUpCommands {
		for _, p := range phrases {
			out[utils.Fold(p)] = action
		}
	}
	return out
}()

func followUpAction(t *turn) string {
	if t.msg.IsSelection() {
		return t.msg.ID
	}
	return followUpPhrases[utils.Fold(t.msg.Text)]
}

func (c *ConversationService) handleFollowUp(t *turn, cls Classification) {
	t.setState(models.StateFollowUp)

	action := followUpAction(t)
	if i, ok := ParseMoreButton(action); ok {
		c.showMore(t, i)
		return
	}

	switch action {
	case ButtonFollowUpMore:
		c.showMore(t, "")
	case ButtonFollowUpNewPlan:
		c.proceedToPlan(t)
	case ButtonFollowUpAdjust:
		c.adjustProfile(t)
	case ButtonFollowUpAdd:
		c.addInterests(t)
	default:
		c.followUpText(t)
	}
}

func (c *ConversationService) adjustProfile(t *turn) {
	t.user.Profile = nil
	t.say("✏️ Perfecto, volvamos a repasar tus preferencias.")
	t.setState(models.StateBuildingProfile)
	c.askNext(t)
}

// addInterests re-opens the interest menu without the interests already held
func (c *ConversationService) addInterests(t *turn) {
	if len(t.user.UnpickedInterests()) == 0 {
		t.say("Ya elegiste todos los intereses disponibles 🙌")
		t.choose(FollowUpMenu(t.user))
		return
	}
	t.setState(models.StateSelectingInterests)
	t.choose(InterestMenu(t.user, true))
}

// followUpText answers free text after a plan through the interpreter
func (c *ConversationService) followUpText(t *turn) {
	if t.msg.IsSelection() {
		t.choose(FollowUpMenu(t.user))
		return
	}

	res := c.interpret(t, "")
	switch {
	case res.FieldDetected:
		if err := t.user.EnsureProfile().Set(res.Field, res.Value); err != nil {
			t.logger.Warn().Err(err).Msg("Interpreter returned an invalid value")
			break
		}
		t.logger.Info().Str("field", string(res.Field)).Str("value", res.Value).Msg("Profile updated from follow-up")
		label := res.Value
		if spec, ok := res.Field.Spec(); ok {
			if o, ok := spec.Option(res.Value); ok {
				label = o.Label
			}
		}
		t.say(fmt.Sprintf("✅ Anoté tu preferencia: *%s*. Elegí *Nuevo plan* para ver lugares con este cambio.", label))
	case res.Intent == IntentNewPlan:
		c.proceedToPlan(t)
		return
	case res.Intent == IntentAdjust:
		c.adjustProfile(t)
		return
	case res.Intent == IntentAddInterests:
		c.addInterests(t)
		return
	case res.Intent == IntentShowMore:
		c.showMore(t, "")
		return
	case res.Reply != "":
		t.say(res.Reply)
	}
	t.choose(FollowUpMenu(t.user))
}

// handleMoreChoice receives the answer to "more of which interest"
func (c *ConversationService) handleMoreChoice(t *turn, cls Classification) {
	if i, ok := ParseMoreButton(t.msg.ID); ok {
		c.showMore(t, i)
		return
	}
	if !t.msg.IsSelection() {
		if i, ok := models.MatchInterestText(t.msg.Text); ok && t.user.HasInterest(i) {
			c.showMore(t, i)
			return
		}
	}

	t.session.ClearPending()
	c.byState(t, cls)
}

// showMore delivers up to MoreBatchSize unsent places of one interest
// without regenerating the plan
func (c *ConversationService) showMore(t *turn, interest models.Interest) {
	t.setState(models.StateFollowUp)

	if interest == "" {
		switch len(t.user.Interests) {
		case 0:
			c.addInterests(t)
			return
		case 1:
			interest = t.user.Interests[0]
		default:
			t.session.Continuation = models.ContinuationMoreInterest
			t.choose(MoreInterestMenu(t.user))
			return
		}
	}
	t.session.ClearPending()

	tracker := NewDedupTracker(t.user, t.session)
	rec, err := c.recommender.RecommendExcluding(t.ctx, t.user.City, []models.Interest{interest}, t.user.Profile, tracker.IsSent)
	if err != nil {
		t.logger.Error().Err(err).Str("interest", string(interest)).Msg("Show more failed")
		t.say(msgGenericError)
		return
	}

	fresh := tracker.FilterUnsent(rec.Places)
	if len(fresh) == 0 {
		t.say(fmt.Sprintf("😔 No me quedan más lugares de %s para mostrarte.", interest.Label()))
		t.choose(FollowUpMenu(t.user))
		return
	}
	if len(fresh) > c.settings.MoreBatchSize {
		fresh = fresh[:c.settings.MoreBatchSize]
	}

	report := c.deliver(t, fresh)
	if report.Delivered == 0 {
		t.say("😕 No pude enviarte el lugar en este momento. Probá de nuevo en un rato.")
	}
	if report.Delivered == 1 {
		for _, d := range report.Deliveries {
			if d.Status.Delivered() {
				t.choose(RatingChoice(d.Place))
			}
		}
	}
	t.choose(FollowUpMenu(t.user))
}
