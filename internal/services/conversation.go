package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/metrics"
	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/storage"
	"github.com/Ananth-NQI/tripguide-backend/internal/utils"
)

var (
	ErrEmptySender = errors.New("message has no sender")
	ErrNoCity      = errors.New("user has no city")
	ErrNoInterests = errors.New("user has no interests")
)

// MaxMoreBatchSize caps one "show more" sub-batch
const MaxMoreBatchSize = 10

// MessageHandler processes one inbound message end to end
type MessageHandler interface {
	Handle(ctx context.Context, msg models.Inbound) (*Result, error)
}

// Result is what one inbound message produced
type Result struct {
	Phone     string                   `json:"phone"`
	State     models.ConversationState `json:"state"`
	Replies   []models.Outbound        `json:"replies"`
	Delivered []string                 `json:"delivered,omitempty"`
}

// Settings tune the conversation
type Settings struct {
	DefaultCity   string
	MoreBatchSize int
}

// ConversationService is the per-user state machine. Every inbound message
// runs under the user's store lock, so one identity is handled by one
// goroutine at a time.
type ConversationService struct {
	store       storage.UserStore
	catalog     storage.PlaceCatalog
	sessions    *SessionManager
	messenger   Messenger
	interpreter Interpreter
	recommender *RecommendationFilter
	pipeline    *DeliveryPipeline
	metrics     *metrics.Metrics
	settings    Settings
	logger      zerolog.Logger
}

// ConversationDeps groups the collaborators of the state machine
type ConversationDeps struct {
	Store       storage.UserStore
	Catalog     storage.PlaceCatalog
	Sessions    *SessionManager
	Messenger   Messenger
	Interpreter Interpreter
	Recommender *RecommendationFilter
	Pipeline    *DeliveryPipeline
	Metrics     *metrics.Metrics
}

func NewConversationService(deps ConversationDeps, settings Settings, logger zerolog.Logger) *ConversationService {
	if deps.Interpreter == nil {
		deps.Interpreter = NoopInterpreter{}
	}
	if settings.MoreBatchSize <= 0 {
		settings.MoreBatchSize = 1
	}
	if settings.MoreBatchSize > MaxMoreBatchSize {
		settings.MoreBatchSize = MaxMoreBatchSize
	}
	return &ConversationService{
		store:       deps.Store,
		catalog:     deps.Catalog,
		sessions:    deps.Sessions,
		messenger:   deps.Messenger,
		interpreter: deps.Interpreter,
		recommender: deps.Recommender,
		pipeline:    deps.Pipeline,
		metrics:     deps.Metrics,
		settings:    settings,
		logger:      logger.With().Str("component", "conversation").Logger(),
	}
}

// turn carries one inbound message through routing
type turn struct {
	ctx       context.Context
	svc       *ConversationService
	user      *models.User
	session   *models.ConversationSession
	msg       models.Inbound
	replies   []models.Outbound
	delivered []string
	logger    zerolog.Logger
}

// Handle routes one inbound message and sends the replies it produces
func (c *ConversationService) Handle(ctx context.Context, msg models.Inbound) (*Result, error) {
	start := time.Now()
	defer c.metrics.ObserveHandle(start)

	phone := utils.NormalizePhone(msg.From)
	if phone == "" {
		return nil, ErrEmptySender
	}
	msg.From = phone
	c.metrics.Inbound(msg.Kind.String())

	unlock := c.store.Lock(phone)
	defer unlock()

	user, created, err := c.store.GetOrCreate(phone)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", phone, err)
	}
	if name := strings.TrimSpace(msg.Name); name != "" {
		user.Name = name
	}
	c.ensureCity(user)
	if created {
		c.logger.Info().Str("phone", phone).Str("city", user.City).Msg("New user")
	}

	t := &turn{
		ctx:     ctx,
		svc:     c,
		user:    user,
		session: c.sessions.Get(phone),
		msg:     msg,
		logger:  c.logger.With().Str("phone", phone).Logger(),
	}

	from := user.State
	c.dispatch(t)
	if from != user.State {
		c.metrics.Transition(string(from), string(user.State))
		t.logger.Info().Str("from", string(from)).Str("to", string(user.State)).Msg("State changed")
	}

	if err := c.store.Save(user); err != nil {
		return nil, fmt.Errorf("failed to save user %s: %w", phone, err)
	}
	c.sessions.Touch(phone)

	return &Result{Phone: phone, State: user.State, Replies: t.replies, Delivered: t.delivered}, nil
}

// dispatch converts a handler panic into the generic error reply
func (c *ConversationService) dispatch(t *turn) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Str("state", string(t.user.State)).Msg("Recovered from handler panic")
			t.session.ClearPending()
			t.say(msgGenericError)
		}
	}()
	c.route(t)
}

func (c *ConversationService) route(t *turn) {
	t.resolveNumericReply()

	if t.msg.Kind == models.InboundLocation {
		c.ensureCity(t.user)
		t.logger.Debug().Float64("lat", t.msg.Latitude).Float64("lon", t.msg.Longitude).Msg("Location received")
		t.msg = models.Inbound{From: t.msg.From, Name: t.msg.Name, Kind: models.InboundText, Text: "continuar"}
	}

	recovered := c.normalizeState(t)
	if c.prefilter(t) {
		return
	}
	if recovered {
		t.say(msgRecovered)
		return
	}

	cls := Classify(t.msg, t.user.State, t.session)
	t.logger.Debug().
		Str("state", string(t.user.State)).
		Str("class", cls.Class.String()).
		Str("reason", cls.Reason).
		Msg("Message classified")

	if t.session.Continuation != models.ContinuationNone && cls.Class != ClassStaleButtonID {
		c.continuation(t, cls)
		return
	}
	if cls.Class == ClassStaleButtonID {
		c.handleStale(t, cls)
		return
	}
	if cls.Class == ClassBotEcho {
		t.logger.Info().Str("reason", cls.Reason).Msg("Ignoring echo of our own message")
		return
	}
	c.byState(t, cls)
}

func (c *ConversationService) byState(t *turn, cls Classification) {
	switch t.user.State {
	case models.StateStart:
		c.handleStart(t)
	case models.StateAwaitingConfirmation:
		c.handleAwaitingConfirmation(t)
	case models.StateSelectingInterests:
		c.handleSelectingInterests(t, cls)
	case models.StateBuildingProfile:
		c.handleBuildingProfile(t)
	case models.StateGeneratingPlan:
		c.handleGeneratingPlan(t)
	case models.StatePlanPresented, models.StateFollowUp:
		c.handleFollowUp(t, cls)
	default:
		t.setState(models.StateStart)
		c.handleStart(t)
	}
}

func (c *ConversationService) continuation(t *turn, cls Classification) {
	marker := t.session.Continuation
	switch marker {
	case models.ContinuationProfileAnswer:
		if t.user.State != models.StateBuildingProfile {
			t.setState(models.StateBuildingProfile)
		}
		c.handleBuildingProfile(t)
	case models.ContinuationMoreInterest:
		c.handleMoreChoice(t, cls)
	default:
		t.logger.Warn().Str("marker", string(marker)).Msg("Unknown continuation, dropping it")
		t.session.ClearPending()
		c.byState(t, cls)
	}
}

// handleStale forwards interest and profile buttons tapped after a plan to
// the step that owns them. Anything else is ignored and the current prompt
// is sent again.
func (c *ConversationService) handleStale(t *turn, cls Classification) {
	state := t.user.State
	if state == models.StateFollowUp || state == models.StatePlanPresented {
		switch cls.Owner {
		case models.StateSelectingInterests:
			t.logger.Info().Str("id", t.msg.ID).Msg("Forwarding interest button")
			t.setState(models.StateSelectingInterests)
			c.handleSelectingInterests(t, Classify(t.msg, models.StateSelectingInterests, t.session))
			return
		case models.StateBuildingProfile:
			t.logger.Info().Str("id", t.msg.ID).Msg("Forwarding profile button")
			t.setState(models.StateBuildingProfile)
			c.handleBuildingProfile(t)
			return
		}
	}

	t.logger.Info().
		Str("id", t.msg.ID).
		Str("state", string(state)).
		Str("owner", string(cls.Owner)).
		Msg("Ignoring stale button")
	c.reprompt(t)
}

// reprompt sends the current step's prompt again
func (c *ConversationService) reprompt(t *turn) {
	switch t.user.State {
	case models.StateStart, models.StateAwaitingConfirmation:
		c.sendWelcome(t)
	case models.StateSelectingInterests:
		t.choose(InterestMenu(t.user, false))
	case models.StateBuildingProfile:
		c.askNext(t)
	case models.StateGeneratingPlan:
		t.say(msgPlanFailure)
	default:
		t.choose(FollowUpMenu(t.user))
	}
}

// Global commands, matched on the whole folded message
var (
	resetWords  = []string{"reiniciar", "reset", "restart", "empezar de nuevo", "borrar todo"}
	helpWords   = []string{"ayuda", "help"}
	cancelWords = []string{"cancelar", "cancel", "salir"}
)

func isCommand(folded string, words []string) bool {
	for _, w := range words {
		if folded == w {
			return true
		}
	}
	return false
}

// prefilter handles rating shortcuts and stateless commands
func (c *ConversationService) prefilter(t *turn) bool {
	raw := strings.TrimSpace(t.msg.Text)
	if t.msg.IsSelection() {
		raw = t.msg.ID
	}
	if IsRatingMessage(raw) {
		c.handleRating(t, raw)
		return true
	}
	if t.msg.IsSelection() {
		return false
	}

	folded := utils.Fold(t.msg.Text)
	switch {
	case isCommand(folded, resetWords):
		t.logger.Info().Msg("Conversation reset")
		t.user.ResetConversation()
		c.sessions.Reset(t.user.Phone)
		t.session = c.sessions.Get(t.user.Phone)
		t.say(msgReset)
		return true
	case isCommand(folded, helpWords):
		t.say(msgHelp)
		return true
	case isCommand(folded, cancelWords):
		t.setState(models.StateStart)
		t.session.ClearPending()
		t.say(msgCancel)
		return true
	}
	return false
}

// normalizeState repairs the stored state before anything reads it. Tags
// differing only in case or spacing are kept; anything else restarts the
// conversation and reports true.
func (c *ConversationService) normalizeState(t *turn) bool {
	if t.user.State.Valid() {
		return false
	}
	if s, ok := models.ParseState(string(t.user.State)); ok {
		t.user.State = s
		return false
	}
	t.logger.Warn().Str("state", string(t.user.State)).Msg("Invalid state, forcing start")
	t.user.State = models.StateStart
	t.session.ClearPending()
	return true
}

// ensureCity assigns the default city while the user has none
func (c *ConversationService) ensureCity(u *models.User) {
	if strings.TrimSpace(u.City) == "" {
		u.City = c.settings.DefaultCity
	}
}

func (t *turn) setState(s models.ConversationState) {
	t.user.State = s
}

// resolveNumericReply maps "2" to the second option of the last choice we sent
func (t *turn) resolveNumericReply() {
	if t.msg.Kind != models.InboundText || len(t.session.LastChoices) == 0 {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(t.msg.Text))
	if err != nil || n < 1 || n > len(t.session.LastChoices) {
		return
	}
	t.msg.Kind = models.InboundListRow
	t.msg.ID = t.session.LastChoices[n-1]
}

func (t *turn) say(text string) {
	t.reply(models.TextMessage(text))
}

func (t *turn) choose(c models.Choice) {
	t.reply(models.ChoiceMessage(c))
}

// reply sends out immediately so replies interleave correctly with deliveries
func (t *turn) reply(out models.Outbound) {
	if out.Kind == models.OutboundText && strings.TrimSpace(out.Text) == "" {
		return
	}
	t.replies = append(t.replies, out)

	var res models.SendResult
	m := t.svc.messenger
	switch out.Kind {
	case models.OutboundImage:
		res = m.SendImage(t.ctx, t.user.Phone, out.MediaURL, out.Text)
	case models.OutboundChoice:
		res = m.SendChoice(t.ctx, t.user.Phone, *out.Choice)
		ids := make([]string, 0, len(out.Choice.Options))
		for _, o := range out.Choice.Options {
			ids = append(ids, o.ID)
		}
		t.session.LastChoices = ids
	default:
		res = m.SendText(t.ctx, t.user.Phone, out.Text)
	}
	t.svc.metrics.Outbound(out.Kind.String(), res.Acked())
	t.session.RememberBotText(out.Text)

	if !res.Acked() {
		t.logger.Error().Err(res.Err).Str("kind", out.Kind.String()).Msg("Reply not delivered")
	}
}
