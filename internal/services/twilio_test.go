package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Ananth-NQI/tripguide-backend/internal/config"
	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

type fakeMessageCreator struct {
	params []*twilioApi.CreateMessageParams
	resp   *twilioApi.ApiV2010Message
	err    error
}

func (f *fakeMessageCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	return f.resp, f.err
}

func twilioMessage(sid string) *twilioApi.ApiV2010Message {
	return &twilioApi.ApiV2010Message{Sid: &sid}
}

func newTestTwilio(api messageCreator, cfg config.TwilioConfig) *TwilioService {
	if cfg.WhatsAppFrom == "" {
		cfg.WhatsAppFrom = "+14155238886"
	}
	return newTwilioService(api, cfg, "https://bot.example/", zerolog.Nop())
}

func TestTwilioSendText(t *testing.T) {
	t.Parallel()

	api := &fakeMessageCreator{resp: twilioMessage("SM123")}
	tw := newTestTwilio(api, config.TwilioConfig{})

	res := tw.SendText(context.Background(), "whatsapp:"+testPhone, "hola")
	if !res.Acked() || res.ID != "SM123" {
		t.Fatalf("result = %+v", res)
	}
	p := api.params[0]
	if *p.From != "whatsapp:+14155238886" || *p.To != "whatsapp:"+testPhone || *p.Body != "hola" {
		t.Errorf("params from=%s to=%s body=%s", *p.From, *p.To, *p.Body)
	}
}

func TestTwilioRejections(t *testing.T) {
	t.Parallel()

	code := 63016
	reason := "outside the allowed window"
	empty := ""

	tests := []struct {
		name string
		resp *twilioApi.ApiV2010Message
		err  error
	}{
		{name: "transport error", err: errors.New("connection reset")},
		{name: "nil response"},
		{name: "error code", resp: &twilioApi.ApiV2010Message{ErrorCode: &code, ErrorMessage: &reason}},
		{name: "missing sid", resp: &twilioApi.ApiV2010Message{Sid: &empty}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tw := newTestTwilio(&fakeMessageCreator{resp: tt.resp, err: tt.err}, config.TwilioConfig{})
			res := tw.SendText(context.Background(), testPhone, "hola")
			if res.Acked() || res.Err == nil {
				t.Errorf("result = %+v, want a rejection", res)
			}
		})
	}
}

func TestTwilioSendImage(t *testing.T) {
	t.Parallel()

	api := &fakeMessageCreator{resp: twilioMessage("SM1")}
	tw := newTestTwilio(api, config.TwilioConfig{})

	res := tw.SendImage(context.Background(), testPhone, "./media/rest_001.jpg", strings.Repeat("x", 2000))
	if !res.Acked() {
		t.Fatalf("result = %+v", res)
	}
	p := api.params[0]
	if got := (*p.MediaUrl)[0]; got != "https://bot.example/media/rest_001.jpg" {
		t.Errorf("media url = %s", got)
	}
	if n := len([]rune(*p.Body)); n > MaxCaptionLength {
		t.Errorf("caption has %d runes", n)
	}

	local := newTwilioService(api, config.TwilioConfig{WhatsAppFrom: "whatsapp:+1"}, "", zerolog.Nop())
	if res := local.SendImage(context.Background(), testPhone, "media/rest_001.jpg", ""); res.Acked() {
		t.Error("relative media sent without a public base URL")
	}
	if len(api.params) != 1 {
		t.Errorf("API called %d times, want 1", len(api.params))
	}
}

func TestTwilioSendChoice(t *testing.T) {
	t.Parallel()

	choice := models.Choice{
		Body:    "¿Qué querés hacer ahora?",
		Options: []models.ChoiceOption{{ID: "a", Title: "Uno"}, {ID: "b", Title: "Dos", Description: "segunda"}},
	}

	t.Run("text fallback", func(t *testing.T) {
		t.Parallel()

		api := &fakeMessageCreator{resp: twilioMessage("SM2")}
		newTestTwilio(api, config.TwilioConfig{}).SendChoice(context.Background(), testPhone, choice)

		body := *api.params[0].Body
		if !strings.Contains(body, "1. Uno") || !strings.Contains(body, "2. Dos - segunda") {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("content template", func(t *testing.T) {
		t.Parallel()

		api := &fakeMessageCreator{resp: twilioMessage("SM3")}
		tw := newTestTwilio(api, config.TwilioConfig{ButtonsContentSID: "HXbuttons", ListContentSID: "HXlist"})
		if res := tw.SendChoice(context.Background(), testPhone, choice); !res.Acked() {
			t.Fatalf("result = %+v", res)
		}

		p := api.params[0]
		if *p.ContentSid != "HXbuttons" {
			t.Errorf("content sid = %s", *p.ContentSid)
		}
		var vars map[string]string
		if err := json.Unmarshal([]byte(*p.ContentVariables), &vars); err != nil {
			t.Fatal(err)
		}
		if vars["1"] != choice.Body || vars["2"] != "a" || vars["6"] != "Dos" {
			t.Errorf("variables = %v", vars)
		}

		list := choice
		list.AsList = true
		tw.SendChoice(context.Background(), testPhone, list)
		if *api.params[1].ContentSid != "HXlist" {
			t.Errorf("list content sid = %s", *api.params[1].ContentSid)
		}
	})
}

func TestConsoleMessengerAcks(t *testing.T) {
	t.Parallel()

	var m Messenger = NewConsoleMessenger(zerolog.Nop())
	ctx := context.Background()
	for _, res := range []models.SendResult{
		m.SendText(ctx, testPhone, "hola"),
		m.SendImage(ctx, testPhone, "media/x.jpg", "caption"),
		m.SendChoice(ctx, testPhone, models.Choice{Body: "b"}),
	} {
		if !res.Acked() {
			t.Errorf("result = %+v", res)
		}
	}
}
