package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/cycleshop/internal/config"
	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/service/commands"
)

type sent struct{ to, body string }

type recordingSender struct {
	messages []sent
	err      error
}

func (r *recordingSender) SendText(_ context.Context, to, body string) (string, error) {
	r.messages = append(r.messages, sent{to, body})
	return "wamid", r.err
}

type stubDispatcher struct {
	reply string
	err   error
	got   []models.Command
}

func (d *stubDispatcher) HandleCommand(_ context.Context, cmd models.Command, _ string) (string, error) {
	d.got = append(d.got, cmd)
	return d.reply, d.err
}

const owner = "919800000000"

func textPayload(from string, bodies ...string) models.WebhookPayload {
	var msgs []models.InboundMessage
	for i, body := range bodies {
		msgs = append(msgs, models.InboundMessage{From: from, ID: string(rune('a' + i)), Type: "text", Text: &models.TextContent{Body: body}})
	}
	return models.WebhookPayload{Entry: []models.WebhookEntry{{Changes: []models.WebhookChange{{Value: models.WebhookValue{Messages: msgs}}}}}}
}

func newService(sender *recordingSender, d commands.Dispatcher) *Service {
	return NewService(config.WhatsAppConfig{VerifyToken: "verify-me", OwnerID: owner}, sender, d, nil)
}

func TestVerifyWebhookToken(t *testing.T) {
	svc := newService(&recordingSender{}, &stubDispatcher{})

	challenge, err := svc.VerifyWebhookToken("subscribe", "verify-me", "12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", challenge)

	for _, tc := range []struct{ mode, token string }{
		{"", "verify-me"},
		{"unsubscribe", "verify-me"},
		{"subscribe", "wrong"},
	} {
		_, err := svc.VerifyWebhookToken(tc.mode, tc.token, "1")
		assert.ErrorIs(t, err, ErrVerification)
	}
}

func TestHandleWebhook_Replies(t *testing.T) {
	tests := []struct {
		name      string
		dispatch  *stubDispatcher
		wantReply string
	}{
		{name: "command reply", dispatch: &stubDispatcher{reply: "Net: 10.00"}, wantReply: "Net: 10.00"},
		{name: "unknown command gets help", dispatch: &stubDispatcher{err: commands.ErrUnsupportedCommand}, wantReply: "Unknown command.\n" + commands.HelpText},
		{name: "bad arguments", dispatch: &stubDispatcher{err: fmtErr(commands.ErrInvalidArguments, "usage stock <name>")}, wantReply: "usage stock <name>"},
		{name: "failure is masked", dispatch: &stubDispatcher{err: errors.New("db down")}, wantReply: "Sorry, that command failed. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			svc := newService(sender, tt.dispatch)

			require.NoError(t, svc.HandleWebhook(context.Background(), textPayload(owner, "dues")))
			require.Len(t, sender.messages, 1)
			assert.Equal(t, sent{owner, tt.wantReply}, sender.messages[0])
		})
	}
}

func TestHandleWebhook_IgnoresStrangers(t *testing.T) {
	sender := &recordingSender{}
	d := &stubDispatcher{reply: "x"}

	require.NoError(t, newService(sender, d).HandleWebhook(context.Background(), textPayload("4400000", "dues")))
	assert.Empty(t, sender.messages)
	assert.Empty(t, d.got)
}

func TestHandleWebhook_SendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("whatsapp api error")}
	d := &stubDispatcher{reply: "ok"}

	err := newService(sender, d).HandleWebhook(context.Background(), textPayload(owner, "dues", "help"))
	require.Error(t, err)
	assert.Len(t, sender.messages, 2)
}

func TestSendOutbound(t *testing.T) {
	sender := &recordingSender{}
	svc := newService(sender, &stubDispatcher{})

	require.NoError(t, svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "stock arrived"}))
	assert.Equal(t, []sent{{"1", "stock arrived"}}, sender.messages)

	err := svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func fmtErr(base error, detail string) error {
	return fmt.Errorf("%w: %s", base, detail)
}
