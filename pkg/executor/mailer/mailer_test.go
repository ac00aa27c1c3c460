package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/common-fate/flow/pkg/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestMailer_Execute(t *testing.T) {
	m := New(Config{Host: "smtp.example.com", From: "flow@example.com"})

	var sent *mail.Msg
	m.send = func(ctx context.Context, msg *mail.Msg) error {
		sent = msg
		return nil
	}

	out, err := m.Execute(context.Background(), node.EmailData{
		To:      []string{"a@example.com"},
		Cc:      []string{"b@example.com"},
		Subject: "Hello",
		Body:    "World",
	})
	require.NoError(t, err)
	require.NotNil(t, sent)

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, out["accepted"])
	assert.Equal(t, []string{}, out["rejected"])
	assert.Contains(t, out["messageId"], "@smtp.example.com>")
	assert.Equal(t, []string{"Hello"}, sent.GetGenHeader(mail.HeaderSubject))
}

func TestMailer_Errors(t *testing.T) {
	m := New(Config{From: "flow@example.com"})
	m.send = func(ctx context.Context, msg *mail.Msg) error { return errors.New("connection refused") }

	_, err := m.Execute(context.Background(), node.EmailData{})
	assert.EqualError(t, err, "an email needs at least one recipient")

	_, err = m.Execute(context.Background(), node.EmailData{To: []string{"not an address"}})
	assert.Error(t, err)

	_, err = m.Execute(context.Background(), node.EmailData{To: []string{"a@example.com"}})
	assert.EqualError(t, err, "sending email: connection refused")

	err = New(Config{From: "flow@example.com"}).dialAndSend(context.Background(), mail.NewMsg())
	assert.EqualError(t, err, "no SMTP host is configured")
}
