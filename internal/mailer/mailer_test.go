package mailer

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMailer(t *testing.T) {
	var m Mailer = LogMailer{}
	err := m.Send(context.Background(), Message{
		To:         "ann@example.com",
		Subject:    "Certificate of Donation",
		Attachment: &Attachment{Filename: "certificate.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	assert.NoError(t, err)
}

func TestLogMailerNeverLogsBody(t *testing.T) {
	hook := test.NewGlobal()
	t.Cleanup(func() { logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks)) })

	require.NoError(t, LogMailer{}.Send(context.Background(), Message{
		To:      "ann@example.com",
		Subject: "One Time Password",
		Body:    "Your OTP is: 493817",
	}))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "ann@example.com", entry.Data["to"])
	assert.Equal(t, len("Your OTP is: 493817"), entry.Data["body_size"])
	for key, v := range entry.Data {
		assert.NotContains(t, fmt.Sprint(v), "493817", key)
	}
	assert.NotContains(t, entry.Message, "493817")
}

func TestNewSelectsTransport(t *testing.T) {
	m, err := New("smtp.example.com", 587, "u", "p", "no-reply@example.com", true)
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	m, err = New("", 0, "", "", "no-reply@example.com", false)
	require.NoError(t, err)
	assert.IsType(t, LogMailer{}, m)

	_, err = New("", 0, "", "", "no-reply@example.com", true)
	assert.ErrorIs(t, err, ErrNoTransport)
}

func TestSMTPMailerHonoursCancelledContext(t *testing.T) {
	m := NewSMTPMailer("127.0.0.1", 1, "", "", "no-reply@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Send(ctx, Message{To: "ann@example.com", Subject: "x", Body: "y"})
	assert.ErrorIs(t, err, context.Canceled)
}
