package emailsvc

import (
	"bytes"
	"context"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocwc/oeweek2022/core"
)

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "OE Week",
		DefaultFromEmail: mail.Address{Name: "OE Week", Address: "info@openeducationweek.org"},
	}
}

func TestConsoleService_Send(t *testing.T) {
	var out bytes.Buffer
	svc := NewConsoleService(testConfig())
	svc.out = &out

	err := svc.Send(context.Background(), &core.EmailMessage{
		To:          []mail.Address{{Name: "Jane", Address: "jane@example.org"}},
		Cc:          []mail.Address{{Address: "cc@example.org"}},
		Subject:     "Hello",
		TextContent: "Hi there",
	})
	require.NoError(t, err)

	body := out.String()
	assert.Contains(t, body, `From: "OE Week" <info@openeducationweek.org>`)
	assert.Contains(t, body, "Subject: [OE Week] Hello")
	assert.Contains(t, body, `To: "Jane" <jane@example.org>`)
	assert.Contains(t, body, "CC: <cc@example.org>")
	assert.Contains(t, body, "Hi there")
	assert.NotContains(t, body, "text/html")
}

func TestConsoleService_SendEmpty(t *testing.T) {
	svc := NewConsoleService(testConfig())
	svc.out = nil

	err := svc.Send(context.Background(), &core.EmailMessage{Subject: "no recipients", TextContent: "x"})
	assert.Equal(t, errEmptyMessage, err)

	err = svc.Send(context.Background(), &core.EmailMessage{To: []mail.Address{{Address: "a@b.org"}}})
	assert.Equal(t, errEmptyMessage, err)
}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(testConfig())
	msg := &core.EmailMessage{To: []mail.Address{{Address: "a@b.org"}}, Subject: "s", TextContent: "t"}

	require.NoError(t, svc.Send(context.Background(), msg))
	_ = svc.Send(context.Background(), &core.EmailMessage{})

	sent := svc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "s", sent[0].Subject)
	}
}

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(testConfig())
	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Jane", Address: "jane@example.org"}},
		Subject:     "Hello",
		TextContent: "Hi",
	})

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[OE Week] Hello", m.Personalizations[0].Subject)
	assert.Equal(t, "jane@example.org", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "info@openeducationweek.org", m.From.Address)
	assert.Len(t, m.Content, 1)
}
