package mail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestVerificationLink(t *testing.T) {
	assert.Equal(t, "http://localhost:8000/api/auth/confirmed_email/abc.def.ghi",
		VerificationLink("http://localhost:8000/", "abc.def.ghi"))
	assert.Equal(t, "https://contacts.example.com/api/auth/confirmed_email/abc",
		VerificationLink("https://contacts.example.com", "abc"))
}

type capturedMessage struct {
	path, from, to, subject, html, text string
}

func newMailgunStub(t *testing.T) (*httptest.Server, func() []capturedMessage) {
	t.Helper()

	var (
		mu       sync.Mutex
		messages []capturedMessage
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(10 << 20)

		mu.Lock()
		messages = append(messages, capturedMessage{
			path:    r.URL.Path,
			from:    r.FormValue("from"),
			to:      r.FormValue("to"),
			subject: r.FormValue("subject"),
			html:    r.FormValue("html"),
			text:    r.FormValue("text"),
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"<20260101.1@mg.example.com>","message":"Queued. Thank you."}`))
	}))
	t.Cleanup(server.Close)

	return server, func() []capturedMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedMessage(nil), messages...)
	}
}

func TestMailgunSenderSendsVerificationEmail(t *testing.T) {
	server, sent := newMailgunStub(t)

	sender := NewMailgunSender(Config{
		Domain:      "mg.example.com",
		APIKey:      "key-test",
		APIBase:     server.URL + "/v3",
		From:        "no-reply@example.com",
		FromName:    "Contacts App",
		ProductName: "Contacts App",
		ProductLink: "http://localhost:8000/",
	}, zap.NewNop())

	err := sender.SendVerificationEmail(context.Background(), "alice@example.com", "alice", "http://localhost:8000/", "tok123")
	require.NoError(t, err)

	messages := sent()
	require.Len(t, messages, 1)
	msg := messages[0]

	assert.True(t, strings.HasSuffix(msg.path, "/mg.example.com/messages"), msg.path)
	assert.Equal(t, "Contacts App <no-reply@example.com>", msg.from)
	assert.Equal(t, "alice@example.com", msg.to)
	assert.Equal(t, verificationSubject, msg.subject)
	assert.Contains(t, msg.html, "http://localhost:8000/api/auth/confirmed_email/tok123")
	assert.Contains(t, msg.text, "alice")
}

func TestMailgunSenderReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Forbidden"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	sender := NewMailgunSender(Config{
		Domain:  "mg.example.com",
		APIKey:  "wrong",
		APIBase: server.URL + "/v3",
		From:    "no-reply@example.com",
	}, zap.NewNop())

	err := sender.SendVerificationEmail(context.Background(), "alice@example.com", "alice", "http://localhost:8000/", "tok123")
	assert.Error(t, err)
}

func TestLogSenderDoesNotLogToken(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sender := NewLogSender(zap.New(core))

	require.NoError(t, sender.SendVerificationEmail(context.Background(), "alice@example.com", "alice", "http://localhost:8000/", "secret-token"))

	entries := logs.All()
	require.Len(t, entries, 1)
	for _, field := range entries[0].Context {
		assert.NotContains(t, field.String, "secret-token")
	}
	assert.Equal(t, "alice@example.com", entries[0].ContextMap()["to"])
}
