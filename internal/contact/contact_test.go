package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseai/internal/config"
)

func validRequest() Request {
	return Request{
		Name:    "Alex",
		Email:   "alex@example.com",
		Phone:   "010-1234-5678",
		Subject: "Partnership",
		Message: "Hello <b>team</b>",
	}
}

func TestMailerSend(t *testing.T) {
	var got email
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewMailer(config.EmailConfig{ServiceURL: srv.URL, APIKey: "key-123", AdminEmail: "admin@poseai.dev", Timeout: time.Second})
	require.NoError(t, m.Send(context.Background(), validRequest()))

	assert.Equal(t, "Bearer key-123", auth)
	assert.Equal(t, "admin@poseai.dev", got.To)
	assert.Equal(t, "[PoseAI] New inquiry: Partnership", got.Subject)
	assert.Contains(t, got.HTML, "<strong>Name:</strong> Alex")
	// user input is escaped
	assert.Contains(t, got.HTML, "Hello &lt;b&gt;team&lt;/b&gt;")
}

func TestMailerSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	m := NewMailer(config.EmailConfig{ServiceURL: srv.URL, Timeout: time.Second})
	err := m.Send(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

type fakeSender struct {
	err  error
	sent []Request
}

func (f *fakeSender) Send(ctx context.Context, r Request) error {
	f.sent = append(f.sent, r)
	return f.err
}

type fakeStore struct {
	err   error
	saved []*Message
}

func (f *fakeStore) SaveMessage(ctx context.Context, m *Message) error {
	f.saved = append(f.saved, m)
	return f.err
}

func TestSubmit(t *testing.T) {
	sender, store := &fakeSender{}, &fakeStore{}
	svc := NewService(sender, store)

	req := validRequest()
	req.Name = "  Alex  "
	require.NoError(t, svc.Submit(context.Background(), req))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Alex", sender.sent[0].Name)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "Partnership", store.saved[0].Subject)
}

func TestSubmitValidation(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, nil)

	req := validRequest()
	req.Message = "   "
	assert.ErrorIs(t, svc.Submit(context.Background(), req), ErrInvalidRequest)
	assert.Empty(t, sender.sent)

	// phone is optional
	req = validRequest()
	req.Phone = ""
	assert.NoError(t, svc.Submit(context.Background(), req))
}

func TestSubmitSendFailureSkipsStore(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(&fakeSender{err: errors.New("smtp down")}, store)
	assert.Error(t, svc.Submit(context.Background(), validRequest()))
	assert.Empty(t, store.saved)
}

func TestSubmitStoreFailureStillSucceeds(t *testing.T) {
	svc := NewService(&fakeSender{}, &fakeStore{err: errors.New("db down")})
	assert.NoError(t, svc.Submit(context.Background(), validRequest()))
}

func TestNormalizeComposesUnicode(t *testing.T) {
	// "é" written as e + combining acute accent
	r := Request{Name: "Re\u0301mi"}.normalized()
	assert.Equal(t, "R\u00e9mi", r.Name)
}
