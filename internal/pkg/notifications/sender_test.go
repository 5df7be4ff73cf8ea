package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppSender_Send(t *testing.T) {
	var got whatsAppRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"queued":true}`))
	}))
	defer srv.Close()

	s := NewWhatsAppSender(srv.URL, "secret-token", time.Second)
	err := s.Send(context.Background(), Message{JobID: "job-1", Recipient: "+51999000111", Body: "Hola"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", auth)
	assert.Equal(t, whatsAppRequest{To: "+51999000111", Message: "Hola", Reference: "job-1"}, got)
}

func TestWhatsAppSender_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "number not on whatsapp", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	err := NewWhatsAppSender(srv.URL, "", time.Second).Send(context.Background(), Message{Recipient: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "number not on whatsapp")

	assert.Error(t, NewWhatsAppSender("", "", time.Second).Send(context.Background(), Message{}))

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()
	assert.Error(t, NewWhatsAppSender(slow.URL, "", 20*time.Millisecond).Send(context.Background(), Message{}))
}

type fakeMailer struct {
	to, subject, body string
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.to, f.subject, f.body = to, subject, body
	return nil
}

func TestEmailSender_Send(t *testing.T) {
	m := &fakeMailer{}
	require.NoError(t, NewEmailSender(m).Send(context.Background(), Message{Recipient: "a@b.pe", Subject: "Asunto", Body: "Cuerpo"}))
	assert.Equal(t, "a@b.pe", m.to)
	assert.Equal(t, "Asunto", m.subject)
	assert.Equal(t, "Cuerpo", m.body)
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "Pago vencido de su servicio Nexius", subjectFor("high"))
	assert.Equal(t, "Recordatorio de pago de su servicio Nexius", subjectFor("medium"))
}
