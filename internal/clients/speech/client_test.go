package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/remindbot/internal/domain"
)

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, DefaultModel, r.FormValue("model"))
		assert.Equal(t, "ru", r.FormValue("language"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "voice.ogg", hdr.Filename)
		assert.Equal(t, "OggS...", string(data))

		_, _ = w.Write([]byte(`{"text": " напомни завтра купить хлеб "}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "")
	require.True(t, c.IsConfigured())
	text, err := c.Transcribe(context.Background(), strings.NewReader("OggS..."), "voice.ogg")
	require.NoError(t, err)
	assert.Equal(t, "напомни завтра купить хлеб", text)
}

func TestTranscribeFailures(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"text": ""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	_, err := c.Transcribe(context.Background(), strings.NewReader("x"), "voice.ogg")
	assert.ErrorIs(t, err, domain.ErrUpstream)

	status = http.StatusBadGateway
	_, err = c.Transcribe(context.Background(), strings.NewReader("x"), "voice.ogg")
	assert.ErrorIs(t, err, domain.ErrUpstream)

	assert.False(t, NewClient("", "", "").IsConfigured())
}
