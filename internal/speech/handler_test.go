package speech

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/tabletalk-host/internal/ai"
	"github.com/Vovarama1992/tabletalk-host/internal/httpx"
)

// fakeProvider mimics the provider's speech endpoint.
func fakeProvider(t *testing.T, status int, reply string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, reply)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newRouter(synth ai.Synthesizer, opts Options) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(NewService(synth, opts, zerolog.Nop()), zerolog.Nop()))
	return r
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tts", strings.NewReader(body)))
	return rec
}

func TestSpeakEndpoint_Audio(t *testing.T) {
	var sent map[string]any
	provider := fakeProvider(t, http.StatusOK, "ID3-fake-mp3", &sent)
	client := ai.NewOpenAIClient(ai.OpenAIConfig{APIKey: "test-key", BaseURL: provider.URL}, zerolog.Nop())

	rec := post(newRouter(client, Options{Voice: "echo", MaxChars: 4}), `{"text":"Hello there"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ID3-fake-mp3", rec.Body.String())
	assert.Equal(t, "Hell", sent["input"])
	assert.Equal(t, "echo", sent["voice"])
	assert.Equal(t, "tts-1", sent["model"])
	assert.Equal(t, "mp3", sent["response_format"])
}

func TestSpeakEndpoint_BadText(t *testing.T) {
	client := ai.NewOpenAIClient(ai.OpenAIConfig{APIKey: "test-key", BaseURL: "http://127.0.0.1:0"}, zerolog.Nop())
	router := newRouter(client, Options{})

	for _, body := range []string{`{}`, `{"text":42}`, `{"text":""}`, `not json`} {
		rec := post(router, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)

		var resp httpx.ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Text is required", resp.Error)
	}
}

func TestSpeakEndpoint_MissingKey(t *testing.T) {
	rec := post(newRouter(ai.NewOpenAIClient(ai.OpenAIConfig{}, zerolog.Nop()), Options{}), `{"text":"hi"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"OpenAI API Key is missing"}`, rec.Body.String())
}

func TestSpeakEndpoint_ProviderError(t *testing.T) {
	provider := fakeProvider(t, http.StatusTooManyRequests,
		`{"error":{"message":"Rate limit reached for tts-1","type":"requests"}}`, nil)
	client := ai.NewOpenAIClient(ai.OpenAIConfig{APIKey: "test-key", BaseURL: provider.URL}, zerolog.Nop())

	rec := post(newRouter(client, Options{}), `{"text":"hi"}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Rate limit reached for tts-1"}`, rec.Body.String())
}
