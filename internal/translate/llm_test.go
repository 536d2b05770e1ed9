package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rotatingCredential hands out tok-1, then tok-2 after each Invalidate.
type rotatingCredential struct {
	mu          sync.Mutex
	gen         int
	invalidated int
}

func (c *rotatingCredential) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("tok-%d", c.gen+1), nil
}

func (c *rotatingCredential) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidated++
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// chatServer answers every completion with reply. Requests carrying a token
// listed in reject get a 401.
func chatServer(t *testing.T, reply string, reject ...string) (*httptest.Server, *[]chatRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []chatRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		for _, tok := range reject {
			if r.Header.Get("Authorization") == "Bearer "+tok {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":{"message":"token expired","type":"invalid_request_error"}}`)
				return
			}
		}

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		reqs = append(reqs, req)
		mu.Unlock()

		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newTestLLM(url string, cred Credential) *LLM {
	l := NewLLM(LLMConfig{
		BaseURL:    url + "/v1",
		Model:      "GigaChat",
		Credential: cred,
		Location:   time.UTC,
	}, newTestLocal(), zerolog.Nop())
	l.now = func() time.Time { return testNow }
	return l
}

func TestLLM_Translate(t *testing.T) {
	srv, reqs := chatServer(t, "time=09:00&text=Планерка&countInDays=99999&days=пн")
	l := newTestLLM(srv.URL, &rotatingCredential{})

	got, err := l.Translate(context.Background(), "Каждый понедельник в 9 планерка")
	require.NoError(t, err)
	assert.Equal(t, "text=Планерка&time=09:00&days=пн&countInDays=99999", got)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, "GigaChat", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "ТЕКУЩЕЕ ВРЕМЯ: 10:00 (вторник)")
	assert.Contains(t, req.Messages[0].Content, `"через 30 минут" это 10:30`)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "Каждый понедельник в 9 планерка", req.Messages[1].Content)
}

func TestLLM_RepairsIncompleteReply(t *testing.T) {
	srv, _ := chatServer(t, "`text=Позвонить маме`")
	l := newTestLLM(srv.URL, &rotatingCredential{})

	got, err := l.Translate(context.Background(), "позвонить маме в 18:00")
	require.NoError(t, err)
	assert.Equal(t, "text=Позвонить маме&time=18:00&countInDays=1", got)
}

func TestLLM_RejectsUnusableReply(t *testing.T) {
	srv, _ := chatServer(t, "Извините, не понял запрос")
	l := newTestLLM(srv.URL, &rotatingCredential{})

	_, err := l.Translate(context.Background(), "что-то странное")
	assert.Error(t, err)
}

func TestLLM_RefreshesRejectedToken(t *testing.T) {
	srv, reqs := chatServer(t, "text=Обед&time=13:00&countInDays=1", "tok-1")
	cred := &rotatingCredential{}
	l := newTestLLM(srv.URL, cred)

	got, err := l.Translate(context.Background(), "обед в 13")
	require.NoError(t, err)
	assert.Equal(t, "text=Обед&time=13:00&countInDays=1", got)
	assert.Equal(t, 1, cred.invalidated)
	assert.Len(t, *reqs, 1)
}

func TestLLM_RetriesOnlyOnce(t *testing.T) {
	srv, _ := chatServer(t, "text=Обед&time=13:00&countInDays=1", "tok-1", "tok-2")
	cred := &rotatingCredential{}
	l := newTestLLM(srv.URL, cred)

	_, err := l.Translate(context.Background(), "обед в 13")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call AI API")
	assert.Equal(t, 1, cred.invalidated)
}

type stubTranslator struct {
	out string
	err error
}

func (s stubTranslator) Translate(ctx context.Context, text string) (string, error) {
	return s.out, s.err
}

func TestFallback(t *testing.T) {
	ok := &Fallback{
		Primary:   stubTranslator{out: "text=a&time=09:00&countInDays=1"},
		Secondary: stubTranslator{out: "text=b&time=10:00&countInDays=1"},
		Log:       zerolog.Nop(),
	}
	got, err := ok.Translate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "text=a&time=09:00&countInDays=1", got)

	failing := &Fallback{
		Primary:   stubTranslator{err: errors.New("boom")},
		Secondary: newTestLocal(),
		Log:       zerolog.Nop(),
	}
	got, err = failing.Translate(context.Background(), "купить хлеб")
	require.NoError(t, err)
	assert.Equal(t, "text=купить хлеб&time=10:05&countInDays=1", got)
}
