package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *OpenAIEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("FOLIO_TEST_KEY", "sk-test")

	e, err := NewOpenAIEmbedder(OpenAIOptions{
		APIKeyEnv: "FOLIO_TEST_KEY",
		Model:     "text-embedding-3-small",
		BaseURL:   srv.URL + "/v1",
	})
	require.NoError(t, err)
	return e
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var gotModel string
	var gotInput []string
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel, gotInput = req.Model, req.Input

		w.Header().Set("Content-Type", "application/json")
		// out of order on purpose
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":1,"embedding":[0,1]},
			        {"object":"embedding","index":0,"embedding":[1,0]}],
			"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	})

	vectors, err := e.Embed(context.Background(), []string{"about", "skills"})
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", gotModel)
	assert.Equal(t, []string{"about", "skills"}, gotInput)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, 1536, e.Dimension())
	assert.Equal(t, "text-embedding-3-small", e.ModelName())
}

func TestOpenAIEmbedder_APIError(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})

	_, err := e.Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestOpenAIEmbedder_ShortResponse(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[],"model":"m"}`))
	})

	_, err := e.Embed(context.Background(), []string{"hello"})
	assert.Error(t, err)
}

func TestOpenAIEmbedder_RejectsEmptyText(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := e.Embed(context.Background(), []string{"  "})
	assert.Error(t, err)
}

func TestNewOpenAIEmbedder_MissingKey(t *testing.T) {
	t.Setenv("FOLIO_MISSING_KEY", "")
	_, err := NewOpenAIEmbedder(OpenAIOptions{APIKeyEnv: "FOLIO_MISSING_KEY"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOLIO_MISSING_KEY")
}

func TestMockEmbedder(t *testing.T) {
	m := NewMockEmbedder(4).Set("skills", []float32{0, 1, 0, 0})

	a, err := m.Embed(context.Background(), []string{"skills", "anything"})
	require.NoError(t, err)
	b, err := m.Embed(context.Background(), []string{"skills", "anything"})
	require.NoError(t, err)

	assert.Equal(t, []float32{0, 1, 0, 0}, a[0])
	assert.Len(t, a[1], 4)
	assert.Equal(t, a, b)
	assert.Equal(t, 2, m.Calls())
}
