package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbedTextsBatches(t *testing.T) {
	t.Parallel()

	var (
		gotPath  string
		gotAuth  string
		gotModel string
		batches  [][]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotModel = req.Model
		batches = append(batches, req.Input)

		resp := embeddingsResponse{}
		for range req.Input {
			resp.Data = append(resp.Data,
				embeddingsDataItem{Embedding: []float64{0.25, 0.5}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	inputs := make([]string, 0, embedBatchSize+1)
	for i := 0; i < embedBatchSize+1; i++ {
		inputs = append(inputs, fmt.Sprintf("chunk %d", i))
	}

	embedder := NewOpenAIEmbedder(server.URL, "test-key", "text-embedding-3-small", server.Client())
	vectors, err := embedder.EmbedTexts(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, vectors, embedBatchSize+1)
	require.Equal(t, []float32{0.25, 0.5}, vectors[0].Slice())

	require.Equal(t, "/v1/embeddings", gotPath)
	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, "text-embedding-3-small", gotModel)
	require.Len(t, batches, 2)
	require.Len(t, batches[0], embedBatchSize)
	require.Len(t, batches[1], 1)
}

func TestEmbedTextsConfigValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := NewOpenAIEmbedder("http://localhost", "key", "model", nil).
		EmbedTexts(ctx, nil)
	require.ErrorContains(t, err, "no inputs")

	_, err = NewOpenAIEmbedder("", "key", "model", nil).
		EmbedTexts(ctx, []string{"text"})
	require.ErrorContains(t, err, "base url")

	_, err = NewOpenAIEmbedder("http://localhost", "", "model", nil).
		EmbedTexts(ctx, []string{"text"})
	require.ErrorContains(t, err, "api key")

	_, err = NewOpenAIEmbedder("http://localhost", "key", "", nil).
		EmbedTexts(ctx, []string{"text"})
	require.ErrorContains(t, err, "model")
}

func TestEmbedTextsUpstreamFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	embedder := NewOpenAIEmbedder(server.URL, "key", "model", server.Client())
	_, err := embedder.EmbedTexts(context.Background(), []string{"text"})
	require.ErrorContains(t, err, "status 503")
}

func TestEmbedTextsCountMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// One vector for two inputs.
		resp := embeddingsResponse{Data: []embeddingsDataItem{
			{Embedding: []float64{1}},
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	embedder := NewOpenAIEmbedder(server.URL, "key", "model", server.Client())
	_, err := embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	require.ErrorContains(t, err, "embedding count mismatch")
}
