package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	errors "github.com/Laisky/errors/v2"
	pgvector "github.com/pgvector/pgvector-go"
)

// embedBatchSize bounds the inputs sent per embeddings request.
const embedBatchSize = 32

// Embedder converts text into vector representations.
type Embedder interface {
	EmbedTexts(ctx context.Context, inputs []string) ([]pgvector.Vector, error)
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIEmbedder constructs an embedder for the configured model.
func NewOpenAIEmbedder(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIEmbedder {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OpenAIEmbedder{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		httpClient: httpClient,
	}
}

// EmbedTexts batches the inputs and returns one vector per input.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, inputs []string) ([]pgvector.Vector, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no inputs provided for embedding")
	}
	if e.baseURL == "" {
		return nil, errors.New("missing embeddings base url")
	}
	if e.apiKey == "" {
		return nil, errors.New("missing embeddings api key")
	}
	if e.model == "" {
		return nil, errors.New("missing embeddings model")
	}

	vectors := make([]pgvector.Vector, 0, len(inputs))
	for start := 0; start < len(inputs); start += embedBatchSize {
		end := min(start+embedBatchSize, len(inputs))

		resp, err := e.createEmbeddings(ctx, inputs[start:end])
		if err != nil {
			return nil, errors.Wrap(err, "create embeddings")
		}

		for _, data := range resp.Data {
			values := make([]float32, len(data.Embedding))
			for i, value := range data.Embedding {
				values[i] = float32(value)
			}
			vectors = append(vectors, pgvector.NewVector(values))
		}
	}

	if len(vectors) != len(inputs) {
		return nil, errors.Errorf("embedding count mismatch: %d inputs, %d vectors",
			len(inputs), len(vectors))
	}

	return vectors, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []embeddingsDataItem `json:"data"`
}

type embeddingsDataItem struct {
	Embedding []float64 `json:"embedding"`
}

func (e *OpenAIEmbedder) createEmbeddings(ctx context.Context, batch []string) (*embeddingsResponse, error) {
	body, err := json.Marshal(embeddingsRequest{Model: e.model, Input: batch})
	if err != nil {
		return nil, errors.Wrap(err, "marshal embeddings request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build embeddings request")
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call embeddings endpoint")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Errorf("embeddings endpoint status %d", resp.StatusCode)
	}

	var decoded embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decode embeddings response")
	}

	return &decoded, nil
}
