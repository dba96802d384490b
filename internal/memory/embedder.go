package memory

import (
	"context"
	"hash/fnv"
	"math"

	chromem "github.com/philippgille/chromem-go"
)

// Embedder converts text into a vector for similarity search. Embedding
// computation is an injected capability; the memory subsystem never inspects
// vectors beyond handing them to the semantic store.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// LocalEmbedder generates deterministic embeddings from a text hash. It gives
// stable, keyless behavior for local development and tests. Similar texts do
// not get similar vectors; only exact matches align.
type LocalEmbedder struct {
	dimensions int
}

func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{dimensions: 384}
}

func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, e.dimensions)
	for i := range vec {
		// LCG seeded by the text hash keeps output deterministic per text.
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	normalize(vec)
	return vec, nil
}

func (e *LocalEmbedder) Dimensions() int { return e.dimensions }

// FuncEmbedder adapts a chromem-go embedding function into an Embedder, so a
// hosted model (for example OpenAI's) can back the semantic store.
type FuncEmbedder struct {
	fn   chromem.EmbeddingFunc
	dims int
}

func NewFuncEmbedder(fn chromem.EmbeddingFunc, dims int) *FuncEmbedder {
	return &FuncEmbedder{fn: fn, dims: dims}
}

// NewOpenAIEmbedder returns an embedder backed by OpenAI's small embedding
// model through chromem-go's embedding function.
func NewOpenAIEmbedder(apiKey string) *FuncEmbedder {
	return NewFuncEmbedder(chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI3Small), 1536)
}

func (e *FuncEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.fn(ctx, text)
}

func (e *FuncEmbedder) Dimensions() int { return e.dims }

func normalize(vec []float32) {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
}
