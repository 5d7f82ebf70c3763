package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Encoder is the part of Client the document helpers need.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float64, error)
}

// Paragraphs splits text into non-empty lines and drops those shorter than minWords.
// When every paragraph is short the whole trimmed text is returned as one paragraph.
func Paragraphs(text string, minWords int) []string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if trimmed == "" {
		return nil
	}

	var out []string
	for _, block := range strings.Split(trimmed, "\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if len(strings.Fields(block)) < minWords {
			continue
		}
		out = append(out, block)
	}
	if len(out) == 0 {
		return []string{trimmed}
	}
	return out
}

// Document embeds every long-enough paragraph and returns their mean vector.
func Document(ctx context.Context, encoder Encoder, text string, minWords int) ([]float64, error) {
	paragraphs := Paragraphs(text, minWords)
	if len(paragraphs) == 0 {
		return nil, ErrEmptyInput
	}

	vectors, err := encoder.Encode(ctx, paragraphs)
	if err != nil {
		return nil, err
	}
	return Mean(vectors)
}

// Mean averages equally sized vectors.
func Mean(vectors [][]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyInput
	}
	dims := len(vectors[0])
	out := make([]float64, dims)
	for i, vector := range vectors {
		if len(vector) != dims {
			return nil, fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(vector), dims)
		}
		for j, value := range vector {
			out[j] += value
		}
	}
	for j := range out {
		out[j] /= float64(len(vectors))
	}
	return out, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is empty,
// zero-length or the dimensions differ.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
