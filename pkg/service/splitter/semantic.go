package splitter

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

// BreakpointPercentile is the percentile of adjacent-sentence embedding
// distances above which a topic boundary is assumed.
const BreakpointPercentile = 82.0

// Semantic splits documents at topic-boundary breakpoints detected via
// embedding-similarity discontinuity between adjacent sentences.
type Semantic struct {
	embedder   interfaces.Embedder
	percentile float64
}

// NewSemantic creates a semantic chunker over the given embedder
func NewSemantic(embedder interfaces.Embedder) *Semantic {
	return &Semantic{
		embedder:   embedder,
		percentile: BreakpointPercentile,
	}
}

// SplitDocuments splits each document at semantic breakpoints, preserving
// the rune offset of every produced chunk within its source document.
func (s *Semantic) SplitDocuments(ctx context.Context, docs []*model.Document) ([]*model.Document, error) {
	var result []*model.Document
	for _, doc := range docs {
		split, err := s.splitDocument(ctx, doc)
		if err != nil {
			return nil, err
		}
		result = append(result, split...)
	}
	return result, nil
}

func (s *Semantic) splitDocument(ctx context.Context, doc *model.Document) ([]*model.Document, error) {
	sentences := splitSentences(doc.Content)
	if len(sentences) < 3 {
		out := cloneWithOffset(doc, doc.Content, 0)
		return []*model.Document{out}, nil
	}

	texts := make([]string, len(sentences))
	for i, sent := range sentences {
		texts[i] = sent.Text
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed sentences", goerr.V("source", doc.Source))
	}
	if len(embeddings) != len(sentences) {
		return nil, goerr.New("embedding count mismatch",
			goerr.V("sentences", len(sentences)), goerr.V("embeddings", len(embeddings)))
	}

	distances := make([]float64, len(sentences)-1)
	for i := 0; i < len(distances); i++ {
		distances[i] = 1 - cosine(embeddings[i], embeddings[i+1])
	}
	threshold := percentile(distances, s.percentile)

	var out []*model.Document
	groupStart := 0
	for i, dist := range distances {
		if dist > threshold {
			out = append(out, s.group(doc, sentences[groupStart:i+1]))
			groupStart = i + 1
		}
	}
	out = append(out, s.group(doc, sentences[groupStart:]))

	return out, nil
}

func (s *Semantic) group(doc *model.Document, sentences []sentence) *model.Document {
	var sb strings.Builder
	for _, sent := range sentences {
		sb.WriteString(sent.Text)
	}
	return cloneWithOffset(doc, sb.String(), sentences[0].Offset)
}

func cloneWithOffset(doc *model.Document, content string, offset int) *model.Document {
	out := model.NewDocument(doc.Source, content)
	for k, v := range doc.Metadata {
		out.Metadata[k] = v
	}
	out.Metadata["start_index"] = strconv.Itoa(offset)
	return out
}

type sentence struct {
	Text   string
	Offset int // rune offset within the source document
}

// splitSentences cuts text after sentence-final punctuation or newlines,
// keeping the delimiter attached to the preceding sentence.
func splitSentences(text string) []sentence {
	runes := []rune(text)
	var sentences []sentence
	start := 0
	for i, r := range runes {
		switch r {
		case '。', '！', '？', '!', '?', '.', '\n':
			seg := string(runes[start : i+1])
			if strings.TrimSpace(seg) != "" {
				sentences = append(sentences, sentence{Text: seg, Offset: start})
			}
			start = i + 1
		}
	}
	if start < len(runes) {
		seg := string(runes[start:])
		if strings.TrimSpace(seg) != "" {
			sentences = append(sentences, sentence{Text: seg, Offset: start})
		}
	}
	return sentences
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// percentile returns the p-th percentile of values using nearest-rank on a
// sorted copy.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
