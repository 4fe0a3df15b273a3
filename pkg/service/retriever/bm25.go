package retriever

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

// BM25 shape parameters
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// bm25Index scores chunks by term overlap with the query. It is built
// once per chunk set and read concurrently without locking.
type bm25Index struct {
	chunks     []*model.Chunk
	termFreqs  []map[string]int
	docFreqs   map[string]int
	docLengths []int
	totalTerms int
}

func newBM25Index() *bm25Index {
	return &bm25Index{
		docFreqs: make(map[string]int),
	}
}

func (x *bm25Index) add(chunk *model.Chunk) {
	terms := tokenize(chunk.Content)

	freqs := make(map[string]int, len(terms))
	for _, term := range terms {
		freqs[term]++
	}
	for term := range freqs {
		x.docFreqs[term]++
	}

	x.chunks = append(x.chunks, chunk)
	x.termFreqs = append(x.termFreqs, freqs)
	x.docLengths = append(x.docLengths, len(terms))
	x.totalTerms += len(terms)
}

func (x *bm25Index) avgDocLen() float64 {
	if len(x.chunks) == 0 {
		return 0
	}
	return float64(x.totalTerms) / float64(len(x.chunks))
}

// search returns the topK chunks by BM25 score, ordered descending.
// Chunks matching no query term are omitted.
func (x *bm25Index) search(query string, topK int) []scored {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 || len(x.chunks) == 0 {
		return nil
	}

	avgLen := x.avgDocLen()
	scores := make([]float64, len(x.chunks))
	matched := make([]bool, len(x.chunks))

	for _, term := range queryTerms {
		df, ok := x.docFreqs[term]
		if !ok {
			continue
		}
		idf := math.Log((float64(len(x.chunks))-float64(df)+0.5)/(float64(df)+0.5) + 1)

		for i, freqs := range x.termFreqs {
			tf, ok := freqs[term]
			if !ok {
				continue
			}
			docLen := float64(x.docLengths[i])
			norm := float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
			scores[i] += idf * norm
			matched[i] = true
		}
	}

	var results []scored
	for i, chunk := range x.chunks {
		if matched[i] {
			results = append(results, scored{chunk: chunk, score: scores[i]})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// tokenize lowercases latin word runs and expands CJK runs into character
// bigrams, so Chinese text matches without a dictionary segmenter.
func tokenize(text string) []string {
	var tokens []string
	var word strings.Builder
	var cjk []rune

	flushWord := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	flushCJK := func() {
		if len(cjk) == 1 {
			tokens = append(tokens, string(cjk))
		}
		for i := 0; i+1 < len(cjk); i++ {
			tokens = append(tokens, string(cjk[i:i+2]))
		}
		cjk = cjk[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word.WriteRune(unicode.ToLower(r))
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()

	return tokens
}
