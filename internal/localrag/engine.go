package localrag

import (
	"math"
	"sort"
	"strings"

	"am-client/internal/docstore"
)

// Fixed replies for the two terminal cases. These are answers, not errors.
const (
	AnswerNoData  = "I don't have any information available offline right now. Please try again once the connection is restored."
	AnswerNoMatch = "I couldn't find relevant information for your question in the documents available offline."
)

const (
	scoreThreshold     = 0.1
	maxSources         = 3
	maxAnswerSentences = 3
	snippetLength      = 200
	excerptLength      = 300
)

// Source is one document backing an answer.
type Source struct {
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

// Result is the engine's reply to a query. The engine never fails; every
// input maps to a Result.
type Result struct {
	Answer   string
	Sources  []Source
	TopScore float64
}

type indexedDocument struct {
	id      string
	title   string
	content string
	tokens  []string
	vector  map[string]float64
	norm    float64
}

// Engine answers queries over an in-memory TF-IDF index. It is purely
// computational; callers serialize access.
type Engine struct {
	docs    []indexedDocument
	idf     map[string]float64
	indexed bool
}

func New() *Engine {
	return &Engine{}
}

// Index rebuilds the whole index from docs. Prior state is discarded first,
// so indexing is all-or-nothing: an empty corpus leaves the engine
// unindexed rather than indexed-but-empty.
func (e *Engine) Index(docs []docstore.ReferenceDocument) {
	e.Reset()
	if len(docs) == 0 {
		return
	}

	tokenized := make([][]string, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		tokens := Tokenize(doc.Title + " " + doc.Content)
		tokenized[i] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	// Smoothed idf stays positive even for terms present in every document.
	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((n+1)/(float64(count)+1)) + 1
	}

	e.docs = make([]indexedDocument, len(docs))
	for i, doc := range docs {
		vec := tfidfVector(tokenized[i], idf)
		e.docs[i] = indexedDocument{
			id:      doc.ID,
			title:   doc.Title,
			content: doc.Content,
			tokens:  tokenized[i],
			vector:  vec,
			norm:    vectorNorm(vec),
		}
	}
	e.idf = idf
	e.indexed = true
}

// IsIndexed reports whether a non-empty corpus has been indexed.
func (e *Engine) IsIndexed() bool {
	return e.indexed
}

// Reset discards all index state.
func (e *Engine) Reset() {
	e.docs = nil
	e.idf = nil
	e.indexed = false
}

// Ask ranks the corpus against query by cosine similarity and extracts an
// answer from the best-matching document.
func (e *Engine) Ask(query string) Result {
	if !e.indexed || len(e.docs) == 0 {
		return Result{Answer: AnswerNoData}
	}

	queryTokens := Tokenize(query)
	queryVec := tfidfVector(queryTokens, e.idf)
	queryNorm := vectorNorm(queryVec)

	order := make([]int, len(e.docs))
	scores := make([]float64, len(e.docs))
	best := 0.0
	for i, doc := range e.docs {
		order[i] = i
		scores[i] = cosine(queryVec, queryNorm, doc.vector, doc.norm)
		if scores[i] > best {
			best = scores[i]
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	var candidates []int
	for _, i := range order {
		if len(candidates) == maxSources {
			break
		}
		if scores[i] > scoreThreshold {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		// Report the best raw score even when nothing cleared the bar, so
		// callers can observe "searched but found nothing good".
		return Result{Answer: AnswerNoMatch, TopScore: best}
	}

	top := e.docs[candidates[0]]
	sources := make([]Source, len(candidates))
	for i, idx := range candidates {
		sources[i] = Source{
			Title:     e.docs[idx].title,
			Snippet:   prefix(e.docs[idx].content, snippetLength),
			Relevance: scores[idx],
		}
	}

	return Result{
		Answer:   extractAnswer(top.content, queryTokens),
		Sources:  sources,
		TopScore: scores[candidates[0]],
	}
}

// tfidfVector builds a sparse max-normalized TF-IDF vector. Terms missing
// from the idf table (query terms unseen in the corpus) weigh 1.
func tfidfVector(tokens []string, idf map[string]float64) map[string]float64 {
	if len(tokens) == 0 {
		return map[string]float64{}
	}
	counts := make(map[string]int, len(tokens))
	maxCount := 0
	for _, t := range tokens {
		counts[t]++
		if counts[t] > maxCount {
			maxCount = counts[t]
		}
	}
	vec := make(map[string]float64, len(counts))
	for term, count := range counts {
		weight, ok := idf[term]
		if !ok {
			weight = 1
		}
		vec[term] = float64(count) / float64(maxCount) * weight
	}
	return vec
}

func vectorNorm(vec map[string]float64) float64 {
	sum := 0.0
	for _, w := range vec {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// cosine is 0 when either vector has zero norm, never NaN.
func cosine(a map[string]float64, aNorm float64, b map[string]float64, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	dot := 0.0
	for term, w := range a {
		dot += w * b[term]
	}
	return dot / (aNorm * bNorm)
}

// extractAnswer picks the sentences sharing the most tokens with the query.
// With no overlapping sentence at all, it falls back to the document's
// opening excerpt.
func extractAnswer(content string, queryTokens []string) string {
	querySet := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		querySet[t] = struct{}{}
	}

	sentences := splitSentences(content)
	type scored struct {
		text    string
		overlap int
	}
	var kept []scored
	for _, sentence := range sentences {
		overlap := 0
		seen := make(map[string]struct{})
		for _, t := range Tokenize(sentence) {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if _, ok := querySet[t]; ok {
				overlap++
			}
		}
		if overlap > 0 {
			kept = append(kept, scored{text: sentence, overlap: overlap})
		}
	}

	if len(kept) == 0 {
		return prefix(content, excerptLength) + "..."
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].overlap > kept[j].overlap
	})
	if len(kept) > maxAnswerSentences {
		kept = kept[:maxAnswerSentences]
	}
	parts := make([]string, len(kept))
	for i, s := range kept {
		parts[i] = s.text
	}
	return strings.Join(parts, ". ") + "."
}

// splitSentences breaks text on terminal punctuation.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return sentences
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
