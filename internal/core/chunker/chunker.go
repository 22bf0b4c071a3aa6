// Package chunker splits normalized text into bounded passages for embedding.
package chunker

import (
	"strings"
	"unicode"
)

// wordMargin converts a token budget into a word budget for fixed-size
// chunking: tokens != words, so leave headroom.
const wordMargin = 0.75

// Strategy selects how text is split into chunks.
type Strategy string

const (
	// StrategyWords packs a fixed number of words per chunk.
	StrategyWords Strategy = "words"
	// StrategyParagraph accumulates whole paragraphs up to the token budget.
	StrategyParagraph Strategy = "paragraph"
	// StrategySentence accumulates whole sentences up to the token budget.
	StrategySentence Strategy = "sentence"
)

// Metadata describes one chunk's place within its parent document.
type Metadata struct {
	Source      string `json:"source"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
	WordCount   int    `json:"wordCount"`
}

// Chunk is the shared output shape of all strategies.
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Chunker splits text using one configured strategy.
type Chunker struct {
	strategy  Strategy
	maxTokens int
}

// New builds a Chunker. Unknown strategies fall back to paragraph splitting.
func New(strategy Strategy, maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	switch strategy {
	case StrategyWords, StrategyParagraph, StrategySentence:
	default:
		strategy = StrategyParagraph
	}
	return &Chunker{strategy: strategy, maxTokens: maxTokens}
}

// Split chunks text and stamps final metadata. Empty or whitespace-only
// candidates are dropped; indices are contiguous from 0 and TotalChunks equals
// the final count (stamped in a second pass, since a chunk cannot know the
// total while being emitted).
func (c *Chunker) Split(source, text string) []Chunk {
	var chunks []Chunk
	switch c.strategy {
	case StrategyWords:
		chunks = splitByWords(text, c.maxTokens)
	case StrategySentence:
		chunks = accumulate(splitSentences(text), " ", c.maxTokens)
	default:
		chunks = accumulate(splitParagraphs(text), "\n\n", c.maxTokens)
	}
	return finalize(source, chunks)
}

// splitByWords packs words into fixed-size chunks of maxTokens*wordMargin words.
func splitByWords(text string, maxTokens int) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	budget := int(float64(maxTokens) * wordMargin)
	if budget < 1 {
		budget = 1
	}

	var chunks []Chunk
	for start := 0; start < len(words); start += budget {
		end := start + budget
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{Text: strings.Join(words[start:end], " ")})
	}
	return chunks
}

// accumulate gathers units into a buffer, flushing when the next unit would
// push a non-empty buffer past the budget. A single unit exceeding the budget
// on its own is emitted as one oversized chunk, never split further; callers
// must tolerate the occasional over-budget passage.
func accumulate(units []string, sep string, maxTokens int) []Chunk {
	var (
		chunks []Chunk
		buf    []string
		bufLen int
	)

	flush := func() {
		if len(buf) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(buf, sep))
		if text != "" {
			chunks = append(chunks, Chunk{Text: text})
		}
		buf = buf[:0]
		bufLen = 0
	}

	for _, unit := range units {
		unit = strings.TrimSpace(unit)
		if unit == "" {
			continue
		}
		n := len(strings.Fields(unit))
		if bufLen > 0 && bufLen+n > maxTokens {
			flush()
		}
		buf = append(buf, unit)
		bufLen += n
	}
	flush()

	return chunks
}

// finalize stamps positions, word counts and the total across the whole set.
func finalize(source string, chunks []Chunk) []Chunk {
	total := len(chunks)
	for i := range chunks {
		chunks[i].Metadata = Metadata{
			Source:      source,
			ChunkIndex:  i,
			TotalChunks: total,
			WordCount:   len(strings.Fields(chunks[i].Text)),
		}
	}
	return chunks
}

func splitParagraphs(text string) []string {
	return strings.Split(text, "\n\n")
}

// splitSentences breaks text after terminal punctuation followed by
// whitespace. Deliberately simple; abbreviation-aware splitting is not worth
// the complexity for embedding-sized passages.
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '.' || r == '!' || r == '?' {
			// consume any run of terminal punctuation
			for i+1 < len(runes) && (runes[i+1] == '.' || runes[i+1] == '!' || runes[i+1] == '?') {
				i++
			}
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				sentences = append(sentences, string(runes[start:i+1]))
				start = i + 1
			}
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}
