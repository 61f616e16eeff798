// Package chunk splits note content into retrievable chunks along
// semantic boundaries. Paragraphs are the chunking unit: headings
// attach to the paragraph that follows them, fenced code blocks stay
// whole, and oversized paragraphs are split at sentence boundaries so
// a chunk never breaks mid-sentence where avoidable.
package chunk

import (
	"regexp"
	"strings"
)

// Splitter splits note text into chunks bounded by a maximum length.
type Splitter struct {
	maxChars int
}

var (
	// Matches markdown headings: # Title, ## Title, etc.
	headingPattern = regexp.MustCompile(`^#{1,6}\s+\S`)

	// Matches sentence-ending punctuation followed by whitespace.
	sentenceEndPattern = regexp.MustCompile(`([.!?])\s+`)
)

// NewSplitter creates a splitter with the given maximum chunk length
// in characters (runes).
func NewSplitter(maxChars int) *Splitter {
	return &Splitter{maxChars: maxChars}
}

// Split breaks content into ordered chunks. The returned slice index is
// the chunk's 0-based position within the note. Empty and
// whitespace-only content yields no chunks.
func (s *Splitter) Split(content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	paragraphs := splitParagraphs(content)

	var chunks []string
	var pendingHeading string

	for _, para := range paragraphs {
		if headingPattern.MatchString(para) && !strings.Contains(para, "\n") {
			// A bare heading is context for the next paragraph, not a
			// chunk of its own.
			if pendingHeading != "" {
				chunks = append(chunks, pendingHeading)
			}
			pendingHeading = para
			continue
		}

		if pendingHeading != "" {
			para = pendingHeading + "\n\n" + para
			pendingHeading = ""
		}

		if len([]rune(para)) <= s.maxChars {
			chunks = append(chunks, para)
			continue
		}
		chunks = append(chunks, s.splitOversized(para)...)
	}

	// A trailing heading with no body still carries meaning.
	if pendingHeading != "" {
		chunks = append(chunks, pendingHeading)
	}

	return chunks
}

// splitParagraphs splits content on blank lines, keeping fenced code
// blocks whole even when they contain blank lines.
func splitParagraphs(content string) []string {
	parts := strings.Split(content, "\n\n")

	var paragraphs []string
	var fenced strings.Builder
	inFence := false

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)

		if inFence {
			fenced.WriteString("\n\n")
			fenced.WriteString(trimmed)
			if strings.Count(trimmed, "```")%2 == 1 {
				paragraphs = append(paragraphs, fenced.String())
				fenced.Reset()
				inFence = false
			}
			continue
		}

		if trimmed == "" {
			continue
		}

		if strings.Count(trimmed, "```")%2 == 1 {
			inFence = true
			fenced.WriteString(trimmed)
			continue
		}

		paragraphs = append(paragraphs, trimmed)
	}

	if inFence {
		paragraphs = append(paragraphs, fenced.String())
	}

	return paragraphs
}

// splitOversized splits a paragraph longer than maxChars at sentence
// boundaries, packing sentences greedily. A single sentence longer
// than maxChars is hard-split on rune boundaries as a last resort.
func (s *Splitter) splitOversized(para string) []string {
	sentences := splitSentences(para)

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentLen = 0
		}
	}

	for _, sentence := range sentences {
		runes := []rune(sentence)
		if len(runes) > s.maxChars {
			flush()
			for start := 0; start < len(runes); start += s.maxChars {
				end := start + s.maxChars
				if end > len(runes) {
					end = len(runes)
				}
				chunks = append(chunks, strings.TrimSpace(string(runes[start:end])))
			}
			continue
		}

		if currentLen > 0 && currentLen+1+len(runes) > s.maxChars {
			flush()
		}
		if currentLen > 0 {
			current.WriteString(" ")
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += len(runes)
	}
	flush()

	return chunks
}

// splitSentences splits text after sentence-ending punctuation.
func splitSentences(text string) []string {
	indexes := sentenceEndPattern.FindAllStringSubmatchIndex(text, -1)
	if len(indexes) == 0 {
		return []string{text}
	}

	var sentences []string
	start := 0
	for _, loc := range indexes {
		// loc[3] is the end of the punctuation group.
		end := loc[3]
		sentence := strings.TrimSpace(text[start:end])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = loc[1]
	}

	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}
