package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
)

// Chunker groups sentences into chunks of at most Size runes, carrying up to
// Overlap runes of trailing sentences into the next chunk. A single sentence
// longer than Size becomes its own chunk.
type Chunker struct {
	Tokenizer Tokenizer
	Size      int
	Overlap   int
}

func New(tok Tokenizer, size, overlap int) *Chunker {
	return &Chunker{Tokenizer: tok, Size: size, Overlap: overlap}
}

func (c *Chunker) Chunk(text string, doc domain.Document) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var (
		chunks []domain.Chunk
		buf    []string
		cum    int
	)
	emit := func() {
		chunks = append(chunks, newChunk(doc, len(chunks), strings.Join(buf, " ")))
	}

	for _, s := range c.Tokenizer.Sentences(text) {
		n := utf8.RuneCountInString(s)
		if cum+n > c.Size && len(buf) > 0 {
			emit()

			overlapLen := 0
			start := len(buf)
			for i := len(buf) - 1; i >= 0; i-- {
				l := utf8.RuneCountInString(buf[i])
				if overlapLen+l >= c.Overlap {
					break
				}
				overlapLen += l
				start = i
			}
			next := make([]string, 0, len(buf)-start+1)
			next = append(next, buf[start:]...)
			buf = append(next, s)
			cum = overlapLen + n
			continue
		}
		buf = append(buf, s)
		cum += n
	}
	if len(buf) > 0 {
		emit()
	}
	return chunks
}

func newChunk(doc domain.Document, idx int, text string) domain.Chunk {
	return domain.Chunk{
		ID:           fmt.Sprintf("%s_%d", doc.DocumentID, idx),
		ChunkText:    text,
		DocumentID:   doc.DocumentID,
		ChunkID:      idx,
		DocumentType: doc.DocumentType,
		CompanyName:  doc.CompanyName,
		PageCount:    doc.PageCount,
	}
}
