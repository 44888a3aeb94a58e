package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tripwise-ai/tripwise/internal/model"
)

// Processor drives parse, hash and chunk for one file's content.
type Processor struct {
	chunker *Chunker
}

func NewProcessor(chunker *Chunker) *Processor {
	return &Processor{chunker: chunker}
}

// Process extracts text from the raw bytes, derives the document identity
// from the sha256 of the extracted text and splits it into chunks. The same
// content always produces the same hash, so re-processing is idempotent at
// the identity level.
func (p *Processor) Process(ctx context.Context, fileName string, raw []byte) (*model.Document, error) {
	parser, fileType, err := ParserFor(fileName)
	if err != nil {
		return nil, err
	}
	text, err := parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fileName, err)
	}
	if text == "" {
		return nil, fmt.Errorf("document %s has no extractable text", fileName)
	}

	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])

	doc := &model.Document{
		Hash: hash,
		Text: text,
		Metadata: model.DocumentMetadata{
			FileName:     fileName,
			FileType:     fileType,
			FileSize:     int64(len(raw)),
			DocumentHash: hash,
			ProcessedAt:  time.Now().UTC(),
		},
	}
	doc.Chunks = p.chunker.Split(hash, text)

	logutil.GetLogger(ctx).Info("document processed",
		zap.String("file_name", fileName),
		zap.String("file_type", fileType),
		zap.String("document_hash", hash),
		zap.Int("chunks", len(doc.Chunks)),
	)
	return doc, nil
}
