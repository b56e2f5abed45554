// Package ingestion builds the retrieval index from a local document
// tree. Ingestion is an all-or-nothing replacement of the prior index.
package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fabfab/support-agent/embeddings"
	"github.com/fabfab/support-agent/store"
)

const defaultChunkSize = 800

// ChunkWriter replaces the entire chunk index in one shot.
type ChunkWriter interface {
	ReplaceChunks(ctx context.Context, chunks []store.DocChunk) error
}

type Service struct {
	chunks    ChunkWriter
	embedder  embeddings.Embedder
	logger    *zap.Logger
	chunkSize int
}

func NewService(chunks ChunkWriter, embedder embeddings.Embedder, logger *zap.Logger, chunkSize int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	return &Service{
		chunks:    chunks,
		embedder:  embedder,
		logger:    logger,
		chunkSize: chunkSize,
	}
}

// IngestDirectory walks root recursively for .txt/.md documents, chunks
// and embeds them, then replaces the stored index wholesale. When no
// documents are found the existing index is left untouched.
func (s *Service) IngestDirectory(ctx context.Context, root string) error {
	if s.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}

	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("knowledge directory: %w", err)
	}

	paths, err := textFiles(root)
	if err != nil {
		return fmt.Errorf("walk knowledge directory: %w", err)
	}

	if len(paths) == 0 {
		s.logger.Warn("no support documents found, keeping existing index", zap.String("dir", root))
		return nil
	}

	all := make([]store.DocChunk, 0)
	for _, path := range paths {
		docChunks, err := s.chunkFile(ctx, root, path)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		all = append(all, docChunks...)
	}

	if err := s.chunks.ReplaceChunks(ctx, all); err != nil {
		return fmt.Errorf("replace chunk index: %w", err)
	}

	s.logger.Info("support docs ingested",
		zap.Int("documents", len(paths)),
		zap.Int("chunks", len(all)))
	return nil
}

func (s *Service) chunkFile(ctx context.Context, root, path string) ([]store.DocChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	relPath, relErr := filepath.Rel(root, path)
	if relErr != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))

	pieces := ChunkText(string(data), s.chunkSize)
	if len(pieces) == 0 {
		s.logger.Info("skipping empty document", zap.String("path", relPath))
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, pieces)
	if err != nil {
		return nil, fmt.Errorf("generate embeddings: %w", err)
	}
	if len(vectors) != len(pieces) {
		return nil, fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(pieces), len(vectors))
	}

	docChunks := make([]store.DocChunk, len(pieces))
	for idx, text := range pieces {
		docChunks[idx] = store.DocChunk{
			DocID:      relPath,
			ChunkIndex: idx,
			Title:      title,
			Content:    text,
			Embedding:  vectors[idx],
		}
	}

	return docChunks, nil
}

func textFiles(root string) ([]string, error) {
	paths := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".txt", ".md":
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// ChunkText splits text into ordered chunks by accumulating lines until
// adding the next line would exceed the character budget. Lines are
// never split.
func ChunkText(text string, maxChars int) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	chunks := make([]string, 0)
	current := make([]string, 0)
	currentLen := 0

	for _, line := range lines {
		if currentLen+len(line)+1 > maxChars && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = current[:0]
			currentLen = 0
		}
		current = append(current, line)
		currentLen += len(line) + 1
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}

	if len(chunks) == 1 && strings.TrimSpace(chunks[0]) == "" {
		return nil
	}
	return chunks
}
