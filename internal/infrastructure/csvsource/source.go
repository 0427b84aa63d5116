package csvsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/procure/reconciler/internal/application/ingest"
)

// DirectorySource supplies documents from the CSV files of one input
// directory and archives consumed files into a subdirectory, so an
// interrupted batch can be re-run on what is left.
type DirectorySource struct {
	inputDir   string
	archiveDir string
	logger     *zap.Logger
}

// NewDirectorySource creates a new DirectorySource
func NewDirectorySource(inputDir, archiveDir string, logger *zap.Logger) *DirectorySource {
	return &DirectorySource{
		inputDir:   inputDir,
		archiveDir: archiveDir,
		logger:     logger,
	}
}

// Documents parses every CSV file in the input directory, in name order. A
// file that cannot be parsed is logged and skipped; it never fails the batch.
func (s *DirectorySource) Documents(ctx context.Context) ([]ingest.Document, error) {
	entries, err := os.ReadDir(s.inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", s.inputDir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]ingest.Document, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file, err := os.Open(filepath.Join(s.inputDir, name))
		if err != nil {
			s.logger.Warn("failed to open document", zap.String("file", name), zap.Error(err))
			continue
		}
		doc, err := Parse(name, file)
		_ = file.Close()
		if err != nil {
			s.logger.Warn("failed to parse document", zap.String("file", name), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Consume moves an ingested document's file into the archive directory
func (s *DirectorySource) Consume(_ context.Context, doc ingest.Document) error {
	if err := os.MkdirAll(s.archiveDir, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	src := filepath.Join(s.inputDir, doc.Name)
	dst := filepath.Join(s.archiveDir, doc.Name)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to archive %s: %w", doc.Name, err)
	}
	s.logger.Debug("document archived", zap.String("file", doc.Name))
	return nil
}

var _ ingest.Source = (*DirectorySource)(nil)
