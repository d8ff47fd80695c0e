package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"realm-tracker/internal/constants"
	"realm-tracker/internal/domain"
	"realm-tracker/internal/parser"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type ImportService struct {
	ingest      *IngestionService
	parser      *parser.Parser
	fileTimeout time.Duration
	logger      zerolog.Logger
}

func NewImportService(ingest *IngestionService, p *parser.Parser, logger zerolog.Logger) *ImportService {
	return &ImportService{
		ingest:      ingest,
		parser:      p,
		fileTimeout: constants.IngestTimeout,
		logger:      logger,
	}
}

type ImportResult struct {
	Path    string
	Summary *domain.IngestionSummary
	Err     error
}

type parsedFile struct {
	path   string
	upload Upload
	roster *domain.ParsedRoster
	err    error
}

// ImportFiles parses the given exports concurrently, then ingests them one at a
// time in export-timestamp order so change detection sees history in sequence.
// Each file is stored under its own timeout. Per-file failures, timeouts
// included, are reported in the results; only cancellation of ctx aborts the run.
func (s *ImportService) ImportFiles(ctx context.Context, paths []string, seasonID string, concurrency int) ([]ImportResult, error) {
	if concurrency <= 0 {
		concurrency = constants.DefaultImportConcurrency
	}

	parsed := make([]parsedFile, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			parsed[i] = s.parseFile(path, seasonID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(parsed, func(a, b int) bool {
		ra, rb := parsed[a].roster, parsed[b].roster
		if ra == nil || rb == nil {
			return ra == nil && rb != nil
		}
		return ra.FileInfo.Timestamp.Before(rb.FileInfo.Timestamp)
	})

	results := make([]ImportResult, 0, len(parsed))
	for _, pf := range parsed {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, s.storeFile(ctx, pf))
	}

	return results, nil
}

func (s *ImportService) storeFile(ctx context.Context, pf parsedFile) ImportResult {
	ctx, cancel := context.WithTimeout(ctx, s.fileTimeout)
	defer cancel()

	if pf.err != nil {
		s.logger.Warn().Err(pf.err).Str("path", pf.path).Msg("export rejected")
		if pf.upload.Data != nil {
			if err := s.ingest.RecordRejected(ctx, pf.upload, pf.err); err != nil {
				s.logger.Warn().Err(err).Str("path", pf.path).Msg("failed to record rejected export")
			}
		}
		return ImportResult{Path: pf.path, Err: pf.err}
	}

	summary, err := s.ingest.IngestParsed(ctx, pf.upload, pf.roster)
	return ImportResult{Path: pf.path, Summary: summary, Err: err}
}

func (s *ImportService) parseFile(path, seasonID string) parsedFile {
	data, err := os.ReadFile(path)
	if err != nil {
		return parsedFile{path: path, err: fmt.Errorf("failed to read %s: %w", path, err)}
	}

	upload := Upload{Filename: filepath.Base(path), Data: data, SeasonID: seasonID}
	roster, err := s.parser.Parse(upload.Filename, bytes.NewReader(data))
	return parsedFile{path: path, upload: upload, roster: roster, err: err}
}

// CollectExports expands directories into the export files they directly
// contain; plain file arguments are kept as given.
func CollectExports(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !isSpreadsheet(e.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(arg, e.Name()))
		}
	}
	return paths, nil
}

func isSpreadsheet(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".xlsx" || ext == ".xls"
}
