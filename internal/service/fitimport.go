package service

import (
	"context"
	"fmt"

	"runlytics/internal/fitfile"
)

// ImportResult summarizes a batch of FIT files
type ImportResult struct {
	Stored     int
	Skipped    int
	Backfilled int
	Errors     []error
}

// ImportFITFiles decodes and ingests each path. Non-run activities are
// skipped and per-file failures are collected, not returned.
func (s *IngestService) ImportFITFiles(ctx context.Context, paths []string) *ImportResult {
	result := &ImportResult{}
	for _, path := range paths {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err())
			return result
		}

		a, laps, err := fitfile.DecodeFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if a.Type != "Run" {
			s.logger.Debug("skipping non-run fit file", "path", path, "type", a.Type)
			result.Skipped++
			continue
		}

		ingested, err := s.Ingest(ctx, a, laps)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
			continue
		}
		result.Stored++
		if ingested.Backfill {
			result.Backfilled++
		}
	}
	return result
}
