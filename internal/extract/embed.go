package extract

import (
	"context"

	"congresssignal.com/signal/internal/globaltime"
)

// embedChunkSize is how many pending extractions are pushed per log
// cadence.
const embedChunkSize = 50

// EmbedOptions scopes one backfill pass. A zero Limit drains everything
// pending.
type EmbedOptions struct {
	Limit int
}

// EmbedResult reports what one backfill pass did.
type EmbedResult struct {
	Pending int
	Synced  int
	Failed  int
}

// BackfillEmbeddings pushes summarized extractions into the embedding
// index and stamps each one as synced. A failed push leaves its row
// pending for the next pass and does not stop the others.
func (s *Service) BackfillEmbeddings(ctx context.Context, opts EmbedOptions) (EmbedResult, error) {
	ids, err := s.store.ListExtractionsPendingEmbedding(ctx, opts.Limit)
	if err != nil {
		return EmbedResult{}, err
	}

	result := EmbedResult{Pending: len(ids)}
	if len(ids) == 0 {
		s.logger.Info().Msg("no extractions pending embedding")
		return result, nil
	}

	for start := 0; start < len(ids); start += embedChunkSize {
		end := min(start+embedChunkSize, len(ids))
		for _, extractionID := range ids[start:end] {
			if err := s.embedder.GenerateEmbedding(ctx, extractionID); err != nil {
				result.Failed++
				s.logger.Error().
					Err(err).
					Int64("extraction_id", extractionID).
					Msg("embedding push failed")
				continue
			}
			if err := s.store.MarkExtractionEmbeddingSynced(ctx, extractionID, globaltime.UTC()); err != nil {
				return result, err
			}
			result.Synced++
		}
		s.logger.Debug().
			Int("synced", result.Synced).
			Int("failed", result.Failed).
			Int("pending", result.Pending).
			Msg("embedding chunk finished")
	}

	s.logger.Info().
		Int("pending", result.Pending).
		Int("synced", result.Synced).
		Int("failed", result.Failed).
		Msg("embedding backfill finished")
	return result, nil
}
