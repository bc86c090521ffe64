package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
)

// Export builds export-ready results from every live session in s.
func Export(ctx context.Context, s Store, kind Kind) (model.SessionExport, error) {
	sessions, err := s.List(ctx)
	if err != nil {
		return model.SessionExport{}, fmt.Errorf("list sessions: %w", err)
	}

	results := make([]model.SessionResult, 0, len(sessions))
	for _, sess := range sessions {
		results = append(results, model.NewSessionResult(sess))
	}
	return model.SessionExport{
		ExportedAt: time.Now().UTC(),
		Store:      string(kind),
		Count:      len(results),
		Sessions:   results,
	}, nil
}
