package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/RepRech/internal/logging"
)

// Toggle flips the resolved flag of the row with the given key.
// It returns ErrRowNotFound when no such row exists.
func (s *Service) Toggle(ctx context.Context, key string) (*ToggleResult, error) {
	resolved, err := s.store.Toggle(ctx, key)
	if err != nil {
		return nil, err
	}
	s.summary.invalidate()

	logging.FromContext(ctx).Debug("row toggled", "id", key, "resolved", resolved)
	return &ToggleResult{ID: key, Resolved: resolved}, nil
}

// ClearResolved deletes every row marked resolved and returns how many
// were removed.
func (s *Service) ClearResolved(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteResolved(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear resolved: %w", err)
	}
	if n > 0 {
		s.summary.invalidate()
	}

	logging.FromContext(ctx).Info("resolved rows cleared", "deleted", n)
	return n, nil
}
