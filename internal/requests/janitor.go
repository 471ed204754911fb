package requests

import (
	"context"
	"time"
)

// DefaultJanitorInterval is how often RunArchiveJanitor re-applies the
// archive cap.
const DefaultJanitorInterval = 5 * time.Minute

// RunArchiveJanitor trims the archive on every tick until ctx is done. It
// catches up on trims that failed right after an acceptance.
func (s *Service) RunArchiveJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.trimArchive(ctx)
		}
	}
}
