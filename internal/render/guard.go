package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"storyreel/internal/logging"
)

const guardRetryDelay = 50 * time.Millisecond

// Recoverer fails renders left behind by a crashed process.
type Recoverer interface {
	FailStuckRenders(ctx context.Context) (int64, error)
}

// Guard is a file lock held shared by every process rendering against one
// database. Stuck rows are only recovered while the lock can be taken
// exclusively, so a render still running elsewhere is never marked failed.
type Guard struct {
	lock   *flock.Flock
	logger *slog.Logger
}

// NewGuard builds a guard over the lock file at path.
func NewGuard(path string, logger *slog.Logger) *Guard {
	return &Guard{lock: flock.New(path), logger: logging.NewComponentLogger(logger, "render")}
}

// Hold recovers stuck renders when this is the only rendering process and
// then holds the guard shared until Release.
func (g *Guard) Hold(ctx context.Context, rec Recoverer) (int64, error) {
	var recovered int64
	exclusive, err := g.lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("acquire render guard: %w", err)
	}
	if exclusive {
		recovered, err = rec.FailStuckRenders(ctx)
		if unlockErr := g.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
		if err != nil {
			return 0, fmt.Errorf("recover stuck renders: %w", err)
		}
	} else {
		g.logger.Debug("stuck render recovery skipped", logging.String("reason", "another process is rendering"))
	}

	ok, err := g.lock.TryRLockContext(ctx, guardRetryDelay)
	if err != nil {
		return recovered, fmt.Errorf("share render guard: %w", err)
	}
	if !ok {
		return recovered, fmt.Errorf("share render guard: %s unavailable", g.lock.Path())
	}
	if recovered > 0 {
		logging.WarnWithContext(g.logger, "interrupted renders marked failed", "stuck_renders_recovered",
			logging.Int64("renders", recovered),
			logging.String(logging.FieldImpact, "affected scenes must be rendered again"),
			logging.String(logging.FieldErrorHint, "re-run the scene video for each failed scene"),
		)
	}
	return recovered, nil
}

// Release drops the shared hold.
func (g *Guard) Release() error {
	return g.lock.Unlock()
}
