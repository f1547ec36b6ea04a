package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/siteext-labs/siteext/internal/ident"
)

const lockRetryDelay = 100 * time.Millisecond

// withExtensionLock runs fn while holding the advisory lock for id, so two
// processes never install or remove the same extension at once.
func withExtensionLock(ctx context.Context, root, id string, fn func() error) error {
	dir := filepath.Join(root, ".locks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, ident.Fold(id)+".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("waiting for lock on %s: %w", id, err)
	}
	if !locked {
		return fmt.Errorf("could not lock %s", id)
	}
	defer lock.Unlock()

	return fn()
}
