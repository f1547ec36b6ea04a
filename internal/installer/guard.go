package installer

import "context"

// dirGuard owns a directory for the length of an install. Unless the
// install commits, Release deletes the directory.
type dirGuard struct {
	dir       string
	remove    func(context.Context, string) error
	committed bool
}

func acquireDir(dir string, remove func(context.Context, string) error) *dirGuard {
	return &dirGuard{dir: dir, remove: remove}
}

// Commit keeps the directory.
func (g *dirGuard) Commit() {
	g.committed = true
}

// Release removes the directory unless it was committed. It ignores the
// install's context so a cancelled install still rolls back.
func (g *dirGuard) Release() error {
	if g.committed {
		return nil
	}
	return g.remove(context.Background(), g.dir)
}
