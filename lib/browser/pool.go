package browser

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many browser sessions exist at once. Sessions are
// expensive, so address pipelines queue here instead of opening tabs
// unchecked.
type Pool struct {
	launcher Launcher
	sem      *semaphore.Weighted
}

func NewPool(launcher Launcher, size int64) *Pool {
	return &Pool{
		launcher: launcher,
		sem:      semaphore.NewWeighted(size),
	}
}

// Acquire blocks until a slot frees up, then opens a session. The
// returned release func closes the session and frees the slot; it is
// safe to call exactly once on any exit path.
func (p *Pool) Acquire(ctx context.Context) (Session, func(), error) {
	err := p.sem.Acquire(ctx, 1)
	if err != nil {
		return nil, nil, err
	}

	session, err := p.launcher.NewSession()
	if err != nil {
		p.sem.Release(1)
		return nil, nil, err
	}

	release := func() {
		session.Close()
		p.sem.Release(1)
	}
	return session, release, nil
}

func (p *Pool) Close() {
	p.launcher.Close()
}
