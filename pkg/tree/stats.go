package tree

import (
	"context"
	"fmt"
)

// Stats summarizes a tree's current shape, mainly for the CLI's stats verb
// and for tests that assert red-black invariants hold.
type Stats struct {
	Size        int64
	PageCount   int
	Height      int
	BlackHeight int
	CacheSize   int
}

// Stats walks the whole tree, lazily loading any page not already resident,
// and reports its size, shape, and cache occupancy. It returns an error if
// the black-height invariant doesn't hold, which would indicate a bug
// rather than anything a caller can act on.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bh, height, count, err := e.statsWalk(ctx, e.root)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Size:        e.size,
		PageCount:   count,
		Height:      height,
		BlackHeight: bh,
		CacheSize:   len(e.cache.byRID),
	}, nil
}

func (e *Engine) statsWalk(ctx context.Context, n *node) (blackHeight, height, count int, err error) {
	if n == nil {
		return 0, -1, 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, 0, 0, err
	}
	left, err := e.child(ctx, n, true)
	if err != nil {
		return 0, 0, 0, err
	}
	right, err := e.child(ctx, n, false)
	if err != nil {
		return 0, 0, 0, err
	}
	lbh, lheight, lcount, err := e.statsWalk(ctx, left)
	if err != nil {
		return 0, 0, 0, err
	}
	rbh, rheight, rcount, err := e.statsWalk(ctx, right)
	if err != nil {
		return 0, 0, 0, err
	}
	if lbh != rbh {
		return 0, 0, 0, fmt.Errorf("%w: black height mismatch at %s (%d vs %d)", ErrCorruption, n.selfRID, lbh, rbh)
	}
	blackHeight = lbh
	if n.color == black {
		blackHeight++
	}
	height = lheight
	if rheight > height {
		height = rheight
	}
	height++
	count = 1 + lcount + rcount
	return blackHeight, height, count, nil
}
