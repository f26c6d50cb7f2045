package tree

import (
	"sort"
	"sync"

	"gengardb/pkg/rid"
)

// Comparator orders two materialized keys, following the usual
// negative/zero/positive convention.
type Comparator func(a, b any) int

// nodeCache holds every page currently materialized in memory, plus a
// bounded set of "entry points": hot pages promoted on load and
// protected from optimize's eviction pass, sorted by representative key
// purely for insertion/lookup bookkeeping.
type nodeCache struct {
	mu sync.Mutex

	byRID map[rid.RID]*node
	// entryPoints is sorted ascending by representative key. Capped at
	// maxEntryPoints; once full, inserting a new entry point evicts the
	// least recently touched one.
	entryPoints    []*node
	lastTouched    map[*node]uint64
	clock          uint64
	maxEntryPoints int
	cmp            Comparator
}

func newNodeCache(maxEntryPoints int, cmp Comparator) *nodeCache {
	return &nodeCache{
		byRID:          make(map[rid.RID]*node),
		lastTouched:    make(map[*node]uint64),
		maxEntryPoints: maxEntryPoints,
		cmp:            cmp,
	}
}

func (c *nodeCache) get(r rid.RID) (*node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.byRID[r]
	return n, ok
}

func (c *nodeCache) put(n *node) {
	if !n.selfRID.IsValid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byRID[n.selfRID] = n
}

func (c *nodeCache) forget(r rid.RID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.byRID[r]
	delete(c.byRID, r)
	if !ok {
		return
	}
	for i, ep := range c.entryPoints {
		if ep == n {
			c.entryPoints = append(c.entryPoints[:i], c.entryPoints[i+1:]...)
			break
		}
	}
	delete(c.lastTouched, n)
}

// bestEntryPoint returns the entry point with the largest representative
// key not greater than key, the best available descent shortcut for a
// lookup of key. Returns nil if there are no entry points, or key is
// smaller than every one of them.
func (c *nodeCache) bestEntryPoint(key any) *node {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entryPoints) == 0 {
		return nil
	}
	// A split or insert can change an entry point's first key after it was
	// placed, so restore the order before searching.
	sort.SliceStable(c.entryPoints, func(i, j int) bool {
		a, _ := c.entryPoints[i].repKey()
		b, _ := c.entryPoints[j].repKey()
		return c.cmp(a, b) < 0
	})
	idx := sort.Search(len(c.entryPoints), func(i int) bool {
		k, _ := c.entryPoints[i].repKey()
		return c.cmp(k, key) > 0
	})
	if idx == 0 {
		return nil
	}
	return c.entryPoints[idx-1]
}

func (c *nodeCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byRID = make(map[rid.RID]*node)
	c.entryPoints = nil
	c.lastTouched = make(map[*node]uint64)
	c.clock = 0
}

// considerEntryPoint opportunistically promotes n to an entry point. Called
// after a fresh load from the store; pages created by a split carry
// provisional RIDs and are never promoted. Once the cap is hit the
// least-recently-touched entry point is evicted.
func (c *nodeCache) considerEntryPoint(n *node) {
	if c.maxEntryPoints <= 0 || !n.selfRID.IsValid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ep := range c.entryPoints {
		if ep == n {
			c.touchLocked(n)
			return
		}
	}

	key, err := n.repKey()
	if err != nil {
		return
	}
	idx := sort.Search(len(c.entryPoints), func(i int) bool {
		epKey, _ := c.entryPoints[i].repKey()
		return c.cmp(epKey, key) >= 0
	})
	c.entryPoints = append(c.entryPoints, nil)
	copy(c.entryPoints[idx+1:], c.entryPoints[idx:])
	c.entryPoints[idx] = n
	c.touchLocked(n)

	if len(c.entryPoints) > c.maxEntryPoints {
		c.evictOneLocked()
	}
}

func (c *nodeCache) touchLocked(n *node) {
	c.clock++
	c.lastTouched[n] = c.clock
}

func (c *nodeCache) evictOneLocked() {
	var (
		worst    *node
		worstIdx int
		worstAt  uint64 = ^uint64(0)
	)
	for i, ep := range c.entryPoints {
		at := c.lastTouched[ep]
		if at < worstAt {
			worst, worstIdx, worstAt = ep, i, at
		}
	}
	if worst == nil {
		return
	}
	c.entryPoints = append(c.entryPoints[:worstIdx], c.entryPoints[worstIdx+1:]...)
	delete(c.lastTouched, worst)
}

// touch refreshes n's recency if it is currently an entry point, so a live
// descent through it protects it from the next eviction round. A no-op for
// nodes that never got promoted.
func (c *nodeCache) touch(n *node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lastTouched[n]; ok {
		c.touchLocked(n)
	}
}

// optimize walks the in-memory tree from root and evicts clean, non-entry-
// point pages deeper than maxDepth, freeing them for GC and forcing a
// re-load through their parent's stored RID on next descent. It returns the
// number of pages evicted.
func optimize(root *node, cache *nodeCache, maxDepth int) int {
	if root == nil || maxDepth < 0 {
		return 0
	}
	evicted := 0
	var walk func(n *node, depth int)
	walk = func(n *node, depth int) {
		if n == nil {
			return
		}
		if n.left != nil {
			child := n.left
			if depth >= maxDepth && evictable(child, cache) {
				n.left = nil
				cache.forget(child.selfRID)
				evicted++
			} else {
				walk(child, depth+1)
			}
		}
		if n.right != nil {
			child := n.right
			if depth >= maxDepth && evictable(child, cache) {
				n.right = nil
				cache.forget(child.selfRID)
				evicted++
			} else {
				walk(child, depth+1)
			}
		}
	}
	walk(root, 0)
	optimizeEvictionsTotal.Add(float64(evicted))
	return evicted
}

func evictable(n *node, cache *nodeCache) bool {
	if n.dirty || !n.selfRID.IsValid() {
		return false
	}
	for _, ep := range cache.entryPoints {
		if ep == n {
			return false
		}
	}
	return n.left == nil && n.right == nil
}
