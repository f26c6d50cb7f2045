package tree

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gengardb_tree_cache_hits_total",
			Help: "Total number of page lookups satisfied from the in-memory node cache",
		},
	)

	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gengardb_tree_cache_misses_total",
			Help: "Total number of page lookups that required a record store read",
		},
	)

	optimizeEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gengardb_tree_optimize_evictions_total",
			Help: "Total number of pages evicted from memory by Optimize",
		},
	)

	commitFlushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gengardb_tree_commit_flushes_total",
			Help: "Total number of CommitBuffer flush operations",
		},
	)

	commitPagesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gengardb_tree_commit_pages_written_total",
			Help: "Total number of pages written to the record store across all flushes",
		},
	)

	treeSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gengardb_tree_entries",
			Help: "Current number of entries in a tree, labeled by descriptor RID",
		},
		[]string{"descriptor"},
	)
)

func init() {
	prometheus.MustRegister(
		cacheHitsTotal,
		cacheMissesTotal,
		optimizeEvictionsTotal,
		commitFlushesTotal,
		commitPagesWrittenTotal,
		treeSize,
	)
}
