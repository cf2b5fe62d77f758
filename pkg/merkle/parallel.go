package merkle

import (
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

const defaultParallelThreshold = 1024

// BuildOption configures tree construction.
type BuildOption func(*buildConfig)

type buildConfig struct {
	workers   int
	threshold int
}

// WithWorkers bounds the number of goroutines used to hash leaves and tree levels.
// A value of 1 disables parallel hashing.
func WithWorkers(n int) BuildOption {
	return func(c *buildConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithParallelThreshold sets the minimum number of hashes in a batch (the leaves, or
// one tree level) before the work is split across workers.
func WithParallelThreshold(n int) BuildOption {
	return func(c *buildConfig) {
		if n > 0 {
			c.threshold = n
		}
	}
}

func newBuildConfig(opts []BuildOption) *buildConfig {
	cfg := &buildConfig{
		workers:   runtime.GOMAXPROCS(0),
		threshold: defaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// parallelFor runs fn for every i in [lo, hi). Work is split into contiguous chunks
// when the range is large enough; fn must only write to state owned by index i.
func (c *buildConfig) parallelFor(lo, hi int, fn func(i int) error) error {
	size := hi - lo
	if size <= 0 {
		return nil
	}
	if c.workers <= 1 || size < c.threshold {
		for i := lo; i < hi; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	chunk := (size + c.workers - 1) / c.workers
	var g errgroup.Group
	g.SetLimit(c.workers)
	for start := lo; start < hi; start += chunk {
		start := start
		end := start + chunk
		if end > hi {
			end = hi
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// hashInternal fills the internal nodes (indices 0..leaves-2) bottom-up, one depth at a
// time. Nodes of the same depth only depend on deeper nodes, so each depth is one
// parallel pass.
func (c *buildConfig) hashInternal(nodes []common.Hash, leaves int) error {
	lastInternal := leaves - 2
	if lastInternal < 0 {
		return nil
	}

	depth := 0
	for (1<<(depth+1))-1 <= lastInternal {
		depth++
	}

	for d := depth; d >= 0; d-- {
		lo := (1 << d) - 1
		hi := (1 << (d + 1)) - 1
		if hi > lastInternal+1 {
			hi = lastInternal + 1
		}
		err := c.parallelFor(lo, hi, func(i int) error {
			nodes[i] = HashNode(nodes[leftChild(i)], nodes[rightChild(i)])
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
