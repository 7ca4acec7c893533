// Package parallel provides deterministic fan-out helpers for splitting a
// mini-batch across worker goroutines.
package parallel

import (
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultWorkers returns the number of physical cores, falling back to the
// logical CPU count when cpuid cannot tell.
func DefaultWorkers() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// DefaultConfig returns defaults based on the physical core count.
func DefaultConfig() Config {
	n := DefaultWorkers()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1,
	}
}

// Sequential is a config that always runs on the calling goroutine.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkSize: 1}
}

// Chunks returns the [start, end) ranges that ForChunks hands to each
// worker for n items. The split depends only on n and cfg.
func Chunks(n int, cfg Config) [][2]int {
	if n <= 0 {
		return nil
	}
	workers := cfg.NumWorkers
	if !cfg.Enabled || workers < 1 {
		workers = 1
	}
	minChunk := max(cfg.MinChunkSize, 1)
	chunkSize := max((n+workers-1)/workers, minChunk)

	out := make([][2]int, 0, workers)
	for start := 0; start < n; start += chunkSize {
		out = append(out, [2]int{start, min(start+chunkSize, n)})
	}
	return out
}

// ForChunks calls f(worker, start, end) once per chunk of [0, n), with
// worker numbered from 0 in chunk order. Chunks run concurrently when more
// than one is produced; ForChunks returns once all have finished.
func ForChunks(n int, cfg Config, f func(worker, start, end int)) {
	chunks := Chunks(n, cfg)
	if len(chunks) == 1 {
		f(0, chunks[0][0], chunks[0][1])
		return
	}

	var wg sync.WaitGroup
	for w, c := range chunks {
		wg.Add(1)
		go func(w, s, e int) {
			defer wg.Done()
			f(w, s, e)
		}(w, c[0], c[1])
	}
	wg.Wait()
}
