// perf_counters.go - Process-wide performance counters

/*
PerfCounters is the single-owner structure the spec calls for in section 9
("model it as a single-owner structure with an atomic snapshot+reset
primitive, not as scattered global variables"). Every queue/flush/cache/
wait path bumps one of these counters; the cost on hot paths is one atomic
add, grounded on the teacher's extensive use of sync/atomic for hot-path
counters and lock-free flags (machine_bus.go's videoStatusReader fast path,
video_backend_ebiten.go's resetInProgress atomic.Bool).
*/

package main

import "sync/atomic"

// PerfCounters holds one atomic.Uint64 per metric named in spec section 3.
type PerfCounters struct {
	QueuedColumns    atomic.Uint64
	QueuedSpans      atomic.Uint64
	FlushCount       atomic.Uint64
	MidFrameFlushes  atomic.Uint64
	MaxBatchSize     atomic.Uint64
	AtlasUploadBytes atomic.Uint64
	CommandUploadBytes atomic.Uint64

	CacheLookups      atomic.Uint64
	CacheHits         atomic.Uint64
	CacheMisses       atomic.Uint64
	CacheFailedInserts atomic.Uint64
	CacheWraps        atomic.Uint64
	CacheEntries      atomic.Uint64

	PLWaitNanos       atomic.Uint64
	PresentScaleNanos atomic.Uint64
}

// PerfSnapshot is a plain-value copy of PerfCounters, returned by
// SampleAndReset once the live atomics have been zeroed.
type PerfSnapshot struct {
	QueuedColumns      uint64
	QueuedSpans        uint64
	FlushCount         uint64
	MidFrameFlushes    uint64
	MaxBatchSize       uint64
	AtlasUploadBytes   uint64
	CommandUploadBytes uint64

	CacheLookups       uint64
	CacheHits          uint64
	CacheMisses        uint64
	CacheFailedInserts uint64
	CacheWraps         uint64
	CacheEntries       uint64

	PLWaitNanos       uint64
	PresentScaleNanos uint64
}

// bumpMaxBatchSize updates MaxBatchSize to n if n is larger, using a
// compare-and-swap retry loop rather than a lock since this is the one
// counter that isn't a pure monotonic add.
func (p *PerfCounters) bumpMaxBatchSize(n uint64) {
	for {
		cur := p.MaxBatchSize.Load()
		if n <= cur {
			return
		}
		if p.MaxBatchSize.CompareAndSwap(cur, n) {
			return
		}
	}
}

// SampleAndReset returns the accumulated counters and atomically zeros the
// live record. It is not a single atomic operation across all fields (the
// spec only requires "atomically zeros the record" per field, and callers
// sample on a quiescent boundary such as end-of-frame), matching the swap
// semantics of atomic.Uint64.Swap.
func (p *PerfCounters) SampleAndReset() PerfSnapshot {
	return PerfSnapshot{
		QueuedColumns:      p.QueuedColumns.Swap(0),
		QueuedSpans:        p.QueuedSpans.Swap(0),
		FlushCount:         p.FlushCount.Swap(0),
		MidFrameFlushes:    p.MidFrameFlushes.Swap(0),
		MaxBatchSize:       p.MaxBatchSize.Swap(0),
		AtlasUploadBytes:   p.AtlasUploadBytes.Swap(0),
		CommandUploadBytes: p.CommandUploadBytes.Swap(0),
		CacheLookups:       p.CacheLookups.Swap(0),
		CacheHits:          p.CacheHits.Swap(0),
		CacheMisses:        p.CacheMisses.Swap(0),
		CacheFailedInserts: p.CacheFailedInserts.Swap(0),
		CacheWraps:         p.CacheWraps.Swap(0),
		CacheEntries:       p.CacheEntries.Swap(0),
		PLWaitNanos:        p.PLWaitNanos.Swap(0),
		PresentScaleNanos:  p.PresentScaleNanos.Swap(0),
	}
}
