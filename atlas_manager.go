// atlas_manager.go - Texture atlas bump allocator and pointer-offset cache

/*
AtlasManager owns the monotonically increasing cursor into the texture
atlas region and the bounded-probe PointerOffsetCache that lets repeated
uploads of the same (source_key, size) pair return the same offset without
re-copying. Grounded on original_source/doomgeneric/doom_accel.c's
Upload_Texture_Column/Reset_Texture_Atlas (bump allocator with wraparound)
and spec section 4.2's avalanche-hash + bounded-probe + second-pass +
home-bucket-replace degrade policy.

The game supplies the same texture-lump addresses across frames, so
(source_key, size) is a stable identity; a bounded probe prevents long
linear chains from dominating frame time while the second-pass scan plus
home-bucket replacement guarantee forward progress under pathological
collisions.
*/

package main

// SourceKey is the opaque address/handle of a caller's texture lump.
type SourceKey uint64

type cacheEntry struct {
	key      SourceKey
	size     uint32
	offset   uint32
	occupied bool
}

// PointerOffsetCache is a fixed-capacity open-addressed hash table mapping
// (source_key, size) to atlas_offset, per spec section 3.
type PointerOffsetCache struct {
	entries []cacheEntry
	count   int

	lastValid  bool
	lastKey    SourceKey
	lastSize   uint32
	lastOffset uint32

	perf *PerfCounters
}

// NewPointerOffsetCache allocates a cache of the spec's fixed capacity.
func NewPointerOffsetCache(perf *PerfCounters) *PointerOffsetCache {
	return &PointerOffsetCache{
		entries: make([]cacheEntry, PointerCacheCapacity),
		perf:    perf,
	}
}

// avalancheHash mixes the pointer bits with size into a well-distributed
// 32-bit bucket index, per spec section 4.2 ("compute a 64->32-bit
// avalanche hash mixing pointer bits with size").
func avalancheHash(key SourceKey, size uint32) uint32 {
	h := uint64(key) ^ (uint64(size) * 0x9E3779B97F4A7C15)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return uint32(h)
}

// Lookup returns the cached offset for (key, size), or false if absent.
// The single-entry last-used fast path short-circuits repeated consecutive
// lookups of the same texture, which is the common case within one column
// or span loop that reuses a texture across many commands.
func (c *PointerOffsetCache) Lookup(key SourceKey, size uint32) (uint32, bool) {
	if c.lastValid && c.lastKey == key && c.lastSize == size {
		return c.lastOffset, true
	}

	home := avalancheHash(key, size) % uint32(len(c.entries))
	for i := uint32(0); i < PointerCacheProbe; i++ {
		idx := (home + i) % uint32(len(c.entries))
		e := &c.entries[idx]
		if !e.occupied {
			return 0, false
		}
		if e.key == key && e.size == size {
			c.rememberLast(key, size, e.offset)
			return e.offset, true
		}
	}

	// Probe budget exhausted with every slot occupied: fall back to a full
	// second pass before declaring a miss.
	for idx := range c.entries {
		e := &c.entries[idx]
		if e.occupied && e.key == key && e.size == size {
			c.rememberLast(key, size, e.offset)
			return e.offset, true
		}
	}
	return 0, false
}

func (c *PointerOffsetCache) rememberLast(key SourceKey, size, offset uint32) {
	c.lastValid = true
	c.lastKey = key
	c.lastSize = size
	c.lastOffset = offset
}

// Insert records offset for (key, size). On probe saturation it replaces
// the home bucket and counts a failed insert, per spec section 4.2.
func (c *PointerOffsetCache) Insert(key SourceKey, size, offset uint32) {
	home := avalancheHash(key, size) % uint32(len(c.entries))
	for i := uint32(0); i < PointerCacheProbe; i++ {
		idx := (home + i) % uint32(len(c.entries))
		e := &c.entries[idx]
		if !e.occupied {
			*e = cacheEntry{key: key, size: size, offset: offset, occupied: true}
			c.count++
			if c.perf != nil {
				c.perf.CacheEntries.Add(1)
			}
			c.rememberLast(key, size, offset)
			return
		}
	}

	c.entries[home] = cacheEntry{key: key, size: size, offset: offset, occupied: true}
	c.rememberLast(key, size, offset)
	if c.perf != nil {
		c.perf.CacheFailedInserts.Add(1)
	}
}

// Reset clears every entry and invalidates the last-used fast path.
func (c *PointerOffsetCache) Reset() {
	for i := range c.entries {
		c.entries[i] = cacheEntry{}
	}
	c.count = 0
	c.lastValid = false
}

// AtlasManager is the content-addressed bump allocator described in spec
// section 3/4.2.
type AtlasManager struct {
	atlas  []byte
	cursor uint32
	cache  *PointerOffsetCache
	perf   *PerfCounters

	// onWrap is invoked after a wrap clears the host cache, reusing the
	// colormap-load path to issue a device-side cache invalidation (see
	// spec section 4.2, "Wrap policy").
	onWrap func()
}

// NewAtlasManager creates a manager backed by the given atlas region.
func NewAtlasManager(atlas []byte, perf *PerfCounters) *AtlasManager {
	return &AtlasManager{
		atlas: atlas,
		cache: NewPointerOffsetCache(perf),
		perf:  perf,
	}
}

// SetWrapHandler installs the callback run after an atlas wrap, which the
// raster kernel uses to invalidate its on-chip texture/flat caches.
func (a *AtlasManager) SetWrapHandler(fn func()) { a.onWrap = fn }

func alignUp16(v uint32) uint32 { return (v + 15) &^ 15 }

// Upload returns the existing offset if (key, len(payload)) is already
// cached; otherwise it copies payload to the next 16-byte-aligned cursor,
// records the mapping, and advances the cursor, wrapping as needed.
func (a *AtlasManager) Upload(key SourceKey, payload []byte) (uint32, error) {
	size := uint32(len(payload))
	if a.perf != nil {
		a.perf.CacheLookups.Add(1)
	}
	if offset, ok := a.cache.Lookup(key, size); ok {
		if a.perf != nil {
			a.perf.CacheHits.Add(1)
		}
		return offset, nil
	}
	if a.perf != nil {
		a.perf.CacheMisses.Add(1)
	}

	if size > uint32(len(a.atlas)) {
		return 0, ErrAtlasOverflow
	}

	if uint64(a.cursor)+uint64(size) > uint64(len(a.atlas)) {
		a.cursor = 0
		a.cache.Reset()
		if a.perf != nil {
			a.perf.CacheWraps.Add(1)
		}
		if a.onWrap != nil {
			a.onWrap()
		}
	}

	offset := a.cursor
	copy(a.atlas[offset:offset+size], payload)
	a.cursor += alignUp16(size)
	a.cache.Insert(key, size, offset)
	if a.perf != nil {
		a.perf.AtlasUploadBytes.Add(uint64(size))
	}
	return offset, nil
}

// Reset performs the full reset at level transition: cursor to zero, cache
// cleared, last-used fast path invalidated.
func (a *AtlasManager) Reset() {
	a.cursor = 0
	a.cache.Reset()
}

// Cursor reports the current bump-allocation offset, mainly for tests.
func (a *AtlasManager) Cursor() uint32 { return a.cursor }
