// Package worldmap implements the infinite, seed-derived tile world.
// A Map carries no per-tile storage: every tile is recomputed on demand
// from the map's 32-bit seed and the tile's coordinates, so two Maps
// built from the same seed are, by definition, equal worlds.
package worldmap

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Map is identified entirely by its seed. It is safe for concurrent read
// access: TileAt has no mutable state.
type Map struct {
	seed      int32
	elevation *perlinNoise
	moisture  *perlinNoise
	detail    *perlinNoise
}

// New builds a Map for the given seed. Construction is cheap: it only
// derives the permutation tables for the noise layers, it never
// allocates per-tile storage.
func New(seed int32) *Map {
	elevSeed, moistSeed, detailSeed := deriveLayerSeeds(seed)
	return &Map{
		seed:      seed,
		elevation: newPerlinNoise(elevSeed),
		moisture:  newPerlinNoise(moistSeed),
		detail:    newPerlinNoise(detailSeed),
	}
}

// Seed returns the 32-bit seed identifying this world. Equality of two
// Maps is equality of their seeds.
func (m *Map) Seed() int32 {
	return m.seed
}

// deriveLayerSeeds derives three independent sub-seeds from the map seed
// so the elevation, moisture and detail noise layers are decorrelated:
// each sub-seed is the first 8 bytes of SHA-256 over "<seed>:<label>".
func deriveLayerSeeds(seed int32) (elevation, moisture, detail int64) {
	elevation = deriveSeed(seed, "elevation")
	moisture = deriveSeed(seed, "moisture")
	detail = deriveSeed(seed, "detail")
	return
}

func deriveSeed(seed int32, label string) int64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", seed, label)))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// Tile classification thresholds. These, together with the noise layer
// construction above, are the frozen formula the determinism conformance
// test in map_test.go pins: any change here changes the world.
const (
	elevationScale      = 0.06
	moistureScale       = 0.08
	detailScale         = 0.35
	deepWaterThreshold  = 0.22
	waterThreshold      = 0.32
	sandThreshold       = 0.36
	mountainThreshold   = 0.82
	highMountainThresh  = 0.93
	dryMoistureThresh   = 0.35
	wetMoistureThresh   = 0.65
	veryWetMoistureThre = 0.85
)

// TileAt returns the tile occupying (x, y) in this world. It is pure and
// total: every call with the same map seed and coordinates returns the
// same Tile, including across process restarts, since nothing but the
// seed and coordinates feed into it.
func (m *Map) TileAt(x, y int) Tile {
	fx, fy := float64(x), float64(y)

	elevation := normalize(m.elevation.fractal(fx, fy, 4, 0.5, elevationScale))
	moisture := normalize(m.moisture.fractal(fx, fy, 3, 0.5, moistureScale))
	detail := normalize(m.detail.fractal(fx, fy, 2, 0.5, detailScale))

	switch {
	case elevation < deepWaterThreshold:
		return Tile{Kind: TileWaterDeep}
	case elevation < waterThreshold:
		return Tile{Kind: TileWater}
	case elevation < sandThreshold:
		return Tile{Kind: TileSand}
	case elevation >= highMountainThresh:
		return Tile{Kind: TileRock1 + TileKind(variant(detail, 5))}
	case elevation >= mountainThreshold:
		if detail < 0.2 {
			return Tile{Kind: TilePillar}
		}
		return Tile{Kind: TileWall}
	}

	switch {
	case moisture < dryMoistureThresh:
		if detail < 0.5 {
			return Tile{Kind: TileDirt}
		}
		return Tile{Kind: TileSand}
	case moisture < wetMoistureThresh:
		if detail < 0.6 {
			return Tile{Kind: TileGrassLight}
		}
		return Tile{Kind: TileFloor}
	case moisture < veryWetMoistureThre:
		if detail < 0.25 {
			return Tile{Kind: TileBush}
		}
		return Tile{Kind: TileGrassDark}
	default:
		return Tile{Kind: TileTree1 + TileKind(variant(detail, 5))}
	}
}

// variant maps a [0,1] noise sample onto one of n equally-sized buckets,
// used to pick deterministic subtype variety (which of the 5 rock or
// tree sprites) without a fourth noise layer.
func variant(v float64, n int) int {
	i := int(v * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
