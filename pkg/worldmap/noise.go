package worldmap

import "math"

// perlinNoise is a classic-Perlin-noise generator whose permutation table is
// shuffled deterministically from a seed. Two maps built from the same seed
// always produce identical permutation tables and therefore identical noise
// fields; this is the building block tile(seed, x, y) is composed from.
type perlinNoise struct {
	permutation []int
}

func newPerlinNoise(seed int64) *perlinNoise {
	p := []int{
		151, 160, 137, 91, 90, 15, 131, 13, 201, 95, 96, 53, 194, 233, 7, 225,
		140, 36, 103, 30, 69, 142, 8, 99, 37, 240, 21, 10, 23, 190, 6, 148,
		247, 120, 234, 75, 0, 26, 197, 62, 94, 252, 219, 203, 117, 35, 11, 32,
		57, 177, 33, 88, 237, 149, 56, 87, 174, 20, 125, 136, 171, 168, 68, 175,
		74, 165, 71, 134, 139, 48, 27, 166, 77, 146, 158, 231, 83, 111, 229, 122,
		60, 211, 133, 230, 220, 105, 92, 41, 55, 46, 245, 40, 244, 102, 143, 54,
		65, 25, 63, 161, 1, 216, 80, 73, 209, 76, 132, 187, 208, 89, 18, 169,
		200, 196, 135, 130, 116, 188, 159, 86, 164, 100, 109, 198, 173, 186, 3, 64,
		52, 217, 226, 250, 124, 123, 5, 202, 38, 147, 118, 126, 255, 82, 85, 212,
		207, 206, 59, 227, 47, 16, 58, 17, 182, 189, 28, 42, 223, 183, 170, 213,
		119, 248, 152, 2, 44, 154, 163, 70, 221, 153, 101, 155, 167, 43, 172, 9,
		129, 22, 39, 253, 19, 98, 108, 110, 79, 113, 224, 232, 178, 185, 112, 104,
		218, 246, 97, 228, 251, 34, 242, 193, 238, 210, 144, 12, 191, 179, 162, 241,
		81, 51, 145, 235, 249, 14, 239, 107, 49, 192, 214, 31, 181, 199, 106, 157,
		184, 84, 204, 176, 115, 121, 50, 45, 127, 4, 150, 254, 138, 236, 205, 93,
		222, 114, 67, 29, 24, 72, 243, 141, 128, 195, 78, 66, 215, 61, 156, 180,
	}

	rng := seed
	for i := len(p) - 1; i > 0; i-- {
		rng = (rng*1103515245 + 12345) & 0x7fffffff
		j := int(rng) % (i + 1)
		p[i], p[j] = p[j], p[i]
	}

	perm := make([]int, 512)
	for i := 0; i < 256; i++ {
		perm[i] = p[i]
		perm[i+256] = p[i]
	}
	return &perlinNoise{permutation: perm}
}

func (pn *perlinNoise) noise2D(x, y float64) float64 {
	xi := int(math.Floor(x)) & 255
	yi := int(math.Floor(y)) & 255

	xf := x - math.Floor(x)
	yf := y - math.Floor(y)

	u := fade(xf)
	v := fade(yf)

	aa := pn.permutation[pn.permutation[xi]+yi]
	ab := pn.permutation[pn.permutation[xi]+yi+1]
	ba := pn.permutation[pn.permutation[xi+1]+yi]
	bb := pn.permutation[pn.permutation[xi+1]+yi+1]

	x1 := lerp(u, grad2D(aa, xf, yf), grad2D(ba, xf-1, yf))
	x2 := lerp(u, grad2D(ab, xf, yf-1), grad2D(bb, xf-1, yf-1))

	return lerp(v, x1, x2)
}

// fractal combines octaves of noise2D into a single [-1,1]-ish value.
func (pn *perlinNoise) fractal(x, y float64, octaves int, persistence, scale float64) float64 {
	var value, amplitude, frequency = 0.0, 1.0, scale
	for i := 0; i < octaves; i++ {
		value += pn.noise2D(x*frequency, y*frequency) * amplitude
		amplitude *= persistence
		frequency *= 2.0
	}
	return value
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

func grad2D(hash int, x, y float64) float64 {
	h := hash & 3
	u, v := x, y
	if h >= 2 {
		u, v = y, x
	}
	uSign, vSign := 1.0, 1.0
	if h&1 != 0 {
		uSign = -1.0
	}
	if h&2 != 0 {
		vSign = -1.0
	}
	return uSign*u + vSign*v
}

// normalize maps a roughly [-1,1] noise sample into [0,1].
func normalize(n float64) float64 {
	v := (n + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
