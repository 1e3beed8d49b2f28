package render

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// shadeSpread is how far noise moves a tile's brightness either way.
const shadeSpread = 0.15

// shadeOctaves are the noise layers summed per tile, finest last.
var shadeOctaves = [...]struct{ freq, weight float64 }{
	{0.35, 1},
	{0.7, 0.5},
	{1.4, 0.25},
}

// tileNoise samples the shade layers at (x, y). The weighted mean of
// normalized samples stays in [0, 1].
func tileNoise(noise opensimplex.Noise, x, y float64) float64 {
	var sum, weights float64
	for _, o := range shadeOctaves {
		sum += o.weight * noise.Eval2(x*o.freq, y*o.freq)
		weights += o.weight
	}
	return sum / weights
}

// shadeColor brightens or darkens rgb by the noise value n in [0, 1].
func shadeColor(rgb [3]float64, n float64) string {
	f := 1 + (n-0.5)*2*shadeSpread
	var out [3]int
	for i, c := range rgb {
		v := int(c*f + 0.5)
		out[i] = min(max(v, 0), 255)
	}
	return fmt.Sprintf("#%02x%02x%02x", out[0], out[1], out[2])
}
