package saak

import (
	"fmt"

	"gorgonia.org/tensor"
)

// ExtractPatches cuts every sample of an (N, C, H, W) batch into non-overlapping extent×extent
// blocks and returns them as the rows of a (P, C*extent*extent) matrix, P = N*(H/extent)*(W/extent).
//
// Each row is laid out as (channel, dy, dx). Rows are ordered by block position first (row-major
// over the lattice) and by sample second.
func ExtractPatches(images *tensor.Dense, extent int) (*tensor.Dense, error) {
	n, c, h, w, err := checkNCHW("ExtractPatches", images)
	if err != nil {
		return nil, err
	}
	if extent < 1 || h%extent != 0 || w%extent != 0 {
		return nil, shapeErr("ExtractPatches", fmt.Sprintf("spatial dims divisible by %d", extent), images.Shape())
	}

	ph, pw := h/extent, w/extent
	d := c * extent * extent
	src := images.Data().([]float32)
	dst := make([]float32, n*ph*pw*d)

	var row int
	for bi := 0; bi < ph; bi++ {
		for bj := 0; bj < pw; bj++ {
			for s := 0; s < n; s++ {
				out := dst[row*d : (row+1)*d]
				var k int
				for ch := 0; ch < c; ch++ {
					plane := src[(s*c+ch)*h*w:]
					for dy := 0; dy < extent; dy++ {
						start := (bi*extent+dy)*w + bj*extent
						k += copy(out[k:], plane[start:start+extent])
					}
				}
				row++
			}
		}
	}
	return tensor.New(tensor.WithShape(n*ph*pw, d), tensor.WithBacking(dst)), nil
}
