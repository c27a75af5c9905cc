package dav1d

import "github.com/validvoid/dav1d/msac"

// PaletteColorCtx is the {ctx, order} pair order_palette computes from a
// cell's three already-decoded neighbors, spec.md §4.5's palette table.
type PaletteColorCtx struct {
	Ctx   int
	Order [8]uint8 // remap: index i in the CDF maps to palette entry Order[i]
}

// orderPalette implements spec.md §4.5's neighbor-equality rule table.
// top/left/topleft are palette-entry indices, or -1 if that neighbor does
// not exist (top row / left column of the block).
func orderPalette(top, left, topleft int, paletteSize int) PaletteColorCtx {
	var out PaletteColorCtx

	switch {
	case top < 0 && left < 0:
		out.Ctx = 0
	case top < 0 || left < 0:
		out.Ctx = 0
	case top == left && left == topleft:
		out.Ctx = 4
	case top == left && left != topleft:
		out.Ctx = 3
	case (top == topleft) != (left == topleft):
		out.Ctx = 2
	default:
		out.Ctx = 1
	}

	// Fill remaining slots in increasing palette-entry order, excluding
	// already-emitted entries.
	front := paletteOrderFront(top, left, topleft, out.Ctx, paletteSize)
	n := copy(out.Order[:], front)
	used := make([]bool, paletteSize)
	for _, v := range front {
		used[v] = true
	}
	for v := 0; v < paletteSize && n < len(out.Order); v++ {
		if !used[v] {
			out.Order[n] = uint8(v)
			n++
		}
	}
	return out
}

func paletteOrderFront(top, left, topleft, ctx, paletteSize int) []uint8 {
	clamp := func(v int) uint8 {
		if v < 0 {
			return 0
		}
		if v >= paletteSize {
			v = paletteSize - 1
		}
		return uint8(v)
	}
	switch ctx {
	case 4:
		return []uint8{clamp(top)}
	case 3:
		return []uint8{clamp(top), clamp(topleft)}
	case 2:
		other := top
		if top == topleft {
			other = left
		}
		return []uint8{clamp(topleft), clamp(other)}
	case 1:
		mn, mx := top, left
		if mn > mx {
			mn, mx = mx, mn
		}
		return []uint8{clamp(mn), clamp(mx), clamp(topleft)}
	default:
		if top >= 0 {
			return []uint8{clamp(top)}
		}
		if left >= 0 {
			return []uint8{clamp(left)}
		}
		return nil
	}
}

// PaletteColorCDF is the per-block-size, per-context CDF set used for the
// color-index map; indexed [paletteSize-2][ctx].
type PaletteColorCDF [][]uint16

// DecodePaletteIndexMap decodes a block's palette index map in wave-front
// diagonal order, spec.md §4.5. w/h are the visible extent in pixels and
// the returned map covers only those w*h cells; ReplicatePaletteEdges
// extends it to the full block.
func DecodePaletteIndexMap(d *msac.Decoder, w, h, paletteSize int, cdfFor func(ctx int) []uint16) []uint8 {
	out := make([]uint8, w*h)
	get := func(x, y int) int {
		if x < 0 || y < 0 {
			return -1
		}
		return int(out[y*w+x])
	}

	// first cell has no neighbors: drawn directly from a uniform context.
	out[0] = uint8(d.DecodeSymbol(cdfFor(0)))

	maxDiag := w + h - 2
	for diag := 1; diag <= maxDiag; diag++ {
		first := 0
		if diag >= w {
			first = diag - w + 1
		}
		last := diag
		if last >= h {
			last = h - 1
		}
		for y := first; y <= last; y++ {
			x := diag - y
			if x == 0 && y == 0 {
				continue
			}
			top, left, topleft := -1, -1, -1
			if y > 0 {
				top = get(x, y-1)
			}
			if x > 0 {
				left = get(x-1, y)
			}
			if x > 0 && y > 0 {
				topleft = get(x-1, y-1)
			}
			pc := orderPalette(top, left, topleft, paletteSize)
			sym := d.DecodeSymbol(cdfFor(pc.Ctx))
			out[y*w+x] = pc.Order[sym]
		}
	}
	return out
}

// ReplicatePaletteEdges extends a w x h visible index map to bw x bh by
// replicating the last visible column/row into invisible cells, spec.md
// §4.5/§8.
func ReplicatePaletteEdges(idx []uint8, w, h, bw, bh int) []uint8 {
	out := make([]uint8, bw*bh)
	for y := 0; y < bh; y++ {
		sy := y
		if sy >= h {
			sy = h - 1
		}
		for x := 0; x < bw; x++ {
			sx := x
			if sx >= w {
				sx = w - 1
			}
			out[y*bw+x] = idx[sy*w+sx]
		}
	}
	return out
}
