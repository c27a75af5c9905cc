package dav1d

// WarpSample is one projectable neighbor sample used by the warp-motion
// least-squares fit, spec.md §4.5.
type WarpSample struct {
	// Center of the neighbor 4x4 cell, in pixels, relative to the current
	// block's top-left corner.
	CX, CY int32
	// The neighbor's displacement (its MV).
	MVX, MVY int32
}

// warpMaxMVDiff bounds how far a sample's predicted displacement may
// differ from the block's own MV before it's discarded, spec.md §4.5:
// 4*clip(max(bw,bh), 4, 28).
func warpMaxMVDiff(bw, bh int) int32 {
	m := bw
	if bh > m {
		m = bh
	}
	if m < 4 {
		m = 4
	}
	if m > 28 {
		m = 28
	}
	return int32(4 * m)
}

// CollectWarpSamples finds up to 8 projectable neighbor samples: matching
// single-ref neighbor blocks whose predicted displacement (their own MV,
// since affine fit starts from a translation hypothesis) doesn't differ
// from blockMV by more than warpMaxMVDiff, spec.md §4.5.
func CollectWarpSamples(neighbors []WarpSample, blockMV MV, bw, bh int) []WarpSample {
	limit := warpMaxMVDiff(bw, bh)
	var out []WarpSample
	for _, s := range neighbors {
		dx := s.MVX - blockMV.X
		dy := s.MVY - blockMV.Y
		if abs32(dx) > limit || abs32(dy) > limit {
			continue
		}
		out = append(out, s)
		if len(out) == 8 {
			break
		}
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// FitWarpModel performs the least-squares affine fit from the projectable
// samples, returning a 6-parameter warp model. With zero samples it
// returns the identity model (motion-mode falls back to translation,
// spec.md §8's boundary behavior); with exactly one sample the fit still
// completes without underflow by fitting a pure-translation model through
// that single point.
func FitWarpModel(samples []WarpSample, blockMV MV) (GlobalMotionParams, bool) {
	if len(samples) == 0 {
		return GlobalMotionParams{Type: 0}, false
	}
	if len(samples) == 1 {
		s := samples[0]
		return GlobalMotionParams{
			Type:   1,
			Params: [6]int32{s.MVX << 13, s.MVY << 13, 1 << 16, 0, 0, 1 << 16},
		}, true
	}

	// Normal-equations least squares for an unconstrained 6-parameter
	// affine model: dx = ax*cx + ay*cy + c and dy = dx2*cx + dy2*cy + e,
	// each solved as its own 3x3 system; accumulate in float64 for the
	// small sample counts involved here.
	var sxx, sxy, syy, sx, sy, n float64
	var sdx, sdxx, sdxy, sdy, sdyx, sdyy float64
	for _, s := range samples {
		x, y := float64(s.CX), float64(s.CY)
		dx, dy := float64(s.MVX), float64(s.MVY)
		sxx += x * x
		sxy += x * y
		syy += y * y
		sx += x
		sy += y
		n++
		sdx += dx
		sdxx += dx * x
		sdxy += dx * y
		sdy += dy
		sdyx += dy * x
		sdyy += dy * y
	}
	det := n*(sxx*syy-sxy*sxy) - sx*(sx*syy-sy*sxy) + sy*(sx*sxy-sy*sxx)
	if det == 0 {
		return GlobalMotionParams{Type: 0}, false
	}

	solve := func(s1, sxv, syv float64) (float64, float64, float64) {
		// Solve the 3x3 normal-equations system for [coeff_x, coeff_y, const]
		// fitting target = coeff_x*x + coeff_y*y + const.
		a00, a01, a02 := sxx, sxy, sx
		a10, a11, a12 := sxy, syy, sy
		a20, a21, a22 := sx, sy, n
		b0, b1, b2 := sxv, syv, s1
		d := a00*(a11*a22-a12*a21) - a01*(a10*a22-a12*a20) + a02*(a10*a21-a11*a20)
		if d == 0 {
			return 0, 0, 0
		}
		cx := (b0*(a11*a22-a12*a21) - a01*(b1*a22-a12*b2) + a02*(b1*a21-a11*b2)) / d
		cy := (a00*(b1*a22-a12*b2) - b0*(a10*a22-a12*a20) + a02*(a10*b2-b1*a20)) / d
		c0 := (a00*(a11*b2-b1*a21) - a01*(a10*b2-b1*a20) + b0*(a10*a21-a11*a20)) / d
		return cx, cy, c0
	}

	ax, ay, c := solve(sdx, sdxx, sdxy)
	dx2, dy2, e := solve(sdy, sdyx, sdyy)

	toFixed := func(v float64) int32 { return int32(v * (1 << 16)) }
	gm := GlobalMotionParams{Type: 3}
	gm.Params[0] = toFixed(c)
	gm.Params[1] = toFixed(e)
	gm.Params[2] = int32(1<<16) + toFixed(ax)
	gm.Params[3] = toFixed(ay)
	gm.Params[4] = toFixed(dx2)
	gm.Params[5] = int32(1<<16) + toFixed(dy2)
	return gm, true
}

// ShearParams derives the alpha/beta/gamma/delta shear decomposition used
// by the warp reconstruction kernel from a 6-parameter affine model,
// reporting false if the model is degenerate (near-singular), in which
// case motion-mode falls back to translation per spec.md §4.5.
func ShearParams(gm GlobalMotionParams) (alpha, beta, gamma, delta int32, ok bool) {
	a := gm.Params[2] - (1 << 16)
	b := gm.Params[3]
	c := gm.Params[4]
	d := gm.Params[5] - (1 << 16)
	det := int64(a)*int64(d) - int64(b)*int64(c)
	if det == 0 {
		return 0, 0, 0, 0, false
	}
	return a, b, c, d, true
}
