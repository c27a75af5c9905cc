package dav1d

import "github.com/validvoid/dav1d/internal/tables"

// MvCandidate is one ranked entry of the reference-MV candidate stack,
// spec.md §4.4.
type MvCandidate struct {
	ThisMV, CompMV MV
	Weight         int
}

// RefMvStack is the result of one refmv-engine query: the ranked
// candidate stack, per-direction nearmv/nearestmv lists, and the
// composite mode-decision context.
type RefMvStack struct {
	Candidates []MvCandidate
	NearestMV  [2]MV
	NearMVs    [2][]MV
	Ctx        int // low 3 bits newmv ctx, next bit globalmv ctx, next 4 bits refmv ctx
}

func (s *RefMvStack) NewMVCtx() int    { return s.Ctx & 0x7 }
func (s *RefMvStack) GlobalMVCtx() int { return (s.Ctx >> 3) & 0x1 }
func (s *RefMvStack) RefMVCtx() int    { return (s.Ctx >> 4) & 0xF }

// rawCandidate is a pre-dedup/pre-clip scan hit: a spatial or temporal MV
// match together with its scan-derived weight.
type rawCandidate struct {
	mv     [2]MV
	weight int
}

// RefMvEngine builds candidate MV stacks for a block, scanning the frame's
// MV grid for spatial matches, spec.md §4.4.
type RefMvEngine struct {
	Grid        *MvGrid
	Temporal    *MvGrid // collocated grid from a prior frame, or nil
	GlobalMotion *[8]GlobalMotionParams
	ClipX0, ClipX1, ClipY0, ClipY1 int // tile clipping rectangle, 4x4 units
	AllowHighPrecision bool
}

// Build returns the candidate stack for a block at (x4,y4) sized bw4xbh4
// targeting reference pair {r0,r1} (r1 == RefNone for single-ref).
func (e *RefMvEngine) Build(x4, y4, bw4, bh4 int, r0, r1 tables.RefFrame) *RefMvStack {
	stack := &RefMvStack{}
	var candidates []rawCandidate
	seen := map[[4]int32]bool{}

	scanRow := func(yy int, weight int) {
		if yy < e.ClipY0 || yy >= e.ClipY1 {
			return
		}
		x := e.ClipX0
		if x4 > e.ClipX0 {
			x = x4
		}
		for ; x < x4+bw4 && x < e.ClipX1; x++ {
			e.considerCell(e.Grid.At(x, yy), r0, r1, weight, &candidates, seen)
		}
	}
	scanCol := func(xx int, weight int) {
		if xx < e.ClipX0 || xx >= e.ClipX1 {
			return
		}
		y := e.ClipY0
		if y4 > e.ClipY0 {
			y = y4
		}
		for ; y < y4+bh4 && y < e.ClipY1; y++ {
			e.considerCell(e.Grid.At(xx, y), r0, r1, weight, &candidates, seen)
		}
	}

	if y4 > e.ClipY0 {
		scanRow(y4-1, bw4*2)
	}
	if x4 > e.ClipX0 {
		scanCol(x4-1, bh4*2)
	}
	if y4 > e.ClipY0 && x4+bw4 < e.ClipX1 {
		e.considerCell(e.Grid.At(x4+bw4, y4-1), r0, r1, 1, &candidates, seen)
	}

	if e.Temporal != nil {
		cx, cy := x4+bw4/2, y4+bh4/2
		if cx < e.Temporal.W4 && cy < e.Temporal.H4 {
			e.considerCell(e.Temporal.At(cx, cy), r0, r1, 2, &candidates, seen)
		}
	}

	if e.GlobalMotion != nil {
		gm := e.globalMV(r0)
		candidates = append(candidates, rawCandidate{mv: [2]MV{gm, e.globalMV(r1)}, weight: 1})
	}

	for _, c := range candidates {
		mv := c.mv[0]
		if !e.AllowHighPrecision {
			mv.X &^= 1
			mv.Y &^= 1
		}
		stack.Candidates = append(stack.Candidates, MvCandidate{ThisMV: mv, CompMV: c.mv[1], Weight: c.weight})
	}
	if len(stack.Candidates) > 8 {
		stack.Candidates = stack.Candidates[:8]
	}
	if len(stack.Candidates) > 0 {
		stack.NearestMV[0] = stack.Candidates[0].ThisMV
		stack.NearestMV[1] = stack.Candidates[0].CompMV
		for _, c := range stack.Candidates[1:] {
			stack.NearMVs[0] = append(stack.NearMVs[0], c.ThisMV)
			stack.NearMVs[1] = append(stack.NearMVs[1], c.CompMV)
		}
	}

	newmvCtx := 0
	if len(stack.Candidates) == 0 {
		newmvCtx = 0
	} else if len(stack.Candidates) == 1 {
		newmvCtx = 1
	} else {
		newmvCtx = 2
	}
	globalmvCtx := 0
	if len(stack.Candidates) > 0 && stack.Candidates[0].Weight >= bw4*2 {
		globalmvCtx = 1
	}
	refmvCtx := len(stack.Candidates)
	if refmvCtx > 15 {
		refmvCtx = 15
	}
	stack.Ctx = newmvCtx | (globalmvCtx << 3) | (refmvCtx << 4)

	return stack
}

func (e *RefMvEngine) considerCell(cell *MvCell, r0, r1 tables.RefFrame, weight int, out *[]rawCandidate, seen map[[4]int32]bool) {
	if cell.Ref[0] != r0 {
		return
	}
	mv0 := cell.MV[0]
	mv1 := MV{}
	if r1 != tables.RefNone {
		if cell.Ref[1] != r1 {
			return
		}
		mv1 = cell.MV[1]
	}
	key := [4]int32{mv0.X, mv0.Y, mv1.X, mv1.Y}
	if seen[key] {
		for i := range *out {
			if (*out)[i].mv[0] == mv0 && (*out)[i].mv[1] == mv1 {
				(*out)[i].weight += weight
				return
			}
		}
	}
	seen[key] = true
	*out = append(*out, rawCandidate{mv: [2]MV{mv0, mv1}, weight: weight})
}

func (e *RefMvEngine) globalMV(ref tables.RefFrame) MV {
	if ref == tables.RefNone || e.GlobalMotion == nil {
		return MV{}
	}
	gm := e.GlobalMotion[ref]
	if gm.Type == 0 {
		return MV{}
	}
	return MV{Y: gm.Params[1] >> 13, X: gm.Params[0] >> 13}
}
