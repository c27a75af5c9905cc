package dav1d

import "go.uber.org/zap"

// PlaneAllocation describes the byte sizes an allocator must provide for
// one picture's three (or one, for monochrome) planes.
type PlaneAllocation struct {
	PlaneSizes [3]int
	Strides    [2]int
}

// AllocatedPlanes is what a picture allocator hands back: one buffer per
// plane plus an opaque token the release hook receives later.
type AllocatedPlanes struct {
	Data   [3][]byte
	Stride [2]int
	Opaque any
}

// Allocator is the picture-allocator override hook pair from spec.md §6.
type Allocator struct {
	Allocate func(PlaneAllocation) (AllocatedPlanes, error)
	Release  func(opaque any)
}

func defaultAllocator() Allocator {
	return Allocator{
		Allocate: func(p PlaneAllocation) (AllocatedPlanes, error) {
			var out AllocatedPlanes
			for i, sz := range p.PlaneSizes {
				if sz > 0 {
					out.Data[i] = make([]byte, sz)
				}
			}
			out.Stride = p.Strides
			return out, nil
		},
		Release: func(any) {},
	}
}

// Settings is the public configuration object from spec.md §6, built with
// functional options in the style of the example pack's component
// constructors.
type Settings struct {
	// NFrameThreads is the frame-level pipeline depth; 1 disables frame
	// threading.
	NFrameThreads uint
	// NTileThreads is the number of intra-frame tile workers; 1
	// serializes tiles.
	NTileThreads uint

	Allocator Allocator
	Logger    *zap.Logger

	// Recon is the pixel-domain collaborator the frame pipeline calls
	// back into, spec.md §1/§6. Defaults to NoopReconOps so the parser
	// and scheduling can run standalone.
	Recon ReconOps
}

// Option configures a Settings value.
type Option func(*Settings)

// WithFrameThreads sets the frame-level pipeline depth.
func WithFrameThreads(n uint) Option {
	return func(s *Settings) {
		if n >= 1 {
			s.NFrameThreads = n
		}
	}
}

// WithTileThreads sets the intra-frame tile worker count.
func WithTileThreads(n uint) Option {
	return func(s *Settings) {
		if n >= 1 {
			s.NTileThreads = n
		}
	}
}

// WithAllocator overrides the picture allocator.
func WithAllocator(a Allocator) Option {
	return func(s *Settings) { s.Allocator = a }
}

// WithLogger sets the structured logger used for decode-time diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Settings) { s.Logger = l }
}

// WithReconOps overrides the pixel-domain collaborator the frame pipeline
// calls back into.
func WithReconOps(r ReconOps) Option {
	return func(s *Settings) { s.Recon = r }
}

// NewSettings builds a Settings value with defaults (single-threaded,
// default allocator, a no-op logger, a no-op reconstruction backend)
// overridden by opts.
func NewSettings(opts ...Option) Settings {
	s := Settings{
		NFrameThreads: 1,
		NTileThreads:  1,
		Allocator:     defaultAllocator(),
		Logger:        zap.NewNop(),
		Recon:         NoopReconOps{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
