package preset

import (
	"fmt"
)

// Scale factor bounds supported by the upscaling tool.
const (
	MinScale = 1
	MaxScale = 4
)

// Mode describes how target dimensions were derived.
type Mode string

const (
	ModeMatchSource Mode = "match_source"
	ModeFixed       Mode = "fixed"
)

// TargetSpec is the resolved output geometry for a preset+source pair.
type TargetSpec struct {
	Width  int
	Height int
	Mode   Mode
}

// AdvisoryKind classifies a waste warning. Advisories never change the
// resolved target; they only feed the operator confirmation gate.
type AdvisoryKind int

const (
	// AdvisoryNoGain: source already equals the target resolution.
	AdvisoryNoGain AdvisoryKind = iota
	// AdvisoryWasteful: the pre-normalization frame exceeds the target while
	// the target does not exceed the source, i.e. upscale-then-downscale.
	AdvisoryWasteful
)

// Advisory is a non-fatal warning raised during resolution.
type Advisory struct {
	Kind    AdvisoryKind
	Message string
}

// Resolution is the complete outcome of resolving a preset against a source.
type Resolution struct {
	Target     TargetSpec
	Factor     int // required upscale factor, clamped to [MinScale, MaxScale]
	PreWidth   int // frame size after upscaling, before normalization
	PreHeight  int
	Advisories []Advisory
}

// NeedsNormalize reports whether the upscaled frames must be geometry-
// transformed to reach the exact target size.
func (r Resolution) NeedsNormalize() bool {
	return r.PreWidth != r.Target.Width || r.PreHeight != r.Target.Height
}

// Resolve computes the target spec, required upscale factor, and advisories
// for a preset applied to a source of srcW x srcH.
//
// The factor is ceil(max(targetW/srcW, targetH/srcH)) clamped to
// [MinScale, MaxScale], which guarantees the pre-normalization frame is at
// least the target size in both dimensions whenever the clamp does not bind.
func Resolve(p Preset, srcW, srcH int) (Resolution, error) {
	if srcW <= 0 || srcH <= 0 {
		return Resolution{}, fmt.Errorf("source resolution %dx%d is not usable", srcW, srcH)
	}

	var spec TargetSpec
	if p.MatchesSource() {
		spec = TargetSpec{Width: srcW, Height: srcH, Mode: ModeMatchSource}
	} else {
		w, h, err := parseResolution(p.Resolution)
		if err != nil {
			return Resolution{}, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		spec = TargetSpec{Width: w, Height: h, Mode: ModeFixed}
	}

	factor := ceilDiv(spec.Width, srcW)
	if f := ceilDiv(spec.Height, srcH); f > factor {
		factor = f
	}
	if factor < MinScale {
		factor = MinScale
	}
	if factor > MaxScale {
		factor = MaxScale
	}

	res := Resolution{
		Target:    spec,
		Factor:    factor,
		PreWidth:  srcW * factor,
		PreHeight: srcH * factor,
	}

	if srcW == spec.Width && srcH == spec.Height {
		res.Advisories = append(res.Advisories, Advisory{
			Kind: AdvisoryNoGain,
			Message: fmt.Sprintf("source is already %dx%d; upscaling offers limited benefit",
				srcW, srcH),
		})
	} else if res.PreWidth >= spec.Width && res.PreHeight >= spec.Height &&
		(spec.Width <= srcW || spec.Height <= srcH) {
		res.Advisories = append(res.Advisories, Advisory{
			Kind: AdvisoryWasteful,
			Message: fmt.Sprintf("upscaling %dx%d by %dx to %dx%d only to reduce to %dx%d wastes GPU time",
				srcW, srcH, factor, res.PreWidth, res.PreHeight, spec.Width, spec.Height),
		})
	}

	return res, nil
}

// ceilDiv returns ceil(a/b) for positive ints.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
