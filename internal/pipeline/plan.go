package pipeline

import (
	"context"
	"fmt"

	"github.com/RanmaKei/Video-Tools/internal/encode"
	"github.com/RanmaKei/Video-Tools/internal/job"
	"github.com/RanmaKei/Video-Tools/internal/model"
	"github.com/RanmaKei/Video-Tools/internal/preset"
)

// Plan is the computed plan for one source, for dry-run introspection.
// Nothing in it has touched the filesystem beyond the probe.
type Plan struct {
	Source     model.SourceVideo
	Preset     preset.Preset
	Resolution preset.Resolution
	OutputPath string
	JobDir     string
	DeviceTag  string
	Exists     bool // an output artifact is already present
}

// PlanJob probes a source and computes everything RunJob would do, without
// extracting, upscaling, or encoding.
func (s *Service) PlanJob(ctx context.Context, path string) (Plan, error) {
	var pl Plan

	p, err := s.catalog.Get(s.opts.Preset)
	if err != nil {
		return pl, err
	}
	pl.Preset = p

	source, err := s.probeSource(ctx, path)
	if err != nil {
		return pl, err
	}
	pl.Source = source

	resolution, err := preset.Resolve(p, source.Width, source.Height)
	if err != nil {
		return pl, fmt.Errorf("resolve preset %s: %w", p.Name, err)
	}
	pl.Resolution = resolution

	if err := s.pickDevice(ctx); err != nil {
		return pl, err
	}
	pl.DeviceTag = s.deviceTag
	j := job.New(s.opts.WorkRoot, s.deviceTag, path)
	pl.JobDir = j.Dir

	pl.OutputPath = encode.OutputPath(j.Name, p, s.opts.OutDir, s.deviceTag)
	pl.Exists = s.checkExisting(ctx, source, pl.OutputPath, resolution) != nil
	return pl, nil
}
