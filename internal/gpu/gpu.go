// Package gpu enumerates compute devices and decides whether placing new
// work on one is safe. All utilization knowledge comes from a narrow
// InfoProvider so orchestration logic is testable without parsing real
// tool output.
package gpu

import (
	"context"
	"fmt"
)

// Device is one enumerated adapter. Recomputed per check, never persisted.
type Device struct {
	Index       int
	Name        string
	MemoryTotal int64 // bytes; 0 when the backend exposes no limit counter
}

// Activity is a one-shot utilization/memory sample for a device. A device
// may report several engine instances (3D, compute, copy); they are
// aggregated by maximum, never summed, because parallel engines can each
// independently approach 100%.
type Activity struct {
	EngineUtil  []float64 // percent per engine instance
	MemoryUsed  int64     // bytes
	MemoryTotal int64     // bytes; 0 = unknown
}

// InfoProvider is the narrow device-info surface. The production adapter
// parses nvidia-smi text; tests use a fixed-data adapter.
type InfoProvider interface {
	Devices(ctx context.Context) ([]Device, error)
	Sample(ctx context.Context, index int) (Activity, error)
}

// DetectorConfig tunes busy classification.
type DetectorConfig struct {
	// BusyPct is the inclusive utilization / memory-percent threshold.
	BusyPct float64
	// UtilFloorPct filters sensor noise: engines below it count as idle.
	UtilFloorPct float64
	// MemFloorBytes filters baseline allocations when deciding "active".
	MemFloorBytes int64
	// AbsMemFloorBytes is the absolute-usage fallback applied when the
	// device exposes no memory-limit counter.
	AbsMemFloorBytes int64
}

// DefaultDetectorConfig returns the stock thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		BusyPct:          50,
		UtilFloorPct:     3,
		MemFloorBytes:    256 << 20,
		AbsMemFloorBytes: 1 << 30,
	}
}

// Status is one busy-check outcome.
type Status struct {
	Busy    bool
	UtilPct float64 // max engine utilization after noise filtering
	MemPct  float64 // -1 when the memory limit is unknown
	Reason  string  // human-readable trigger, empty when not busy
}

// Detector classifies devices as busy or free from one-shot samples.
type Detector struct {
	provider InfoProvider
	cfg      DetectorConfig
}

// NewDetector builds a Detector. A zero BusyPct falls back to the default.
func NewDetector(p InfoProvider, cfg DetectorConfig) *Detector {
	def := DefaultDetectorConfig()
	if cfg.BusyPct <= 0 {
		cfg.BusyPct = def.BusyPct
	}
	if cfg.UtilFloorPct <= 0 {
		cfg.UtilFloorPct = def.UtilFloorPct
	}
	if cfg.MemFloorBytes <= 0 {
		cfg.MemFloorBytes = def.MemFloorBytes
	}
	if cfg.AbsMemFloorBytes <= 0 {
		cfg.AbsMemFloorBytes = def.AbsMemFloorBytes
	}
	return &Detector{provider: p, cfg: cfg}
}

// Check samples the device once and classifies it. The busy threshold is
// inclusive: a device at exactly BusyPct counts as busy.
func (d *Detector) Check(ctx context.Context, index int) (Status, error) {
	act, err := d.provider.Sample(ctx, index)
	if err != nil {
		return Status{}, fmt.Errorf("sample device %d: %w", index, err)
	}
	return d.classify(act), nil
}

func (d *Detector) classify(act Activity) Status {
	util := 0.0
	for _, u := range act.EngineUtil {
		if u < d.cfg.UtilFloorPct {
			continue // sensor noise
		}
		if u > util {
			util = u
		}
	}

	st := Status{UtilPct: util, MemPct: -1}
	if act.MemoryTotal > 0 {
		st.MemPct = 100 * float64(act.MemoryUsed) / float64(act.MemoryTotal)
	}

	switch {
	case util >= d.cfg.BusyPct:
		st.Busy = true
		st.Reason = fmt.Sprintf("engine utilization %.0f%% >= %.0f%%", util, d.cfg.BusyPct)
	case st.MemPct >= 0 && st.MemPct >= d.cfg.BusyPct:
		st.Busy = true
		st.Reason = fmt.Sprintf("dedicated memory %.0f%% >= %.0f%%", st.MemPct, d.cfg.BusyPct)
	case st.MemPct < 0 && act.MemoryUsed >= d.cfg.AbsMemFloorBytes:
		st.Busy = true
		st.Reason = fmt.Sprintf("dedicated memory %d bytes with no limit counter", act.MemoryUsed)
	}
	return st
}

// Active reports whether the sample shows any real load above the noise
// floors. Used for display, not gating.
func (d *Detector) Active(act Activity) bool {
	for _, u := range act.EngineUtil {
		if u >= d.cfg.UtilFloorPct {
			return true
		}
	}
	return act.MemoryUsed >= d.cfg.MemFloorBytes
}
