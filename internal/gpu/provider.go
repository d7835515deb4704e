package gpu

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/RanmaKei/Video-Tools/internal/util"
)

// SMIProvider is the production InfoProvider. It shells out to nvidia-smi
// and parses its no-header CSV output. The fragile text handling stays
// behind this type; nothing above it sees raw tool output.
type SMIProvider struct {
	bin    string
	runner util.CmdRunner
}

// NewSMIProvider returns an InfoProvider backed by the given nvidia-smi path.
func NewSMIProvider(bin string, runner util.CmdRunner) *SMIProvider {
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	return &SMIProvider{bin: bin, runner: runner}
}

const queryFields = "index,name,utilization.gpu,memory.used,memory.total"

// Devices enumerates adapters via one nvidia-smi call.
func (p *SMIProvider) Devices(ctx context.Context) ([]Device, error) {
	rows, err := p.query(ctx)
	if err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(rows))
	for _, r := range rows {
		devices = append(devices, Device{
			Index:       r.index,
			Name:        r.name,
			MemoryTotal: r.memTotal,
		})
	}
	return devices, nil
}

// Sample returns a one-shot activity reading for the device at index.
func (p *SMIProvider) Sample(ctx context.Context, index int) (Activity, error) {
	rows, err := p.query(ctx)
	if err != nil {
		return Activity{}, err
	}
	for _, r := range rows {
		if r.index == index {
			return Activity{
				EngineUtil:  []float64{r.util},
				MemoryUsed:  r.memUsed,
				MemoryTotal: r.memTotal,
			}, nil
		}
	}
	return Activity{}, fmt.Errorf("device index %d not reported by nvidia-smi", index)
}

type smiRow struct {
	index    int
	name     string
	util     float64
	memUsed  int64
	memTotal int64
}

func (p *SMIProvider) query(ctx context.Context) ([]smiRow, error) {
	res, err := p.runner.Run(ctx, util.CmdSpec{
		Path: p.bin,
		Args: []string{
			"--query-gpu=" + queryFields,
			"--format=csv,noheader,nounits",
		},
		CaptureStdout: true,
	})
	if err != nil {
		return nil, fmt.Errorf("nvidia-smi: %w", err)
	}
	return parseSMI(string(res.Stdout))
}

// parseSMI parses lines like "0, NVIDIA GeForce RTX 3080, 45, 9277, 10240".
// Memory figures arrive in MiB with nounits.
func parseSMI(out string) ([]smiRow, error) {
	var rows []smiRow
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			return nil, fmt.Errorf("invalid nvidia-smi line: %q", line)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid device index in %q", line)
		}
		utilPct, _ := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		memUsed, _ := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
		memTotal, _ := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
		rows = append(rows, smiRow{
			index:    idx,
			name:     strings.TrimSpace(fields[1]),
			util:     utilPct,
			memUsed:  memUsed << 20,
			memTotal: memTotal << 20,
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("nvidia-smi produced no device rows")
	}
	return rows, nil
}

// StaticProvider serves fixed data. It backs tests and the --gpu override
// path where no live sampling is possible.
type StaticProvider struct {
	DeviceList []Device
	Activities map[int]Activity
	SampleErr  error
}

// Devices implements InfoProvider.
func (s *StaticProvider) Devices(_ context.Context) ([]Device, error) {
	return s.DeviceList, nil
}

// Sample implements InfoProvider.
func (s *StaticProvider) Sample(_ context.Context, index int) (Activity, error) {
	if s.SampleErr != nil {
		return Activity{}, s.SampleErr
	}
	act, ok := s.Activities[index]
	if !ok {
		return Activity{}, fmt.Errorf("no activity data for device %d", index)
	}
	return act, nil
}
