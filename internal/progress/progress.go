package progress

// Stage identifies a high-level step in the upscaling pipeline.
type Stage string

const (
	StageProbing     Stage = "probing"
	StageExtracting  Stage = "extracting"
	StageUpscaling   Stage = "upscaling"
	StageNormalizing Stage = "normalizing"
	StageEncoding    Stage = "encoding"
	StageValidating  Stage = "validating"
	StageCompleted   Stage = "completed"
	StageSkipped     Stage = "skipped"
	StageError       Stage = "error"
)

// LogStream indicates which stream produced a log line.
type LogStream int

const (
	StreamStdout LogStream = iota
	StreamStderr
)

// Update conveys progress or stage changes for a video.
// Percent is 0..100 when known; set to a negative value (e.g., -1) to mean unknown.
type Update struct {
	Video   string
	Stage   Stage
	Percent float64 // 0..100, or <0 if unknown
	Message string  // short human-friendly status line
}

// Log is a structured log line associated with a video.
type Log struct {
	Video  string
	Stream LogStream
	Line   string
}

// Result is emitted once per video when it completes or fails.
type Result struct {
	Video      string
	OutputPath string
	Bytes      int64
	Skipped    bool
	Err        error // nil on success
}

// Reporter is implemented by UI or any observer interested in progress events.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}

// Nop discards all events. Used when no observer is attached.
type Nop struct{}

func (Nop) Update(Update) {}
func (Nop) Log(Log)       {}
func (Nop) Result(Result) {}
