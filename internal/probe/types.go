package probe

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename   string
	NbStreams  int
	FormatName string
	Duration   float64
	Size       int64
	BitRate    int64
}

// VideoStream holds the parsed properties of a single video stream.
type VideoStream struct {
	Index          int
	Codec          string
	PixFmt         string
	Width          int
	Height         int
	BitRate        int64
	ColorTransfer  string
	ColorPrimaries string
	ColorSpace     string
	IsAttachedPic  bool
	AvgFrameRate   string
}

// AudioStream holds the parsed properties of a single audio stream.
type AudioStream struct {
	Index         int
	Codec         string
	Channels      int
	ChannelLayout string
	SampleRate    int
	BitRate       int64
}

// Result is the fully parsed output of a single ffprobe JSON call.
// PrimaryVideo is the first non-attached-pic video stream (nil if none).
type Result struct {
	Format       FormatInfo
	PrimaryVideo *VideoStream
	AudioStreams []AudioStream
}

// HasVideo reports whether a usable video stream was found.
func (r *Result) HasVideo() bool {
	return r.PrimaryVideo != nil && r.PrimaryVideo.Width > 0 && r.PrimaryVideo.Height > 0
}

// HasAudio reports whether at least one audio stream was found.
func (r *Result) HasAudio() bool {
	return len(r.AudioStreams) > 0
}

// FrameRate returns the primary video stream's framerate reduced to a
// decimal, or fallback when the stream is missing or the rational is
// degenerate.
func (r *Result) FrameRate(fallback float64) float64 {
	if r.PrimaryVideo == nil {
		return fallback
	}
	return ParseFrameRate(r.PrimaryVideo.AvgFrameRate, fallback)
}
