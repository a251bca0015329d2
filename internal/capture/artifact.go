package capture

import "time"

// Artifact is the finalized audio payload produced by a successful Stop.
// The payload is already in delivery encoding (MP3); recoding is the
// recorder's job, not the consumer's.
type Artifact struct {
	Data       []byte
	MIME       string
	Duration   time.Duration
	SampleRate int
	Channels   int
}
