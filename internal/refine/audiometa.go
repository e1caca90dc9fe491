package refine

import (
	"context"
	"fmt"

	"github.com/simonhull/audiometa"

	"github.com/lecternapp/lectern/internal/errors"
)

// AudiometaProber probes durations by parsing the audio container headers.
type AudiometaProber struct{}

// NewAudiometaProber creates the default prober.
func NewAudiometaProber() *AudiometaProber {
	return &AudiometaProber{}
}

// Probe returns the file's duration in milliseconds.
func (p *AudiometaProber) Probe(ctx context.Context, path string) (int64, error) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return 0, errors.MetadataProbe(fmt.Sprintf("open %s", path)).WithCause(err)
	}
	defer file.Close() //nolint:errcheck // Read-only handle, nothing to do on close failure

	durationMs := file.Audio.Duration.Milliseconds()
	if durationMs <= 0 {
		return 0, errors.MetadataProbe(fmt.Sprintf("no duration in %s", path))
	}
	return durationMs, nil
}
