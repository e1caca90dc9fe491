package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIs_MatchesByCode(t *testing.T) {
	err := FileUnavailable("bookmark points at a deleted file")
	assert.True(t, Is(err, ErrFileUnavailable))
	assert.False(t, Is(err, ErrInvalidNavigation))
}

func TestErrorIs_MatchesThroughWrapping(t *testing.T) {
	inner := EngineLoad("codec rejected file")
	wrapped := fmt.Errorf("loading playlist: %w", inner)

	assert.True(t, Is(wrapped, ErrEngineLoad))

	var domainErr *Error
	require.True(t, As(wrapped, &domainErr))
	assert.Equal(t, CodeEngineLoad, domainErr.Code)
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk error")
	err := Wrap(cause, CodeStateLoad, "could not read playback state")

	assert.Equal(t, cause, Unwrap(err))
	assert.Contains(t, err.Error(), "could not read playback state")
	assert.Contains(t, err.Error(), "disk error")
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		code Code
		want Severity
	}{
		{CodeEngineLoad, SeveritySession},
		{CodeFileUnavailable, SeverityRecoverable},
		{CodeInvalidNavigation, SeverityRecoverable},
		{CodeStateLoad, SeverityRecoverable},
		{CodeOsAction, SeverityBackground},
		{CodeMetadataProbe, SeverityBackground},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Severity())
		})
	}
}

func TestWithDetails(t *testing.T) {
	err := InvalidNavigation("loop end before loop start").WithDetails(map[string]int64{
		"loop_start_ms": 5000,
		"loop_end_ms":   3000,
	})
	assert.Equal(t, CodeInvalidNavigation, err.Code)
	assert.NotNil(t, err.Details)
}
