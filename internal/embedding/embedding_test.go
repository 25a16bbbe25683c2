package embedding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ragforge/internal/ragerr"
)

func TestValidateDimensionMismatch(t *testing.T) {
	dims := IndexDimensions{"scopeEmbeddings": 768}

	err := validateDimension(dims, "scopeEmbeddings", make([]float32, 512))
	assert.True(t, ragerr.Is(err, ragerr.EmbedDimensionMismatch))

	err = validateDimension(dims, "scopeEmbeddings", make([]float32, 768))
	assert.NoError(t, err)
}

func TestValidateDimensionUnknownIndex(t *testing.T) {
	err := validateDimension(IndexDimensions{}, "missing", make([]float32, 10))
	assert.True(t, ragerr.Is(err, ragerr.IndexMissing))
}

func TestValidateInputSizeTooLarge(t *testing.T) {
	huge := strings.Repeat("a", maxInputChars+1)
	err := validateInputSize(huge)
	assert.True(t, ragerr.Is(err, ragerr.EmbedInputTooLarge))
}

func TestIsRateLimitMessage(t *testing.T) {
	assert.True(t, isRateLimitMessage("429 Too Many Requests"))
	assert.True(t, isRateLimitMessage("RESOURCE_EXHAUSTED: quota exceeded"))
	assert.False(t, isRateLimitMessage("invalid argument"))
}
