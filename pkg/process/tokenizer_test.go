package process

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/specdoc/pkg/utils"
)

func TestNewTokenCounter(t *testing.T) {
	counter, err := NewTokenCounter("cl100k_base")
	require.NoError(t, err)
	assert.True(t, counter.Exact())
	assert.Equal(t, "cl100k_base", counter.Encoding())
}

func TestNewTokenCounter_DefaultEncoding(t *testing.T) {
	counter, err := NewTokenCounter("")
	require.NoError(t, err)
	assert.Equal(t, "cl100k_base", counter.Encoding())
}

func TestNewTokenCounter_UnknownEncoding(t *testing.T) {
	counter, err := NewTokenCounter("klingon_base")

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrConfigValidation)
	require.NotNil(t, counter)
	assert.False(t, counter.Exact())
	assert.Equal(t, 2, counter.Count("12345678"))
}

func TestTokenCounter_Count(t *testing.T) {
	counter, err := NewTokenCounter("cl100k_base")
	require.NoError(t, err)

	count := counter.Count("Hello, world!")
	assert.Positive(t, count)
	// "Hello, world!" should be about 3-4 tokens
	assert.LessOrEqual(t, count, 10)
	assert.Equal(t, 0, counter.Count(""))
}

func TestTokenCounter_NilEstimates(t *testing.T) {
	var counter *TokenCounter
	text := "Hello, world! This is a test."

	assert.Equal(t, len(text)/4, counter.Count(text))
	assert.Equal(t, "estimate", counter.Encoding())
	assert.False(t, counter.Exact())
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text     string
		expected int
	}{
		{"", 0},
		{"test", 1},             // 4 chars / 4 = 1
		{"hello world", 2},      // 11 chars / 4 = 2
		{"12345678", 2},         // 8 chars / 4 = 2
		{"1234567890123456", 4}, // 16 chars / 4 = 4
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, estimateTokens(tt.text))
		})
	}
}

func TestTokenCounter_Concurrent(t *testing.T) {
	counter, err := NewTokenCounter("cl100k_base")
	require.NoError(t, err)
	want := counter.Count("## Section\nsome body text")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, counter.Count("## Section\nsome body text"))
		}()
	}
	wg.Wait()
}
