package netutil

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitedReader_UnderBudget(t *testing.T) {
	t.Parallel()

	body, err := io.ReadAll(NewLimitedReader(strings.NewReader("hello"), 64))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestLimitedReader_OverBudget(t *testing.T) {
	t.Parallel()

	_, err := io.ReadAll(NewLimitedReader(strings.NewReader("a very large listing"), 5))
	require.Error(t, err)

	var limitErr *SizeLimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, int64(5), limitErr.Limit)
	assert.Contains(t, limitErr.Error(), "5 bytes")
}

func TestLimitedReader_PartialBytesAreKept(t *testing.T) {
	t.Parallel()

	// The bytes within budget are still delivered before the error.
	r := NewLimitedReader(strings.NewReader("abcdef"), 4)
	buf := make([]byte, 10)

	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf[:n]))

	_, err = r.Read(buf)
	assert.Error(t, err)
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 bytes"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
		{100 * 1024 * 1024, "100.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.bytes))
	}
}
