package netutil

import (
	"fmt"
	"io"
)

// LimitedReader caps how much of a response body may be consumed. Record
// listings are served whole, so a body past the cap means a broken or
// hostile server, not a bigger collection; reading fails instead of
// truncating silently.
type LimitedReader struct {
	r      io.Reader
	limit  int64
	remain int64
}

// NewLimitedReader wraps r with a strict byte budget. Reads past the
// budget return a SizeLimitExceededError.
func NewLimitedReader(r io.Reader, limit int64) *LimitedReader {
	return &LimitedReader{r: r, limit: limit, remain: limit}
}

func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.remain <= 0 {
		return 0, &SizeLimitExceededError{Limit: l.limit}
	}
	if int64(len(p)) > l.remain {
		p = p[:l.remain]
	}
	n, err := l.r.Read(p)
	l.remain -= int64(n)
	return n, err
}

// SizeLimitExceededError reports a response body past the configured cap.
type SizeLimitExceededError struct {
	Limit int64
}

func (e *SizeLimitExceededError) Error() string {
	return fmt.Sprintf("response body exceeds %s", FormatSize(e.Limit))
}

// FormatSize renders a byte count for log lines and error messages.
func FormatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
