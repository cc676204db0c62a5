package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoApprover(t *testing.T) {
	t.Parallel()

	ok, err := AutoApprover{Answer: true}.Confirm("resign blocklists/gfx")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AutoApprover{Answer: false}.Confirm("resign blocklists/gfx")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTerminalPrompter_NonInteractiveFallback(t *testing.T) {
	// Test processes run without a TTY on stdin, so the prompter takes
	// the fallback path.
	p := NewTerminalPrompter()
	if p.IsInteractive() {
		t.Skip("stdin is a terminal")
	}

	ok, err := p.Confirm("resign blocklists/gfx")
	require.NoError(t, err)
	assert.False(t, ok)

	p.AssumeYes = true
	ok, err = p.Confirm("resign blocklists/gfx")
	require.NoError(t, err)
	assert.True(t, ok)
}
