// Package prompt implements interactive operator confirmation for remote
// mutations such as triggering a re-signature.
package prompt

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// TerminalPrompter asks the operator for confirmation on a terminal.
// Non-interactive runs (piped stdin, CI, Lambda) never block: the
// configured fallback decision applies instead.
type TerminalPrompter struct {
	// AssumeYes is the decision used when no terminal is attached.
	AssumeYes bool
}

// NewTerminalPrompter creates a prompter that denies mutations when no
// terminal is attached.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Confirm asks the operator whether to proceed with the described mutation.
func (p *TerminalPrompter) Confirm(description string) (bool, error) {
	if !p.IsInteractive() {
		if !p.AssumeYes {
			fmt.Fprintf(os.Stderr, "  %s\n", description)
			fmt.Fprintf(os.Stderr, "  Denied: running non-interactively. Pass --yes to proceed without a prompt.\n")
		}
		return p.AssumeYes, nil
	}

	const (
		OptionYes = "Yes, proceed"
		OptionNo  = "No, abort"
	)

	var selection string

	err := huh.NewSelect[string]().
		Title("Confirm Remote Mutation").
		Description(description).
		Options(
			huh.NewOption(OptionYes, OptionYes),
			huh.NewOption(OptionNo, OptionNo),
		).
		Value(&selection).
		Run()
	if err != nil {
		return false, err
	}

	return selection == OptionYes, nil
}

// AutoApprover is a Confirmer that always answers the same way. It backs
// the --yes flag and scheduled runs where no operator is present.
type AutoApprover struct {
	Answer bool
}

func (a AutoApprover) Confirm(string) (bool, error) {
	return a.Answer, nil
}
