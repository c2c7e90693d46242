// Package command provides safety validation for stored shell commands.
package command

import (
	"fmt"
	"strings"
)

// unsafeChars are the shell metacharacters a command may not contain.
// Each of them lets a command chain, redirect, or substitute its way past
// the single-command contract of an execution sandbox.
const unsafeChars = ";&|`<>$"

// UnsafeCommandError reports the first rejected metacharacter in a command.
type UnsafeCommandError struct {
	Command string
	Char    rune
}

func (e *UnsafeCommandError) Error() string {
	return fmt.Sprintf("command contains unsafe character %q", e.Char)
}

// Validate checks a shell command against the metacharacter denylist.
// It returns nil for an acceptable command, an *UnsafeCommandError for a
// rejected one, and a plain error for an empty command.
//
// This is a denylist, not a sandbox: it only blocks shell-metacharacter
// injection through this execution path. It performs no escaping analysis
// and is not a complete security boundary; isolation comes from the sandbox
// the command runs in.
func Validate(cmd string) error {
	if strings.TrimSpace(cmd) == "" {
		return fmt.Errorf("command must not be empty")
	}
	if i := strings.IndexAny(cmd, unsafeChars); i >= 0 {
		return &UnsafeCommandError{Command: cmd, Char: rune(cmd[i])}
	}
	return nil
}
