// Package clipboard wraps the OS clipboard behind a port so the publish
// pipeline can treat the post-publish copy as best-effort.
package clipboard

import (
	"github.com/atotto/clipboard"

	perr "gitstr/internal/platform/errors"
)

// Writer copies text to wherever the implementation points
type Writer interface {
	Write(text string) error
}

// System writes to the OS clipboard
type System struct{}

// Write implements Writer
func (System) Write(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeClipboardWrite, "clipboard write failed")
	}
	return nil
}

// Discard drops everything; used when the host has no clipboard
type Discard struct{}

// Write implements Writer
func (Discard) Write(string) error { return nil }
