/*
Package docs serves shift attachments (observation write-ups, training
sign-offs) by shift ID.

The engine stores only the attachment path on the Shift; the bytes live
wherever the Store points. Missing documents surface as
scheduling.ErrNotFound so the API maps them to 404 like any other lookup.
*/
package docs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lrcstaff/shift-engine/scheduling"
)

// Store opens shift documents for download.
type Store interface {
	// Open returns the document attached to a shift, or
	// scheduling.ErrNotFound when the shift has none.
	Open(ctx context.Context, id scheduling.ShiftID) (io.ReadCloser, error)
}

// shiftLookup is the slice of the shift store needed here.
type shiftLookup interface {
	GetShift(ctx context.Context, id scheduling.ShiftID) (*scheduling.Shift, error)
}

// =============================================================================
// FILESYSTEM STORE
// =============================================================================

// FS serves documents from a root directory. Shift.Document is a path
// relative to that root.
type FS struct {
	Root   string
	Shifts shiftLookup
}

func NewFS(root string, shifts shiftLookup) *FS {
	return &FS{Root: root, Shifts: shifts}
}

func (f *FS) Open(ctx context.Context, id scheduling.ShiftID) (io.ReadCloser, error) {
	shift, err := f.Shifts.GetShift(ctx, id)
	if err != nil {
		return nil, err
	}
	if shift.Document == "" {
		return nil, scheduling.ErrNotFound
	}

	// Confine the path to the root; the stored value is operator input.
	rel := filepath.Clean("/" + shift.Document)
	full := filepath.Join(f.Root, rel)
	if !strings.HasPrefix(full, filepath.Clean(f.Root)+string(os.PathSeparator)) {
		return nil, scheduling.ErrNotFound
	}

	file, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, scheduling.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open document for shift %s: %w", id, err)
	}
	return file, nil
}
