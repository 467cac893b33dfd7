// Package slipstore saves payment evidence uploads and hands back a
// reference string that is stored on the booking.
package slipstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/hall-reservation/internal/apperror"
)

// Rejections are validation errors on the "slip" field so that callers
// report them as bad input.
var (
	ErrUnsupportedType = apperror.Validation("slip", "file type must be jpg, jpeg, png or pdf")
	ErrTooLarge        = apperror.Validation("slip", "file is too large")
)

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true}

// Disk writes slips directly into dir.  References have the form
// payment_slips/slip_<booking>_<uuid>.<ext>, matching the default
// SLIP_DIR of uploads/payment_slips when served from uploads/.
type Disk struct {
	dir      string
	maxBytes int64
}

// NewDisk returns a Disk rooted at dir.  maxBytes of zero disables the
// size check.
func NewDisk(dir string, maxBytes int64) *Disk {
	return &Disk{dir: dir, maxBytes: maxBytes}
}

// Check validates the file name before anything is read.
func (d *Disk) Check(filename string) error {
	if !allowedExt[strings.ToLower(filepath.Ext(filename))] {
		return ErrUnsupportedType
	}
	return nil
}

// Save copies r to a new file and returns its reference.  A partially
// written file is removed on error.
func (d *Disk) Save(ctx context.Context, bookingID uint64, filename string, r io.Reader) (string, error) {
	if err := d.Check(filename); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("slip_%d_%s%s", bookingID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
	full := filepath.Join(d.dir, name)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	src := r
	if d.maxBytes > 0 {
		src = io.LimitReader(r, d.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && d.maxBytes > 0 && n > d.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return "", err
	}
	return filepath.ToSlash(filepath.Join("payment_slips", name)), nil
}
