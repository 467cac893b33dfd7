package slipstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskSave(t *testing.T) {
	dir := t.TempDir()
	d := NewDisk(dir, 1024)

	ref, err := d.Save(context.Background(), 42, "receipt.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "payment_slips/slip_42_"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(ref)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestDiskRejectsType(t *testing.T) {
	d := NewDisk(t.TempDir(), 0)
	_, err := d.Save(context.Background(), 1, "script.exe", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDiskRejectsOversize(t *testing.T) {
	dir := t.TempDir()
	d := NewDisk(dir, 4)
	_, err := d.Save(context.Background(), 1, "slip.pdf", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
