package libkoki

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openLibc loads the C library, which exports none of the koki symbols.
func openLibc(t *testing.T) unsafe.Pointer {
	t.Helper()
	handle, err := dlOpen("libc.so.6")
	if err != nil {
		t.Skipf("libc.so.6 not loadable: %v", err)
	}
	t.Cleanup(func() { dlClose(handle) })
	return handle
}

func TestBind_MissingRequiredSymbol(t *testing.T) {
	handle := openLibc(t)

	_, err := bind(handle, Signatures, NativeLayouts())

	require.ErrorIs(t, err, ErrSymbolBinding)
	var symErr *SymbolError
	require.True(t, errors.As(err, &symErr))
	assert.Equal(t, SymOpenCam, symErr.Symbol)
}

func TestBind_MissingOptionalSymbol(t *testing.T) {
	handle := openLibc(t)

	var optional []Signature
	for _, sig := range Signatures {
		if sig.Symbol == SymMarkersFree {
			optional = append(optional, sig)
		}
	}
	require.Len(t, optional, 1)
	require.True(t, optional[0].Optional)

	sym, err := bind(handle, optional, NativeLayouts())

	require.NoError(t, err)
	assert.Nil(t, sym.markersFree)
}

func TestOpen_LibraryWithoutKokiSymbols(t *testing.T) {
	var libc string
	for _, p := range []string{
		"/lib/x86_64-linux-gnu/libc.so.6",
		"/usr/lib/x86_64-linux-gnu/libc.so.6",
		"/lib/aarch64-linux-gnu/libc.so.6",
		"/usr/lib/aarch64-linux-gnu/libc.so.6",
		"/lib64/libc.so.6",
		"/usr/lib64/libc.so.6",
		"/usr/lib/libc.so.6",
	} {
		if _, err := os.Stat(p); err == nil {
			libc = p
			break
		}
	}
	if libc == "" {
		t.Skip("no libc.so.6 found")
	}

	dir := t.TempDir()
	require.NoError(t, os.Symlink(libc, filepath.Join(dir, LibraryName)))
	logger, hook := test.NewNullLogger()

	lib, err := Open(dir, WithLogger(logger))

	assert.Nil(t, lib, "no partially bound library is returned")
	require.ErrorIs(t, err, ErrSymbolBinding)
	var symErr *SymbolError
	require.True(t, errors.As(err, &symErr))
	assert.Equal(t, SymOpenCam, symErr.Symbol)
	require.NotNil(t, hook.LastEntry())
}
