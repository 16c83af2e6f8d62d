//go:build linux

package mmap

import "golang.org/x/sys/unix"

// tryMremap attempts to use Linux mremap for efficient resizing. Going
// through unix.Mremap keeps the package's mapping table consistent so the
// moved region can still be passed to Munmap.
func (m *Map) tryMremap(newSize int) ([]byte, error) {
	return unix.Mremap(m.data, newSize, unix.MREMAP_MAYMOVE)
}
