//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package mmap

import "errors"

// tryMremap is not available outside Linux, always returns error to trigger fallback.
func (m *Map) tryMremap(newSize int) ([]byte, error) {
	return nil, errors.New("mremap not available")
}
