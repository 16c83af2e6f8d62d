//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package mmap

import (
	"golang.org/x/sys/unix"
)

// Anon maps length bytes of zeroed, private, read-write memory.
func Anon(length int) (*Map, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}

	data, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, &Error{Op: "mmap", Err: err}
	}

	return &Map{
		data: data,
		size: int64(length),
	}, nil
}

// Close releases the memory mapping.
func (m *Map) Close() error {
	if m.data == nil {
		return nil
	}

	err := unix.Munmap(m.data)
	m.data = nil
	m.size = 0
	return err
}

// Grow resizes the region to newSize bytes. The first keep bytes survive;
// anything after them is unspecified. The region may move, so previously
// returned Data slices must not be used afterwards.
func (m *Map) Grow(newSize int64, keep int) error {
	if err := checkGrow(m, newSize, keep); err != nil {
		return err
	}

	if newSize == m.size {
		return nil
	}

	// Try mremap on Linux
	newData, err := m.tryMremap(int(newSize))
	if err == nil {
		m.data = newData
		m.size = newSize
		return nil
	}

	// Fallback: map, copy, unmap
	newData, err = unix.Mmap(-1, 0, int(newSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return &Error{Op: "mmap for grow", Err: err}
	}
	copy(newData, m.data[:keep])

	if err := unix.Munmap(m.data); err != nil {
		unix.Munmap(newData)
		return &Error{Op: "munmap for grow", Err: err}
	}

	m.data = newData
	m.size = newSize
	return nil
}
