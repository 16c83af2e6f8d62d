//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// Anon commits length bytes of zeroed, read-write memory.
func Anon(length int) (*Map, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}

	data, err := virtualAlloc(length)
	if err != nil {
		return nil, err
	}

	return &Map{
		data: data,
		size: int64(length),
	}, nil
}

func virtualAlloc(length int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(length), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, &Error{Op: "VirtualAlloc", Err: err}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length), nil
}

func virtualFree(data []byte) error {
	if err := windows.VirtualFree(uintptr(unsafe.Pointer(&data[0])), 0, windows.MEM_RELEASE); err != nil {
		return &Error{Op: "VirtualFree", Err: err}
	}
	return nil
}

// Close releases the region.
func (m *Map) Close() error {
	if m.data == nil {
		return nil
	}

	err := virtualFree(m.data)
	m.data = nil
	m.size = 0
	return err
}

// Grow resizes the region to newSize bytes. The first keep bytes survive.
func (m *Map) Grow(newSize int64, keep int) error {
	if err := checkGrow(m, newSize, keep); err != nil {
		return err
	}

	if newSize == m.size {
		return nil
	}

	newData, err := virtualAlloc(int(newSize))
	if err != nil {
		return err
	}
	copy(newData, m.data[:keep])

	if err := virtualFree(m.data); err != nil {
		virtualFree(newData)
		return err
	}

	m.data = newData
	m.size = newSize
	return nil
}
