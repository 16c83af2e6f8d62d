package bufcursor

import (
	"sync"
	"unicode/utf8"

	"github.com/zeebo/xxh3"
)

// ByteString holds a text value and its UTF-8 encoding. Whichever form it
// is built from is authoritative; the other is derived on first use and
// cached. A ByteString is immutable and safe to share once built.
type ByteString struct {
	s *byteStringData
}

type byteStringData struct {
	once  sync.Once
	text  string
	raw   []byte
	fromB bool
}

// NewByteString returns a ByteString built from text.
func NewByteString(s string) ByteString {
	return ByteString{s: &byteStringData{text: s}}
}

// NewByteStringBytes returns a ByteString built from UTF-8 bytes. The slice
// is retained; callers must not modify it afterwards.
func NewByteStringBytes(b []byte) ByteString {
	return ByteString{s: &byteStringData{raw: b, fromB: true}}
}

func (b ByteString) resolve() *byteStringData {
	d := b.s
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		if d.fromB {
			d.text = string(d.raw)
		} else {
			d.raw = []byte(d.text)
		}
	})
	return d
}

// String returns the text form.
func (b ByteString) String() string {
	if d := b.resolve(); d != nil {
		return d.text
	}
	return ""
}

// Bytes returns the UTF-8 form. The returned slice must not be modified.
func (b ByteString) Bytes() []byte {
	if d := b.resolve(); d != nil {
		return d.raw
	}
	return nil
}

// Length returns the number of Unicode code points, not UTF-16 units: a
// character outside the Basic Multilingual Plane counts once.
func (b ByteString) Length() int {
	return utf8.RuneCountInString(b.String())
}

// Size returns the number of encoded bytes.
func (b ByteString) Size() int {
	if b.s == nil {
		return 0
	}
	if b.s.fromB {
		return len(b.s.raw)
	}
	return len(b.s.text)
}

// Equal compares the text forms.
func (b ByteString) Equal(other ByteString) bool {
	return b.String() == other.String()
}

// Hash returns the xxh3 hash of the text form. Equal values hash equally.
func (b ByteString) Hash() uint64 {
	return xxh3.HashString(b.String())
}
