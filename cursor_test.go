package bufcursor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"testing"
	"unsafe"

	"github.com/Giulio2002/bufcursor/codec"
)

func newTestCursor(t *testing.T, store Store, opts *Options) *BufferCursor {
	t.Helper()
	c, err := New(store, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

func TestEnglandFranceIteration(t *testing.T) {
	store := newFakeStore(false)
	c := newTestCursor(t, store, nil)

	for _, kv := range [][2]string{{"England", "London"}, {"France", "Paris"}} {
		if err := c.KeyWriteUtf8(kv[0]); err != nil {
			t.Fatalf("KeyWriteUtf8 failed: %v", err)
		}
		if err := c.ValWriteUtf8(kv[1]); err != nil {
			t.Fatalf("ValWriteUtf8 failed: %v", err)
		}
		ok, err := c.Put()
		if err != nil || !ok {
			t.Fatalf("Put(%s) = %v, %v", kv[0], ok, err)
		}
	}

	store.readOnly = true
	r := newTestCursor(t, store, nil)

	var keys, vals []string
	ok, err := r.First()
	for ; ok && err == nil; ok, err = r.Next() {
		keys = append(keys, r.KeyUtf8(0).String())
		vals = append(vals, r.ValUtf8(0).String())
	}
	if err != nil {
		t.Fatalf("iteration failed: %v", err)
	}
	if strings.Join(keys, ",") != "England,France" {
		t.Errorf("keys: got %q, want %q", keys, []string{"England", "France"})
	}
	if strings.Join(vals, ",") != "London,Paris" {
		t.Errorf("values: got %q, want %q", vals, []string{"London", "Paris"})
	}
}

func TestNavigationAliasesEngineMemory(t *testing.T) {
	store := newFakeStore(false, "a", "1", "b", "2")
	c := newTestCursor(t, store, nil)

	ok, err := c.First()
	if err != nil || !ok {
		t.Fatalf("First = %v, %v", ok, err)
	}
	if !c.KeyAliased() || !c.ValAliased() {
		t.Fatal("both sides should alias engine memory after First")
	}
	if c.KeyAddr() != addrOf(store.items[0].k) {
		t.Error("key view does not alias the stored key")
	}
	if c.ValAddr() != addrOf(store.items[0].v) {
		t.Error("value view does not alias the stored value")
	}
	if !bytes.Equal(c.KeyBuffer().Bytes(), []byte("a")) {
		t.Errorf("key view: got %q, want %q", c.KeyBuffer().Bytes(), "a")
	}
}

func TestNotFoundLeavesViewsUnchanged(t *testing.T) {
	empty := newFakeStore(false)
	c := newTestCursor(t, empty, nil)

	ok, err := c.First()
	if err != nil {
		t.Fatalf("First on empty store failed: %v", err)
	}
	if ok {
		t.Fatal("First on empty store should report not found")
	}
	if c.KeyAliased() || c.ValAliased() {
		t.Error("not found must not alias the views")
	}

	store := newFakeStore(false, "a", "1", "b", "2")
	c = newTestCursor(t, store, nil)
	if ok, err := c.Last(); !ok || err != nil {
		t.Fatalf("Last = %v, %v", ok, err)
	}
	addr := c.KeyAddr()
	if ok, err := c.Next(); ok || err != nil {
		t.Fatalf("Next past end = %v, %v", ok, err)
	}
	if c.KeyAddr() != addr || string(c.KeyBuffer().Bytes()) != "b" {
		t.Errorf("key view moved on not found: %q", c.KeyBuffer().Bytes())
	}
	if ok, err := c.SeekKey([]byte("zz")); ok || err != nil {
		t.Fatalf("SeekKey missing = %v, %v", ok, err)
	}
	if string(c.KeyBuffer().Bytes()) != "b" {
		t.Errorf("key view moved on missed seek: %q", c.KeyBuffer().Bytes())
	}
}

func TestSeekOperations(t *testing.T) {
	store := newFakeStore(false, "apple", "1", "banana", "2", "cherry", "3")
	c := newTestCursor(t, store, nil)

	tests := []struct {
		name  string
		seek  func() (bool, error)
		found bool
		key   string
	}{
		{"range exact", func() (bool, error) { return c.Seek([]byte("banana")) }, true, "banana"},
		{"range between", func() (bool, error) { return c.Seek([]byte("bb")) }, true, "cherry"},
		{"range past end", func() (bool, error) { return c.Seek([]byte("d")) }, false, ""},
		{"key exact", func() (bool, error) { return c.SeekKey([]byte("apple")) }, true, "apple"},
		{"key missing", func() (bool, error) { return c.SeekKey([]byte("apricot")) }, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.seek()
			if err != nil {
				t.Fatalf("seek failed: %v", err)
			}
			if ok != tt.found {
				t.Fatalf("found: got %v, want %v", ok, tt.found)
			}
			if ok && string(c.KeyBytesCopy()) != tt.key {
				t.Errorf("key: got %q, want %q", c.KeyBytesCopy(), tt.key)
			}
		})
	}
}

func TestComposedRoundTrip(t *testing.T) {
	store := newFakeStore(false)
	c := newTestCursor(t, store, nil)

	writes := []func() error{
		func() error { return c.KeyWriteByte(0xfe) },
		func() error { return c.KeyWriteInt32(-42) },
		func() error { return c.KeyWriteInt64(math.MinInt64 + 7) },
		func() error { return c.KeyWriteFloat32(3.25) },
		func() error { return c.KeyWriteFloat64(-1e300) },
		func() error { return c.KeyWriteUtf8("héllo") },
		func() error { return c.ValWriteInt64(1 << 40) },
		func() error { return c.ValWriteByteString(NewByteString("world")) },
		func() error { return c.ValWriteBytes([]byte{1, 2, 3}) },
		func() error { return c.ValWriteFloat32(float32(math.Inf(-1))) },
		func() error { return c.ValWriteByte(9) },
	}
	for i, w := range writes {
		if err := w(); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}
	wantKeyLen := 1 + 4 + 8 + 4 + 8 + len("héllo") + 1
	if c.KeyOffset() != wantKeyLen {
		t.Fatalf("key offset: got %d, want %d", c.KeyOffset(), wantKeyLen)
	}
	key := c.KeyBytesCopy()
	if ok, err := c.Put(); !ok || err != nil {
		t.Fatalf("Put = %v, %v", ok, err)
	}

	if ok, err := c.SeekKey(key); !ok || err != nil {
		t.Fatalf("SeekKey = %v, %v", ok, err)
	}
	if c.KeyLen() != wantKeyLen {
		t.Errorf("stored key length: got %d, want %d", c.KeyLen(), wantKeyLen)
	}
	if got := c.KeyByte(0); got != 0xfe {
		t.Errorf("KeyByte: got %#x, want 0xfe", got)
	}
	if got := c.KeyInt32(1); got != -42 {
		t.Errorf("KeyInt32: got %d, want -42", got)
	}
	if got := c.KeyInt64(5); got != math.MinInt64+7 {
		t.Errorf("KeyInt64: got %d", got)
	}
	if got := c.KeyFloat32(13); got != 3.25 {
		t.Errorf("KeyFloat32: got %v, want 3.25", got)
	}
	if got := c.KeyFloat64(17); got != -1e300 {
		t.Errorf("KeyFloat64: got %v, want -1e300", got)
	}
	if got := c.KeyUtf8(25).String(); got != "héllo" {
		t.Errorf("KeyUtf8: got %q, want %q", got, "héllo")
	}

	if got := c.ValInt64(0); got != 1<<40 {
		t.Errorf("ValInt64: got %d", got)
	}
	if got := c.ValUtf8(8).String(); got != "world" {
		t.Errorf("ValUtf8: got %q, want %q", got, "world")
	}
	if got := c.ValBytes(14, 3); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("ValBytes: got %v", got)
	}
	if got := c.ValFloat32(17); !math.IsInf(float64(got), -1) {
		t.Errorf("ValFloat32: got %v, want -Inf", got)
	}
	if got := c.ValByte(21); got != 9 {
		t.Errorf("ValByte: got %d, want 9", got)
	}
	if c.ValLen() != 22 {
		t.Errorf("stored value length: got %d, want 22", c.ValLen())
	}
}

func TestComposedFieldsAreBigEndian(t *testing.T) {
	store := newFakeStore(false)
	c := newTestCursor(t, store, nil)

	if err := c.KeyWriteInt32(0x01020304); err != nil {
		t.Fatal(err)
	}
	if err := c.ValWriteInt64(0x0102030405060708); err != nil {
		t.Fatal(err)
	}
	if ok, err := c.Put(); !ok || err != nil {
		t.Fatalf("Put = %v, %v", ok, err)
	}
	if !bytes.Equal(store.items[0].k, []byte{1, 2, 3, 4}) {
		t.Errorf("key bytes: got %v", store.items[0].k)
	}
	if !bytes.Equal(store.items[0].v, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("value bytes: got %v", store.items[0].v)
	}

	if err := c.ValWriteInt32(1); err != nil {
		t.Fatal(err)
	}
	if got := c.val.scratch.Written(); !bytes.Equal(got, []byte{0, 0, 0, 1}) {
		t.Errorf("staged int32 1: got %x, want 00000001", got)
	}
	var order binary.ByteOrder = ByteOrder
	if order.String() != binary.BigEndian.String() {
		t.Errorf("ByteOrder: got %s", order)
	}
}

func TestSignedByteFields(t *testing.T) {
	store := newFakeStore(false)
	c := newTestCursor(t, store, nil)

	c.KeyWriteInt8(-2)
	c.ValWriteInt8(math.MaxInt8)
	c.ValWriteInt8(-128)
	if ok, err := c.Put(); !ok || err != nil {
		t.Fatalf("Put = %v, %v", ok, err)
	}
	if ok, err := c.First(); !ok || err != nil {
		t.Fatalf("First = %v, %v", ok, err)
	}
	if c.KeyInt8(0) != -2 || c.KeyByte(0) != 0xfe {
		t.Errorf("key: got %d (%#x)", c.KeyInt8(0), c.KeyByte(0))
	}
	if c.ValInt8(0) != math.MaxInt8 || c.ValInt8(1) != -128 {
		t.Errorf("value: got %d, %d", c.ValInt8(0), c.ValInt8(1))
	}
}

func TestWriteSwitchesOnlyItsSide(t *testing.T) {
	store := newFakeStore(false, "k", "v")
	c := newTestCursor(t, store, nil)

	for _, tt := range []struct {
		name  string
		write func() error
		key   bool
	}{
		{"float32 key", func() error { return c.KeyWriteFloat32(1.5) }, true},
		{"float64 key", func() error { return c.KeyWriteFloat64(2.5) }, true},
		{"int32 value", func() error { return c.ValWriteInt32(1) }, false},
		{"utf8 value", func() error { return c.ValWriteUtf8("x") }, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if ok, err := c.First(); !ok || err != nil {
				t.Fatalf("First = %v, %v", ok, err)
			}
			if err := tt.write(); err != nil {
				t.Fatal(err)
			}
			if c.KeyAliased() == tt.key {
				t.Errorf("key aliased = %v after %s", c.KeyAliased(), tt.name)
			}
			if c.ValAliased() != tt.key {
				t.Errorf("value aliased = %v after %s", c.ValAliased(), tt.name)
			}
		})
	}
}

func TestWritesNeverReachEngineMemory(t *testing.T) {
	store := newFakeStore(true, "a", "111111111", "a", "2222", "b", "333")
	before := store.snapshot()
	c := newTestCursor(t, store, nil)

	for ok, err := c.First(); ok; ok, err = c.Next() {
		if err != nil {
			t.Fatal(err)
		}
		if err := c.KeyWriteInt64(-1); err != nil {
			t.Fatal(err)
		}
		if err := c.ValWriteBytes(bytes.Repeat([]byte{0xff}, 64)); err != nil {
			t.Fatal(err)
		}
		c.SetWriteMode()
		c.KeyBuffer().PutByte(0, 0xaa)
	}

	for i, p := range before {
		if !bytes.Equal(store.items[i].k, p.k) || !bytes.Equal(store.items[i].v, p.v) {
			t.Fatalf("item %d changed: %q=%q, want %q=%q", i, store.items[i].k, store.items[i].v, p.k, p.v)
		}
	}
}

func TestOffsetsResetOnNavigationAndCommit(t *testing.T) {
	store := newFakeStore(false, "a", "1")
	c := newTestCursor(t, store, nil)

	if err := c.KeyWriteInt32(1); err != nil {
		t.Fatal(err)
	}
	if err := c.ValWriteInt32(2); err != nil {
		t.Fatal(err)
	}
	if c.KeyOffset() != 4 || c.ValOffset() != 4 {
		t.Fatalf("offsets: got %d/%d, want 4/4", c.KeyOffset(), c.ValOffset())
	}
	if ok, err := c.First(); !ok || err != nil {
		t.Fatalf("First = %v, %v", ok, err)
	}
	if c.KeyOffset() != 0 || c.ValOffset() != 0 {
		t.Errorf("offsets after navigation: got %d/%d, want 0/0", c.KeyOffset(), c.ValOffset())
	}

	if err := c.KeyWriteUtf8("b"); err != nil {
		t.Fatal(err)
	}
	if err := c.ValWriteUtf8("2"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Overwrite(); err != nil {
		t.Fatal(err)
	}
	if c.KeyOffset() != 0 || c.ValOffset() != 0 {
		t.Errorf("offsets after commit: got %d/%d, want 0/0", c.KeyOffset(), c.ValOffset())
	}
}

func TestCommitTruncatesToWriteOffset(t *testing.T) {
	store := newFakeStore(false)
	c := newTestCursor(t, store, &Options{MaxKeySize: MaxKeySize, InitialValueSize: 128})

	if err := c.KeyWriteInt32(7); err != nil {
		t.Fatal(err)
	}
	if err := c.ValWriteInt32(8); err != nil {
		t.Fatal(err)
	}
	if c.ValBuffer().Len() != 128 {
		t.Fatalf("value view should span the scratch buffer, got %d", c.ValBuffer().Len())
	}
	if ok, err := c.Put(); !ok || err != nil {
		t.Fatalf("Put = %v, %v", ok, err)
	}
	if len(store.items[0].k) != 4 {
		t.Errorf("stored key length: got %d, want 4", len(store.items[0].k))
	}
	if len(store.items[0].v) != 4 {
		t.Errorf("stored value length: got %d, want 4", len(store.items[0].v))
	}
}

func TestCommitWithoutStagingUsesWholeView(t *testing.T) {
	store := newFakeStore(false, "country", "old")
	c := newTestCursor(t, store, nil)

	if ok, err := c.SeekKey([]byte("country")); !ok || err != nil {
		t.Fatalf("SeekKey = %v, %v", ok, err)
	}
	// Only the value is composed; the key is committed straight from the
	// aliased view.
	if err := c.ValWriteUtf8("new"); err != nil {
		t.Fatal(err)
	}
	if !c.KeyAliased() {
		t.Fatal("key side should still alias engine memory")
	}
	if ok, err := c.Overwrite(); !ok || err != nil {
		t.Fatalf("Overwrite = %v, %v", ok, err)
	}
	v, ok := store.get("country")
	if !ok || !bytes.Equal(v, []byte("new\x00")) {
		t.Errorf("stored value: got %q, want %q", v, "new\x00")
	}
	if len(store.items) != 1 {
		t.Errorf("item count: got %d, want 1", len(store.items))
	}
}

func TestPutVersusOverwrite(t *testing.T) {
	store := newFakeStore(false, "k", "first")
	c := newTestCursor(t, store, nil)

	if err := c.KeyWriteBytes([]byte("k")); err != nil {
		t.Fatal(err)
	}
	if err := c.ValWriteBytes([]byte("second")); err != nil {
		t.Fatal(err)
	}
	ok, err := c.Put()
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if ok {
		t.Fatal("Put on an existing key should report false")
	}
	if store.lastFlags != NoOverwrite {
		t.Errorf("Put flags: got %#x, want NoOverwrite", uint(store.lastFlags))
	}
	if v, _ := store.get("k"); string(v) != "first" {
		t.Errorf("value after refused Put: got %q, want %q", v, "first")
	}

	if err := c.KeyWriteBytes([]byte("k")); err != nil {
		t.Fatal(err)
	}
	if err := c.ValWriteBytes([]byte("second")); err != nil {
		t.Fatal(err)
	}
	ok, err = c.Overwrite()
	if err != nil || !ok {
		t.Fatalf("Overwrite = %v, %v", ok, err)
	}
	if store.lastFlags != Upsert {
		t.Errorf("Overwrite flags: got %#x, want Upsert", uint(store.lastFlags))
	}
	if v, _ := store.get("k"); string(v) != "second" {
		t.Errorf("value after Overwrite: got %q, want %q", v, "second")
	}
}

func TestAppend(t *testing.T) {
	store := newFakeStore(false)
	c := newTestCursor(t, store, nil)

	for i := int64(0); i < 10; i++ {
		if err := c.KeyWriteInt64(i); err != nil {
			t.Fatal(err)
		}
		if err := c.ValWriteInt64(i * i); err != nil {
			t.Fatal(err)
		}
		if err := c.Append(); err != nil {
			t.Fatalf("Append(%d) failed: %v", i, err)
		}
	}
	if len(store.items) != 10 {
		t.Fatalf("item count: got %d, want 10", len(store.items))
	}

	if err := c.KeyWriteInt64(3); err != nil {
		t.Fatal(err)
	}
	if err := c.ValWriteInt64(0); err != nil {
		t.Fatal(err)
	}
	err := c.Append()
	if err == nil {
		t.Fatal("out of order Append should fail")
	}
	if !IsKeyExist(err) {
		t.Errorf("expected key-exists error, got %v", err)
	}
}

func TestReadOnlyRefusesWrites(t *testing.T) {
	store := newFakeStore(false, "a", "1")
	store.readOnly = true
	c := newTestCursor(t, store, nil)

	if !c.ReadOnly() {
		t.Fatal("cursor should be read-only")
	}
	if ok, err := c.First(); !ok || err != nil {
		t.Fatalf("First = %v, %v", ok, err)
	}

	writes := map[string]func() error{
		"KeyWriteByte":    func() error { return c.KeyWriteByte(1) },
		"KeyWriteInt32":   func() error { return c.KeyWriteInt32(1) },
		"KeyWriteFloat64": func() error { return c.KeyWriteFloat64(1) },
		"ValWriteUtf8":    func() error { return c.ValWriteUtf8("x") },
		"ValWriteView":    func() error { return c.ValWriteView(WrapView([]byte("x")), 1) },
		"Append":          func() error { return c.Append() },
		"Put": func() error {
			_, err := c.Put()
			return err
		},
		"Overwrite": func() error {
			_, err := c.Overwrite()
			return err
		},
	}
	for name, w := range writes {
		err := w()
		if !IsPermissionDenied(err) {
			t.Errorf("%s: expected permission denied, got %v", name, err)
		}
	}
	if !c.KeyAliased() || !c.ValAliased() {
		t.Error("refused writes must not switch sides")
	}
	if store.puts != 0 {
		t.Errorf("store saw %d puts", store.puts)
	}
	if err := c.Delete(); !IsPermissionDenied(err) {
		t.Errorf("Delete: expected permission denied from the store, got %v", err)
	}
}

func TestValueGrowth(t *testing.T) {
	store := newFakeStore(false)
	c := newTestCursor(t, store, &Options{MaxKeySize: MaxKeySize, InitialValueSize: 0})

	if c.val.scratch.Cap() != 0 {
		t.Fatalf("initial value capacity: got %d, want 0", c.val.scratch.Cap())
	}
	wantCaps := []int{1, 2, 4, 4, 8}
	for i, want := range wantCaps {
		if err := c.ValWriteByte(byte(i)); err != nil {
			t.Fatal(err)
		}
		if got := c.val.scratch.Cap(); got != want {
			t.Errorf("capacity after %d bytes: got %d, want %d", i+1, got, want)
		}
	}

	var want []byte
	for i := 0; i < 5; i++ {
		want = append(want, byte(i))
	}
	for i := int32(0); i < 1000; i++ {
		if err := c.ValWriteInt32(i); err != nil {
			t.Fatal(err)
		}
		want = binary.BigEndian.AppendUint32(want, uint32(i))
	}
	if c.val.scratch.Cap() != 4096 {
		t.Errorf("capacity: got %d, want 4096", c.val.scratch.Cap())
	}
	if err := c.KeyWriteUtf8("big"); err != nil {
		t.Fatal(err)
	}
	if ok, err := c.Put(); !ok || err != nil {
		t.Fatalf("Put = %v, %v", ok, err)
	}
	if v, _ := store.get("big\x00"); !bytes.Equal(v, want) {
		t.Errorf("grown value corrupted: %d bytes stored, want %d", len(v), len(want))
	}
}

func TestKeyCapacityIsFixed(t *testing.T) {
	store := newFakeStore(false)
	c := newTestCursor(t, store, nil)

	if err := c.KeyWriteBytes(make([]byte, MaxKeySize-1)); err != nil {
		t.Fatalf("filling key failed: %v", err)
	}
	if err := c.KeyWriteByte(1); err != nil {
		t.Fatalf("last key byte failed: %v", err)
	}
	err := c.KeyWriteByte(2)
	if !IsCapacityExceeded(err) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	if c.KeyOffset() != MaxKeySize {
		t.Errorf("key offset after refused write: got %d, want %d", c.KeyOffset(), MaxKeySize)
	}
	if c.key.scratch.Cap() != MaxKeySize {
		t.Errorf("key capacity grew to %d", c.key.scratch.Cap())
	}
}

func TestFailedWriteKeepsAliasedSide(t *testing.T) {
	store := newFakeStore(false, "a", "1")
	c := newTestCursor(t, store, &Options{MaxKeySize: 4, InitialValueSize: 8})

	if ok, err := c.First(); !ok || err != nil {
		t.Fatalf("First = %v, %v", ok, err)
	}
	if err := c.KeyWriteInt64(1); !IsCapacityExceeded(err) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	if !c.KeyAliased() {
		t.Error("key side switched despite the refused write")
	}
	if string(c.KeyBuffer().Bytes()) != "a" {
		t.Errorf("key view: got %q, want %q", c.KeyBuffer().Bytes(), "a")
	}
}

func TestSetWriteMode(t *testing.T) {
	store := newFakeStore(false, "a", "1")
	c := newTestCursor(t, store, nil)

	if ok, err := c.First(); !ok || err != nil {
		t.Fatalf("First = %v, %v", ok, err)
	}
	c.SetWriteMode()
	if c.KeyAliased() || c.ValAliased() {
		t.Fatal("SetWriteMode should switch both sides")
	}
	if c.KeyAddr() != addrOf(c.key.scratch.Bytes()) {
		t.Error("key view should wrap the key scratch buffer")
	}
	if c.KeyBuffer().Len() != MaxKeySize {
		t.Errorf("key view length: got %d, want %d", c.KeyBuffer().Len(), MaxKeySize)
	}
}

func TestDeleteWhileIterating(t *testing.T) {
	store := newFakeStore(false, "a", "1", "b", "2", "c", "3", "d", "4")
	c := newTestCursor(t, store, nil)

	var seen []string
	for ok, err := c.First(); ok; ok, err = c.Next() {
		if err != nil {
			t.Fatal(err)
		}
		k := string(c.KeyBytesCopy())
		seen = append(seen, k)
		if k == "b" || k == "c" {
			if err := c.Delete(); err != nil {
				t.Fatalf("Delete(%s) failed: %v", k, err)
			}
		}
	}
	if strings.Join(seen, "") != "abcd" {
		t.Errorf("visited: got %q, want %q", strings.Join(seen, ""), "abcd")
	}
	if len(store.items) != 2 {
		t.Errorf("remaining items: got %d, want 2", len(store.items))
	}
}

func TestDuplicateNavigation(t *testing.T) {
	store := newFakeStore(true,
		"fruit", "apple", "fruit", "banana", "fruit", "cherry",
		"veg", "leek", "veg", "pea",
	)
	c := newTestCursor(t, store, nil)

	step := func(name string, move func() (bool, error), wantKey, wantVal string) {
		t.Helper()
		ok, err := move()
		if err != nil {
			t.Fatalf("%s failed: %v", name, err)
		}
		if wantKey == "" {
			if ok {
				t.Fatalf("%s: expected not found, got %q=%q", name, c.KeyBytesCopy(), c.ValBytesCopy())
			}
			return
		}
		if !ok {
			t.Fatalf("%s: not found", name)
		}
		if k, v := string(c.KeyBytesCopy()), string(c.ValBytesCopy()); k != wantKey || v != wantVal {
			t.Errorf("%s: got %s=%s, want %s=%s", name, k, v, wantKey, wantVal)
		}
	}

	step("SeekKey", func() (bool, error) { return c.SeekKey([]byte("fruit")) }, "fruit", "apple")
	step("NextDup", c.NextDup, "fruit", "banana")
	step("LastDup", c.LastDup, "fruit", "cherry")
	step("NextDup at end", c.NextDup, "", "")
	step("PrevDup", c.PrevDup, "fruit", "banana")
	step("FirstDup", c.FirstDup, "fruit", "apple")
	step("NextNoDup", c.NextNoDup, "veg", "leek")
	step("PrevNoDup", c.PrevNoDup, "fruit", "cherry")
	step("SeekBoth", func() (bool, error) { return c.SeekBoth([]byte("veg"), []byte("pea")) }, "veg", "pea")
	step("SeekBoth missing", func() (bool, error) { return c.SeekBoth([]byte("veg"), []byte("bean")) }, "", "")
	step("SeekBothRange", func() (bool, error) { return c.SeekBothRange([]byte("fruit"), []byte("b")) }, "fruit", "banana")
	step("GetCurrent", c.GetCurrent, "fruit", "banana")
}

func TestAppendDup(t *testing.T) {
	store := newFakeStore(true, "k", "a")
	c := newTestCursor(t, store, nil)

	for _, v := range []string{"b", "c"} {
		if err := c.KeyWriteBytes([]byte("k")); err != nil {
			t.Fatal(err)
		}
		if err := c.ValWriteBytes([]byte(v)); err != nil {
			t.Fatal(err)
		}
		if err := c.AppendDup(); err != nil {
			t.Fatalf("AppendDup(%s) failed: %v", v, err)
		}
	}
	if store.lastFlags != AppendDup {
		t.Errorf("flags: got %#x, want AppendDup", uint(store.lastFlags))
	}
	if len(store.items) != 3 {
		t.Errorf("item count: got %d, want 3", len(store.items))
	}
}

func TestDupOpsOnPlainStore(t *testing.T) {
	store := newFakeStore(false, "a", "1")
	c := newTestCursor(t, store, nil)

	if ok, err := c.First(); !ok || err != nil {
		t.Fatalf("First = %v, %v", ok, err)
	}
	_, err := c.NextDup()
	if Code(err) != ErrIncompatible {
		t.Errorf("expected incompatible, got %v", err)
	}
}

func TestEngineErrorPropagates(t *testing.T) {
	store := newFakeStore(false, "a", "1")
	c := newTestCursor(t, store, nil)

	boom := errors.New("boom")
	store.failNext = boom
	ok, err := c.First()
	if ok || err == nil {
		t.Fatalf("First = %v, %v; want engine error", ok, err)
	}
	if Code(err) != ErrProblem || !errors.Is(err, boom) {
		t.Errorf("unexpected error %v", err)
	}

	store.failNext = WrapError(ErrMapFull, boom)
	if err := c.KeyWriteUtf8("x"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Put(); Code(err) != ErrMapFull {
		t.Errorf("expected map full, got %v", err)
	}
}

func TestInvalidOps(t *testing.T) {
	c := newTestCursor(t, newFakeStore(false), nil)
	if _, err := c.Position(GetOp(5)); Code(err) != ErrInvalidArgument {
		t.Errorf("Position(5): expected invalid argument, got %v", err)
	}
	if _, err := c.SeekWith(SeekOp(99), []byte("k"), nil); Code(err) != ErrInvalidArgument {
		t.Errorf("SeekWith(99): expected invalid argument, got %v", err)
	}
	if err := c.ValWriteView(WrapView([]byte("ab")), 3); Code(err) != ErrInvalidArgument {
		t.Errorf("ValWriteView past source: expected invalid argument, got %v", err)
	}
}

func TestClose(t *testing.T) {
	store := newFakeStore(false, "a", "1")
	c, err := New(store, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !store.closed {
		t.Error("store not closed")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if _, err := c.First(); err != ErrClosedError {
		t.Errorf("First after Close: got %v", err)
	}
	if err := c.KeyWriteByte(1); err != ErrClosedError {
		t.Errorf("KeyWriteByte after Close: got %v", err)
	}
	if _, err := c.Put(); err != ErrClosedError {
		t.Errorf("Put after Close: got %v", err)
	}
}

func TestNewWithBuffers(t *testing.T) {
	key, _ := NewScratchBuffer(32)
	val, _ := NewScratchBuffer(0)
	empty, _ := NewScratchBuffer(0)

	if _, err := NewWithBuffers(nil, key, val, nil); Code(err) != ErrInvalidArgument {
		t.Errorf("nil store: got %v", err)
	}
	if _, err := NewWithBuffers(newFakeStore(false), nil, val, nil); Code(err) != ErrInvalidArgument {
		t.Errorf("nil key buffer: got %v", err)
	}
	if _, err := NewWithBuffers(newFakeStore(false), empty, val, nil); Code(err) != ErrInvalidArgument {
		t.Errorf("zero capacity key buffer: got %v", err)
	}
	if _, err := NewWithBuffers(newFakeStore(false), key, val, &Options{RequireDirect: true}); Code(err) != ErrInvalidArgument {
		t.Errorf("heap buffers with RequireDirect: got %v", err)
	}

	c, err := NewWithBuffers(newFakeStore(false), key, val, nil)
	if err != nil {
		t.Fatalf("NewWithBuffers failed: %v", err)
	}
	defer c.Close()
	if err := c.KeyWriteBytes(make([]byte, 32)); err != nil {
		t.Fatal(err)
	}
	if err := c.KeyWriteByte(0); !IsCapacityExceeded(err) {
		t.Errorf("key buffer should be pinned at 32 bytes, got %v", err)
	}
}

func TestDirectScratchCursor(t *testing.T) {
	store := newFakeStore(false)
	c := newTestCursor(t, store, &Options{MaxKeySize: MaxKeySize, InitialValueSize: 16, Direct: true})

	if !c.key.scratch.Direct() || !c.val.scratch.Direct() {
		t.Fatal("scratch buffers should be direct")
	}
	if err := c.KeyWriteUtf8("direct"); err != nil {
		t.Fatal(err)
	}
	payload := bytes.Repeat([]byte("x"), 10000)
	if err := c.ValWriteBytes(payload); err != nil {
		t.Fatal(err)
	}
	if ok, err := c.Put(); !ok || err != nil {
		t.Fatalf("Put = %v, %v", ok, err)
	}
	if v, _ := store.get("direct\x00"); !bytes.Equal(v, payload) {
		t.Errorf("stored value mismatch: %d bytes", len(v))
	}
}

func TestCompressedValueField(t *testing.T) {
	store := newFakeStore(false)
	c := newTestCursor(t, store, nil)

	payload := []byte(strings.Repeat("compress me ", 100))
	if err := c.KeyWriteUtf8("doc"); err != nil {
		t.Fatal(err)
	}
	if err := c.ValWriteCompressed(codec.Zstd, payload); err != nil {
		t.Fatalf("ValWriteCompressed failed: %v", err)
	}
	if err := c.ValWriteInt32(7); err != nil {
		t.Fatal(err)
	}
	if c.ValOffset() >= len(payload) {
		t.Errorf("compressed value not smaller: %d bytes", c.ValOffset())
	}
	if ok, err := c.Put(); !ok || err != nil {
		t.Fatalf("Put = %v, %v", ok, err)
	}

	if ok, err := c.SeekKey([]byte("doc\x00")); !ok || err != nil {
		t.Fatalf("SeekKey = %v, %v", ok, err)
	}
	got, n, err := c.ValCompressed(0)
	if err != nil {
		t.Fatalf("ValCompressed failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("decompressed payload mismatch")
	}
	if c.ValInt32(n) != 7 {
		t.Errorf("field after compressed payload: got %d, want 7", c.ValInt32(n))
	}
	if _, _, err := c.ValCompressed(n); Code(err) != ErrCorrupted {
		t.Errorf("decoding a non-field: expected corrupted, got %v", err)
	}
}

func TestCompressedFieldDoesNotAliasStore(t *testing.T) {
	store := newFakeStore(false)
	c := newTestCursor(t, store, nil)

	c.KeyWriteUtf8("France")
	if err := c.ValWriteCompressed(codec.None, []byte("Paris")); err != nil {
		t.Fatalf("ValWriteCompressed failed: %v", err)
	}
	if ok, err := c.Put(); !ok || err != nil {
		t.Fatalf("Put = %v, %v", ok, err)
	}
	before := store.snapshot()

	if ok, err := c.First(); !ok || err != nil {
		t.Fatalf("First = %v, %v", ok, err)
	}
	if !c.ValAliased() {
		t.Fatal("value should alias the store after First")
	}
	got, _, err := c.ValCompressed(0)
	if err != nil {
		t.Fatalf("ValCompressed failed: %v", err)
	}
	if string(got) != "Paris" {
		t.Fatalf("decoded %q", got)
	}
	got[0] = 'X'
	if !bytes.Equal(store.items[0].v, before[0].v) {
		t.Errorf("store value changed to %q", store.items[0].v)
	}
}

func TestRandomComposedRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	store := newFakeStore(false)
	c := newTestCursor(t, store, &Options{MaxKeySize: MaxKeySize, InitialValueSize: 1})

	type field struct {
		kind int
		i    int64
		f    float64
		s    string
	}
	for round := 0; round < 200; round++ {
		var fields []field
		if err := c.KeyWriteInt32(int32(round)); err != nil {
			t.Fatal(err)
		}
		for n := rng.Intn(12); n >= 0; n-- {
			f := field{kind: rng.Intn(4), i: rng.Int63() - rng.Int63(), f: rng.NormFloat64()}
			f.s = strings.Repeat("é", rng.Intn(5))
			var err error
			switch f.kind {
			case 0:
				err = c.ValWriteInt32(int32(f.i))
			case 1:
				err = c.ValWriteInt64(f.i)
			case 2:
				err = c.ValWriteFloat64(f.f)
			case 3:
				err = c.ValWriteUtf8(f.s)
			}
			if err != nil {
				t.Fatal(err)
			}
			fields = append(fields, f)
		}
		key := c.KeyBytesCopy()
		if ok, err := c.Put(); !ok || err != nil {
			t.Fatalf("round %d: Put = %v, %v", round, ok, err)
		}
		if ok, err := c.SeekKey(key); !ok || err != nil {
			t.Fatalf("round %d: SeekKey = %v, %v", round, ok, err)
		}

		pos := 0
		for i, f := range fields {
			switch f.kind {
			case 0:
				if got := c.ValInt32(pos); got != int32(f.i) {
					t.Fatalf("round %d field %d: got %d, want %d", round, i, got, int32(f.i))
				}
				pos += 4
			case 1:
				if got := c.ValInt64(pos); got != f.i {
					t.Fatalf("round %d field %d: got %d, want %d", round, i, got, f.i)
				}
				pos += 8
			case 2:
				if got := c.ValFloat64(pos); got != f.f {
					t.Fatalf("round %d field %d: got %v, want %v", round, i, got, f.f)
				}
				pos += 8
			case 3:
				got := c.ValUtf8(pos)
				if got.String() != f.s {
					t.Fatalf("round %d field %d: got %q, want %q", round, i, got, f.s)
				}
				pos += got.Size() + 1
			}
		}
		if pos != c.ValLen() {
			t.Fatalf("round %d: decoded %d bytes, value has %d", round, pos, c.ValLen())
		}
	}
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := newFakeStore(false, "a", "1")
	c := newTestCursor(t, store, &Options{MaxKeySize: MaxKeySize, InitialValueSize: 1, Logger: logger})

	if ok, err := c.First(); !ok || err != nil {
		t.Fatalf("First = %v, %v", ok, err)
	}
	if err := c.ValWriteInt64(1); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "side switched to scratch") {
		t.Errorf("missing switch record in %q", out)
	}
	if !strings.Contains(out, "scratch grown") {
		t.Errorf("missing growth record in %q", out)
	}
}
