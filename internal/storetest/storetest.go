// Package storetest runs the same cursor scenarios against every engine
// adapter so they agree on positioning, commit and error behavior.
package storetest

import (
	"bytes"
	"testing"

	"github.com/Giulio2002/bufcursor"
)

// DB is a fresh, empty database under test.
type DB interface {
	// Update runs fn with a store over a read-write transaction and
	// commits. The store is closed before the commit.
	Update(t *testing.T, fn func(s bufcursor.Store))

	// View runs fn with a store over a read-only transaction.
	View(t *testing.T, fn func(s bufcursor.Store))
}

// Suite describes an adapter.
type Suite struct {
	// Open returns an empty database with unique keys.
	Open func(t *testing.T) DB

	// OpenDupSort returns an empty database with sorted duplicate values.
	// Nil when the engine has no duplicate keys.
	OpenDupSort func(t *testing.T) DB
}

// Run executes every scenario as a subtest.
func Run(t *testing.T, s Suite) {
	t.Run("Iteration", func(t *testing.T) { testIteration(t, s.Open(t)) })
	t.Run("Seek", func(t *testing.T) { testSeek(t, s.Open(t)) })
	t.Run("PutOverwrite", func(t *testing.T) { testPutOverwrite(t, s.Open(t)) })
	t.Run("PartialStaging", func(t *testing.T) { testPartialStaging(t, s.Open(t)) })
	t.Run("ReadOnly", func(t *testing.T) { testReadOnly(t, s.Open(t)) })
	t.Run("DeleteWhileIterating", func(t *testing.T) { testDelete(t, s.Open(t)) })
	t.Run("Append", func(t *testing.T) { testAppend(t, s.Open(t)) })
	t.Run("ComposedFields", func(t *testing.T) { testComposed(t, s.Open(t)) })
	if s.OpenDupSort != nil {
		t.Run("DupSort", func(t *testing.T) { testDupSort(t, s.OpenDupSort(t)) })
		t.Run("AppendDup", func(t *testing.T) { testAppendDup(t, s.OpenDupSort(t)) })
	} else {
		t.Run("DupUnsupported", func(t *testing.T) { testDupUnsupported(t, s.Open(t)) })
	}
}

var countries = []struct {
	country, capital string
}{
	{"England", "London"},
	{"France", "Paris"},
	{"Germany", "Berlin"},
	{"Italy", "Rome"},
	{"Spain", "Madrid"},
}

// Key returns s as the cursor stores it: UTF-8 followed by a NUL.
func Key(s string) []byte {
	return append([]byte(s), 0)
}

// NewCursor wraps s with default options and closes it when the test ends.
func NewCursor(t *testing.T, s bufcursor.Store) *bufcursor.BufferCursor {
	t.Helper()
	c, err := bufcursor.New(s, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// PutString stages k and v as strings and commits them with Put.
func PutString(t *testing.T, c *bufcursor.BufferCursor, k, v string) bool {
	t.Helper()
	if err := c.KeyWriteUtf8(k); err != nil {
		t.Fatalf("KeyWriteUtf8(%q) failed: %v", k, err)
	}
	if err := c.ValWriteUtf8(v); err != nil {
		t.Fatalf("ValWriteUtf8(%q) failed: %v", v, err)
	}
	ok, err := c.Put()
	if err != nil {
		t.Fatalf("Put(%q) failed: %v", k, err)
	}
	return ok
}

func fill(t *testing.T, db DB) {
	t.Helper()
	db.Update(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		// Reverse order so the engine does the sorting.
		for i := len(countries) - 1; i >= 0; i-- {
			if !PutString(t, c, countries[i].country, countries[i].capital) {
				t.Fatalf("Put(%q) refused on an empty database", countries[i].country)
			}
		}
	})
}

func current(c *bufcursor.BufferCursor) (string, string) {
	return c.KeyUtf8(0).String(), c.ValUtf8(0).String()
}

func expectAt(t *testing.T, c *bufcursor.BufferCursor, what string, ok bool, err error, k, v string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s failed: %v", what, err)
	}
	if !ok {
		t.Fatalf("%s: expected %q, got not found", what, k)
	}
	if gk, gv := current(c); gk != k || gv != v {
		t.Errorf("%s: got %q=%q, want %q=%q", what, gk, gv, k, v)
	}
}

func expectMissing(t *testing.T, what string, ok bool, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s failed: %v", what, err)
	}
	if ok {
		t.Errorf("%s: expected not found", what)
	}
}

func testIteration(t *testing.T, db DB) {
	fill(t, db)
	db.View(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)

		i := 0
		for ok, err := c.First(); ; ok, err = c.Next() {
			if err != nil {
				t.Fatalf("iteration failed: %v", err)
			}
			if !ok {
				break
			}
			if !c.KeyAliased() || !c.ValAliased() {
				t.Fatal("positioned cursor should alias engine memory")
			}
			k, v := current(c)
			if i >= len(countries) || k != countries[i].country || v != countries[i].capital {
				t.Fatalf("item %d: got %q=%q", i, k, v)
			}
			i++
		}
		if i != len(countries) {
			t.Fatalf("iterated %d items, want %d", i, len(countries))
		}

		i = len(countries) - 1
		for ok, err := c.Last(); ; ok, err = c.Prev() {
			if err != nil {
				t.Fatalf("reverse iteration failed: %v", err)
			}
			if !ok {
				break
			}
			if k, _ := current(c); i < 0 || k != countries[i].country {
				t.Fatalf("reverse item %d: got %q", i, k)
			}
			i--
		}
		if i != -1 {
			t.Fatalf("reverse iteration stopped at %d", i)
		}

		ok, err := c.Last()
		expectAt(t, c, "Last", ok, err, "Spain", "Madrid")
		ok, err = c.GetCurrent()
		expectAt(t, c, "GetCurrent", ok, err, "Spain", "Madrid")
		ok, err = c.Next()
		expectMissing(t, "Next past the end", ok, err)
	})
}

func testSeek(t *testing.T, db DB) {
	fill(t, db)
	db.View(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)

		ok, err := c.Seek([]byte("F"))
		expectAt(t, c, "Seek(F)", ok, err, "France", "Paris")
		ok, err = c.Seek([]byte("Fz"))
		expectAt(t, c, "Seek(Fz)", ok, err, "Germany", "Berlin")
		ok, err = c.SeekKey(Key("Italy"))
		expectAt(t, c, "SeekKey(Italy)", ok, err, "Italy", "Rome")

		ok, err = c.SeekKey([]byte("Ital"))
		expectMissing(t, "SeekKey(Ital)", ok, err)
		if k, _ := current(c); k != "Italy" {
			t.Errorf("a failed seek moved the views to %q", k)
		}
		ok, err = c.Seek([]byte("Zz"))
		expectMissing(t, "Seek(Zz)", ok, err)
	})
}

func testPutOverwrite(t *testing.T, db DB) {
	fill(t, db)
	db.Update(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		if PutString(t, c, "England", "Manchester") {
			t.Error("Put over an existing key should report false")
		}
		if !PutString(t, c, "Wales", "Cardiff") {
			t.Error("Put of a new key should report true")
		}
		c.KeyWriteUtf8("France")
		c.ValWriteUtf8("Lyon")
		ok, err := c.Overwrite()
		if err != nil || !ok {
			t.Fatalf("Overwrite failed: ok=%v err=%v", ok, err)
		}
		if c.KeyOffset() != 0 || c.ValOffset() != 0 {
			t.Error("commit should rewind both offsets")
		}
	})
	db.View(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		ok, err := c.SeekKey(Key("England"))
		expectAt(t, c, "England", ok, err, "England", "London")
		ok, err = c.SeekKey(Key("France"))
		expectAt(t, c, "France", ok, err, "France", "Lyon")
		ok, err = c.SeekKey(Key("Wales"))
		expectAt(t, c, "Wales", ok, err, "Wales", "Cardiff")
	})
}

// testPartialStaging commits a pair whose key comes straight from engine
// memory and whose value was composed in scratch.
func testPartialStaging(t *testing.T, db DB) {
	fill(t, db)
	db.Update(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		ok, err := c.SeekKey(Key("Germany"))
		expectAt(t, c, "SeekKey(Germany)", ok, err, "Germany", "Berlin")

		if err := c.ValWriteUtf8("Bonn"); err != nil {
			t.Fatalf("ValWriteUtf8 failed: %v", err)
		}
		if !c.KeyAliased() || c.ValAliased() {
			t.Fatal("only the value side should have switched")
		}
		if ok, err := c.Overwrite(); err != nil || !ok {
			t.Fatalf("Overwrite failed: ok=%v err=%v", ok, err)
		}
	})
	db.View(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		ok, err := c.SeekKey(Key("Germany"))
		expectAt(t, c, "Germany", ok, err, "Germany", "Bonn")
	})
}

func testReadOnly(t *testing.T, db DB) {
	fill(t, db)
	db.View(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		if !c.ReadOnly() {
			t.Fatal("cursor over a read-only transaction should be read-only")
		}
		ok, err := c.First()
		expectAt(t, c, "First", ok, err, "England", "London")

		if err := c.KeyWriteUtf8("Wales"); !bufcursor.IsPermissionDenied(err) {
			t.Errorf("KeyWriteUtf8: expected permission denied, got %v", err)
		}
		if ok, err := c.Put(); ok || !bufcursor.IsPermissionDenied(err) {
			t.Errorf("Put: expected permission denied, got ok=%v err=%v", ok, err)
		}
		if !c.KeyAliased() {
			t.Error("refused write should leave the key aliased")
		}
		ok, err = c.Next()
		expectAt(t, c, "Next", ok, err, "France", "Paris")
	})
}

func testDelete(t *testing.T, db DB) {
	fill(t, db)
	db.Update(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		i := 0
		for ok, err := c.First(); ; ok, err = c.Next() {
			if err != nil {
				t.Fatalf("iteration failed at %d: %v", i, err)
			}
			if !ok {
				break
			}
			if k, _ := current(c); i >= len(countries) || k != countries[i].country {
				t.Fatalf("item %d: got %q", i, k)
			}
			if i%2 == 0 {
				if err := c.Delete(); err != nil {
					t.Fatalf("Delete at %d failed: %v", i, err)
				}
			}
			i++
		}
		if i != len(countries) {
			t.Fatalf("visited %d items, want %d", i, len(countries))
		}
	})
	db.View(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		var got []string
		for ok, err := c.First(); ok && err == nil; ok, err = c.Next() {
			k, _ := current(c)
			got = append(got, k)
		}
		if len(got) != 2 || got[0] != "France" || got[1] != "Italy" {
			t.Errorf("remaining keys: got %v, want [France Italy]", got)
		}
	})
}

func testAppend(t *testing.T, db DB) {
	const n = 100
	db.Update(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		for i := int64(1); i <= n; i++ {
			c.KeyWriteInt64(i)
			c.ValWriteInt64(i * i)
			if err := c.Append(); err != nil {
				t.Fatalf("Append(%d) failed: %v", i, err)
			}
		}
		c.KeyWriteInt64(n / 2)
		c.ValWriteInt64(0)
		if err := c.Append(); err == nil {
			t.Error("appending an out of order key should fail")
		}
	})
	db.View(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		i := int64(0)
		for ok, err := c.First(); ok && err == nil; ok, err = c.Next() {
			i++
			if c.KeyInt64(0) != i || c.ValInt64(0) != i*i {
				t.Fatalf("item %d: got %d=%d", i, c.KeyInt64(0), c.ValInt64(0))
			}
		}
		if i != n {
			t.Errorf("iterated %d items, want %d", i, n)
		}
	})
}

func testComposed(t *testing.T, db DB) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	db.Update(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		c.KeyWriteUtf8("sensor")
		c.KeyWriteInt32(7)
		c.KeyWriteFloat64(1.5)

		c.ValWriteInt64(-42)
		c.ValWriteFloat32(0.25)
		c.ValWriteByte(0xff)
		if err := c.ValWriteBytes(payload); err != nil {
			t.Fatalf("ValWriteBytes failed: %v", err)
		}
		if c.ValOffset() != 8+4+1+len(payload) {
			t.Fatalf("value offset: got %d", c.ValOffset())
		}
		if ok, err := c.Put(); err != nil || !ok {
			t.Fatalf("Put failed: ok=%v err=%v", ok, err)
		}
	})
	db.View(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		ok, err := c.First()
		if err != nil || !ok {
			t.Fatalf("First failed: ok=%v err=%v", ok, err)
		}
		if c.KeyLen() != 7+4+8 {
			t.Errorf("key length: got %d", c.KeyLen())
		}
		if c.KeyUtf8(0).String() != "sensor" || c.KeyInt32(7) != 7 || c.KeyFloat64(11) != 1.5 {
			t.Errorf("key fields: %q %d %v", c.KeyUtf8(0), c.KeyInt32(7), c.KeyFloat64(11))
		}
		if c.ValInt64(0) != -42 || c.ValFloat32(8) != 0.25 || c.ValByte(12) != 0xff {
			t.Errorf("value fields: %d %v %#x", c.ValInt64(0), c.ValFloat32(8), c.ValByte(12))
		}
		if !bytes.Equal(c.ValBytes(13, len(payload)), payload) {
			t.Error("payload mismatch")
		}
	})
}

func testDupSort(t *testing.T, db DB) {
	db.Update(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		for _, v := range []string{"cherry", "apple", "banana"} {
			c.KeyWriteUtf8("fruit")
			c.ValWriteUtf8(v)
			if ok, err := c.Overwrite(); err != nil || !ok {
				t.Fatalf("Overwrite(fruit=%s) failed: ok=%v err=%v", v, ok, err)
			}
		}
		c.KeyWriteUtf8("veg")
		c.ValWriteUtf8("kale")
		if ok, err := c.Overwrite(); err != nil || !ok {
			t.Fatalf("Overwrite(veg) failed: ok=%v err=%v", ok, err)
		}

		c.KeyWriteUtf8("fruit")
		c.ValWriteUtf8("apple")
		if err := c.PutWith(bufcursor.NoDupData); !bufcursor.IsKeyExist(err) {
			t.Errorf("NoDupData on an existing pair: got %v", err)
		}
	})
	db.View(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		ok, err := c.SeekKey(Key("fruit"))
		expectAt(t, c, "SeekKey", ok, err, "fruit", "apple")
		ok, err = c.NextDup()
		expectAt(t, c, "NextDup", ok, err, "fruit", "banana")
		ok, err = c.LastDup()
		expectAt(t, c, "LastDup", ok, err, "fruit", "cherry")
		ok, err = c.NextDup()
		expectMissing(t, "NextDup past the last value", ok, err)
		ok, err = c.PrevDup()
		expectAt(t, c, "PrevDup", ok, err, "fruit", "banana")
		ok, err = c.FirstDup()
		expectAt(t, c, "FirstDup", ok, err, "fruit", "apple")
		ok, err = c.NextNoDup()
		expectAt(t, c, "NextNoDup", ok, err, "veg", "kale")
		ok, err = c.PrevNoDup()
		expectAt(t, c, "PrevNoDup", ok, err, "fruit", "cherry")

		ok, err = c.SeekBoth(Key("fruit"), Key("banana"))
		expectAt(t, c, "SeekBoth", ok, err, "fruit", "banana")
		ok, err = c.SeekBothRange(Key("fruit"), []byte("b"))
		expectAt(t, c, "SeekBothRange", ok, err, "fruit", "banana")
		ok, err = c.SeekBoth(Key("fruit"), []byte("b"))
		expectMissing(t, "SeekBoth with a partial value", ok, err)
	})
}

func testAppendDup(t *testing.T, db DB) {
	db.Update(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		for i := int32(1); i <= 3; i++ {
			c.KeyWriteUtf8("series")
			c.ValWriteInt32(i * 10)
			if err := c.AppendDup(); err != nil {
				t.Fatalf("AppendDup(%d) failed: %v", i, err)
			}
		}
		c.KeyWriteUtf8("series")
		c.ValWriteInt32(5)
		if err := c.AppendDup(); err == nil {
			t.Error("appending a smaller duplicate should fail")
		}
	})
	db.View(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		var got []int32
		for ok, err := c.First(); ok && err == nil; ok, err = c.NextDup() {
			got = append(got, c.ValInt32(0))
		}
		if len(got) != 3 || got[0] != 10 || got[1] != 20 || got[2] != 30 {
			t.Errorf("values: got %v, want [10 20 30]", got)
		}
	})
}

func testDupUnsupported(t *testing.T, db DB) {
	fill(t, db)
	db.View(t, func(s bufcursor.Store) {
		c := NewCursor(t, s)
		ok, err := c.First()
		expectAt(t, c, "First", ok, err, "England", "London")
		for _, op := range []bufcursor.GetOp{bufcursor.NextDup, bufcursor.PrevDup, bufcursor.FirstDup, bufcursor.LastDup} {
			if _, err := c.Position(op); bufcursor.Code(err) != bufcursor.ErrIncompatible {
				t.Errorf("%s: expected incompatible, got %v", op, err)
			}
		}
		if k, _ := current(c); k != "England" {
			t.Errorf("refused dup op moved the cursor to %q", k)
		}
	})
}
