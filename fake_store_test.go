package bufcursor

import (
	"bytes"
	"sort"
)

type fakePair struct {
	k, v []byte
}

// fakeStore is an in-memory Store with LMDB cursor semantics. Items are
// never modified in place, so slices handed out earlier keep their
// contents and tests can check that cursor writes never reach them.
type fakeStore struct {
	items       []fakePair
	dupSort     bool
	readOnly    bool
	pos         int
	afterDelete bool
	closed      bool
	failNext    error
	puts        int
	lastFlags   PutFlags
}

func newFakeStore(dupSort bool, kv ...string) *fakeStore {
	s := &fakeStore{dupSort: dupSort, pos: -1}
	for i := 0; i+1 < len(kv); i += 2 {
		if err := s.Put([]byte(kv[i]), []byte(kv[i+1]), Upsert); err != nil {
			panic(err)
		}
	}
	s.pos = -1
	return s
}

func (s *fakeStore) less(a fakePair, k, v []byte) bool {
	if c := bytes.Compare(a.k, k); c != 0 {
		return c < 0
	}
	return s.dupSort && bytes.Compare(a.v, v) < 0
}

// searchKey returns the first index whose key is >= k.
func (s *fakeStore) searchKey(k []byte) int {
	return sort.Search(len(s.items), func(i int) bool {
		return bytes.Compare(s.items[i].k, k) >= 0
	})
}

func (s *fakeStore) at(i int) ([]byte, []byte, error) {
	s.pos = i
	s.afterDelete = false
	p := s.items[i]
	return p.k[:len(p.k):len(p.k)], p.v[:len(p.v):len(p.v)], nil
}

func (s *fakeStore) firstOfKey(i int) int {
	for i > 0 && bytes.Equal(s.items[i-1].k, s.items[i].k) {
		i--
	}
	return i
}

func (s *fakeStore) lastOfKey(i int) int {
	for i+1 < len(s.items) && bytes.Equal(s.items[i+1].k, s.items[i].k) {
		i++
	}
	return i
}

func (s *fakeStore) Position(op GetOp) ([]byte, []byte, error) {
	if s.closed {
		return nil, nil, ErrClosedError
	}
	if err := s.failNext; err != nil {
		s.failNext = nil
		return nil, nil, err
	}
	if op.IsDup() && !s.dupSort {
		return nil, nil, ErrIncompatibleError
	}
	n := len(s.items)
	positioned := s.pos >= 0 && s.pos < n
	switch op {
	case First:
		if n == 0 {
			return nil, nil, ErrNotFoundError
		}
		return s.at(0)
	case Last:
		if n == 0 {
			return nil, nil, ErrNotFoundError
		}
		return s.at(n - 1)
	case GetCurrent:
		if !positioned {
			return nil, nil, ErrNotFoundError
		}
		return s.at(s.pos)
	case Next, NextNoDup:
		if !positioned {
			if s.afterDelete || n == 0 {
				return nil, nil, ErrNotFoundError
			}
			return s.at(0)
		}
		if s.afterDelete {
			return s.at(s.pos)
		}
		i := s.pos
		if op == NextNoDup {
			i = s.lastOfKey(i)
		}
		if i+1 >= n {
			return nil, nil, ErrNotFoundError
		}
		return s.at(i + 1)
	case Prev, PrevNoDup:
		if !positioned && !s.afterDelete {
			if n == 0 {
				return nil, nil, ErrNotFoundError
			}
			return s.at(n - 1)
		}
		i := s.pos
		if op == PrevNoDup && positioned {
			i = s.firstOfKey(i)
		}
		if i-1 < 0 {
			return nil, nil, ErrNotFoundError
		}
		return s.at(i - 1)
	case FirstDup:
		if !positioned {
			return nil, nil, NewError(ErrInvalidArgument)
		}
		return s.at(s.firstOfKey(s.pos))
	case LastDup:
		if !positioned {
			return nil, nil, NewError(ErrInvalidArgument)
		}
		return s.at(s.lastOfKey(s.pos))
	case NextDup:
		if !positioned {
			return nil, nil, NewError(ErrInvalidArgument)
		}
		if s.pos+1 >= n || !bytes.Equal(s.items[s.pos+1].k, s.items[s.pos].k) {
			return nil, nil, ErrNotFoundError
		}
		return s.at(s.pos + 1)
	case PrevDup:
		if !positioned {
			return nil, nil, NewError(ErrInvalidArgument)
		}
		if s.pos == 0 || !bytes.Equal(s.items[s.pos-1].k, s.items[s.pos].k) {
			return nil, nil, ErrNotFoundError
		}
		return s.at(s.pos - 1)
	}
	return nil, nil, NewError(ErrInvalidArgument)
}

func (s *fakeStore) Seek(op SeekOp, key, val []byte) ([]byte, []byte, error) {
	if s.closed {
		return nil, nil, ErrClosedError
	}
	if err := s.failNext; err != nil {
		s.failNext = nil
		return nil, nil, err
	}
	i := s.searchKey(key)
	switch op {
	case SeekRange:
		if i < len(s.items) {
			return s.at(i)
		}
	case SeekKey:
		if i < len(s.items) && bytes.Equal(s.items[i].k, key) {
			return s.at(i)
		}
	case SeekBoth, SeekBothRange:
		for ; i < len(s.items) && bytes.Equal(s.items[i].k, key); i++ {
			c := bytes.Compare(s.items[i].v, val)
			if c == 0 || (op == SeekBothRange && c > 0) {
				return s.at(i)
			}
		}
	}
	return nil, nil, ErrNotFoundError
}

func (s *fakeStore) Put(key, val []byte, flags PutFlags) error {
	if s.closed {
		return ErrClosedError
	}
	if s.readOnly {
		return ErrReadOnlyError
	}
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	s.puts++
	s.lastFlags = flags

	i := s.searchKey(key)
	exists := i < len(s.items) && bytes.Equal(s.items[i].k, key)
	if flags.Has(NoOverwrite) && exists {
		return ErrKeyExistError
	}
	if flags.Has(Append) && len(s.items) > 0 {
		last := s.items[len(s.items)-1]
		c := bytes.Compare(key, last.k)
		if c < 0 || (c == 0 && (!s.dupSort || bytes.Compare(val, last.v) <= 0)) {
			return ErrKeyExistError
		}
	}
	if flags.Has(AppendDup) && exists {
		last := s.items[s.lastOfKey(i)]
		if bytes.Compare(val, last.v) <= 0 {
			return ErrKeyExistError
		}
	}

	p := fakePair{k: bytes.Clone(key), v: bytes.Clone(val)}
	if p.v == nil {
		p.v = []byte{}
	}
	if !s.dupSort {
		if exists {
			s.items[i] = p
			s.pos = i
			s.afterDelete = false
			return nil
		}
	} else {
		for j := i; j < len(s.items) && bytes.Equal(s.items[j].k, key); j++ {
			if bytes.Equal(s.items[j].v, val) {
				if flags.Has(NoDupData) {
					return ErrKeyExistError
				}
				s.pos = j
				s.afterDelete = false
				return nil
			}
		}
	}

	j := sort.Search(len(s.items), func(j int) bool { return !s.less(s.items[j], p.k, p.v) })
	s.items = append(s.items, fakePair{})
	copy(s.items[j+1:], s.items[j:])
	s.items[j] = p
	s.pos = j
	s.afterDelete = false
	return nil
}

func (s *fakeStore) Delete() error {
	if s.closed {
		return ErrClosedError
	}
	if s.readOnly {
		return ErrReadOnlyError
	}
	if s.pos < 0 || s.pos >= len(s.items) || s.afterDelete {
		return NewError(ErrInvalidArgument)
	}
	s.items = append(s.items[:s.pos], s.items[s.pos+1:]...)
	s.afterDelete = true
	return nil
}

func (s *fakeStore) ReadOnly() bool { return s.readOnly }

func (s *fakeStore) Close() error {
	s.closed = true
	return nil
}

// snapshot deep-copies the items for later comparison.
func (s *fakeStore) snapshot() []fakePair {
	out := make([]fakePair, len(s.items))
	for i, p := range s.items {
		out[i] = fakePair{k: bytes.Clone(p.k), v: bytes.Clone(p.v)}
	}
	return out
}

func (s *fakeStore) get(key string) ([]byte, bool) {
	i := s.searchKey([]byte(key))
	if i < len(s.items) && bytes.Equal(s.items[i].k, []byte(key)) {
		return s.items[i].v, true
	}
	return nil, false
}
