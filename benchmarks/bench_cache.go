package benchmarks

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/bmatsuo/lmdb-go/lmdb"
	mdbxgo "github.com/erigontech/mdbx-go/mdbx"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	bolt "go.etcd.io/bbolt"
)

// Cached benchmark database directory
const benchCacheDir = "testdata/benchdb"

const (
	tableName    = "bench"
	dupTableName = "dupbench"
	valSize      = 32
	batchSize    = 100_000
)

var (
	cacheMu     sync.Mutex
	mdbxEnvs    = make(map[string]*mdbxgo.Env)
	lmdbEnvs    = make(map[string]*lmdb.Env)
	boltDBs     = make(map[string]*bolt.DB)
	levelDBs    = make(map[string]*leveldb.DB)
	sampleCache = make(map[int][][]byte)
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func ensureCacheDir(b *testing.B) {
	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
}

// benchKey fills key with the big-endian index, the layout the cursor
// writers produce for KeyWriteInt64.
func benchKey(key []byte, i int) []byte {
	binary.BigEndian.PutUint64(key, uint64(i))
	return key
}

// benchIndex decodes a key written by benchKey.
func benchIndex(key []byte) int {
	return int(binary.BigEndian.Uint64(key))
}

// benchValue fills val the way the populate helpers do for index n.
func benchValue(val []byte, n int) []byte {
	clear(val)
	binary.BigEndian.PutUint64(val, uint64(n))
	return val
}

// samples returns every 1000th key of a plain database of the given size.
func samples(size int) [][]byte {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if s, ok := sampleCache[size]; ok {
		return s
	}
	s := make([][]byte, 0, size/1000+1)
	for i := 0; i < size; i += 1000 {
		s = append(s, benchKey(make([]byte, 8), i))
	}
	sampleCache[size] = s
	return s
}

// getCachedMdbx returns a cached MDBX environment holding a plain table of
// size keys and, when dupVals > 0, a DupSort table of size/dupVals keys.
func getCachedMdbx(b *testing.B, size, dupVals int) *mdbxgo.Env {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("mdbx_%d_%d", size, dupVals)
	if env, ok := mdbxEnvs[key]; ok {
		return env
	}
	ensureCacheDir(b)
	path := filepath.Join(benchCacheDir, key+".db")
	exists := fileExists(path)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	env, err := mdbxgo.NewEnv(mdbxgo.Label("bench"))
	if err != nil {
		b.Fatal(err)
	}
	env.SetOption(mdbxgo.OptMaxDB, 10)
	env.SetGeometry(-1, -1, 1<<32, -1, -1, 4096) // 4GB max
	if err := env.Open(path, mdbxgo.NoSubdir|mdbxgo.NoMetaSync, 0644); err != nil {
		env.Close()
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached mdbx DB with %d keys...", size)
		populateMdbx(b, env, tableName, size, 1, 0)
		if dupVals > 0 {
			populateMdbx(b, env, dupTableName, size/dupVals, dupVals, mdbxgo.DupSort)
		}
	} else {
		b.Logf("Using cached mdbx DB with %d keys", size)
	}
	mdbxEnvs[key] = env
	return env
}

func populateMdbx(b *testing.B, env *mdbxgo.Env, table string, numKeys, valsPerKey int, flags uint) {
	txn, err := env.BeginTxn(nil, 0)
	if err != nil {
		b.Fatal(err)
	}
	dbi, err := txn.OpenDBI(table, mdbxgo.Create|flags, nil, nil)
	if err != nil {
		b.Fatal(err)
	}

	key := make([]byte, 8)
	val := make([]byte, valSize)
	count := 0
	for i := 0; i < numKeys; i++ {
		benchKey(key, i)
		for j := 0; j < valsPerKey; j++ {
			binary.BigEndian.PutUint64(val, uint64(i+j))
			if err := txn.Put(dbi, key, val, mdbxgo.Upsert); err != nil {
				b.Fatal(err)
			}
			count++
			if count%batchSize == 0 {
				if _, err := txn.Commit(); err != nil {
					b.Fatal(err)
				}
				if txn, err = env.BeginTxn(nil, 0); err != nil {
					b.Fatal(err)
				}
			}
		}
	}
	if _, err := txn.Commit(); err != nil {
		b.Fatal(err)
	}
}

// getCachedLmdb returns a cached LMDB environment with a plain table.
func getCachedLmdb(b *testing.B, size int) (*lmdb.Env, lmdb.DBI) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("lmdb_%d", size)
	env, ok := lmdbEnvs[key]
	if !ok {
		ensureCacheDir(b)
		path := filepath.Join(benchCacheDir, key+".db")
		exists := fileExists(path)

		var err error
		if env, err = lmdb.NewEnv(); err != nil {
			b.Fatal(err)
		}
		env.SetMaxDBs(10)
		env.SetMapSize(1 << 32)
		if err := env.Open(path, lmdb.NoSubdir|lmdb.NoMetaSync, 0644); err != nil {
			env.Close()
			b.Fatal(err)
		}
		if !exists {
			b.Logf("Creating cached lmdb DB with %d keys...", size)
			populateLmdb(b, env, size)
		}
		lmdbEnvs[key] = env
	}

	var dbi lmdb.DBI
	err := env.View(func(txn *lmdb.Txn) (err error) {
		dbi, err = txn.OpenDBI(tableName, 0)
		return err
	})
	if err != nil {
		b.Fatal(err)
	}
	return env, dbi
}

func populateLmdb(b *testing.B, env *lmdb.Env, numKeys int) {
	key := make([]byte, 8)
	val := make([]byte, valSize)
	for start := 0; start < numKeys; start += batchSize {
		err := env.Update(func(txn *lmdb.Txn) error {
			dbi, err := txn.OpenDBI(tableName, lmdb.Create)
			if err != nil {
				return err
			}
			for i := start; i < min(start+batchSize, numKeys); i++ {
				binary.BigEndian.PutUint64(val, uint64(i))
				if err := txn.Put(dbi, benchKey(key, i), val, 0); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

// getCachedBoltDB returns a cached BoltDB database, creating it if needed.
func getCachedBoltDB(b *testing.B, size int) *bolt.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("bolt_%d", size)
	if db, ok := boltDBs[key]; ok {
		return db
	}
	ensureCacheDir(b)
	path := filepath.Join(benchCacheDir, key+".db")
	exists := fileExists(path)

	db, err := bolt.Open(path, 0644, &bolt.Options{
		NoSync:         true,
		NoFreelistSync: true,
	})
	if err != nil {
		b.Fatal(err)
	}
	if !exists {
		b.Logf("Creating cached BoltDB with %d keys...", size)
		populateBolt(b, db, size)
	}
	boltDBs[key] = db
	return db
}

func populateBolt(b *testing.B, db *bolt.DB, numKeys int) {
	key := make([]byte, 8)
	for start := 0; start < numKeys; start += batchSize {
		err := db.Update(func(tx *bolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists([]byte(tableName))
			if err != nil {
				return err
			}
			bucket.FillPercent = 1.0
			for i := start; i < min(start+batchSize, numKeys); i++ {
				val := make([]byte, valSize)
				binary.BigEndian.PutUint64(val, uint64(i))
				if err := bucket.Put(benchKey(key, i), val); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

// getCachedLevelDB returns a cached goleveldb database.
func getCachedLevelDB(b *testing.B, size int) *leveldb.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("level_%d", size)
	if db, ok := levelDBs[key]; ok {
		return db
	}
	ensureCacheDir(b)
	path := filepath.Join(benchCacheDir, key)
	exists := fileExists(path)

	db, err := leveldb.OpenFile(path, &opt.Options{NoSync: true})
	if err != nil {
		b.Fatal(err)
	}
	if !exists {
		b.Logf("Creating cached goleveldb DB with %d keys...", size)
		populateLevel(b, db, size)
	}
	levelDBs[key] = db
	return db
}

func populateLevel(b *testing.B, db *leveldb.DB, numKeys int) {
	key := make([]byte, 8)
	val := make([]byte, valSize)
	batch := new(leveldb.Batch)
	for i := 0; i < numKeys; i++ {
		binary.BigEndian.PutUint64(val, uint64(i))
		batch.Put(benchKey(key, i), val)
		if batch.Len() == batchSize {
			if err := db.Write(batch, nil); err != nil {
				b.Fatal(err)
			}
			batch.Reset()
		}
	}
	if err := db.Write(batch, nil); err != nil {
		b.Fatal(err)
	}
}

// CleanupBenchCache closes all cached environments.
// Call this in TestMain or after benchmarks complete.
func CleanupBenchCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	for _, env := range mdbxEnvs {
		env.Close()
	}
	for _, env := range lmdbEnvs {
		env.Close()
	}
	for _, db := range boltDBs {
		db.Close()
	}
	for _, db := range levelDBs {
		db.Close()
	}
	mdbxEnvs = make(map[string]*mdbxgo.Env)
	lmdbEnvs = make(map[string]*lmdb.Env)
	boltDBs = make(map[string]*bolt.DB)
	levelDBs = make(map[string]*leveldb.DB)
	sampleCache = make(map[int][][]byte)
}

// DeleteBenchCache removes all cached database files.
func DeleteBenchCache() error {
	return os.RemoveAll(benchCacheDir)
}
