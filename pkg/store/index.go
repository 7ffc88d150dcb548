// Package store is an in-memory ordered index of records keyed by Morton
// key. It executes range lists produced by ztree the way a clustered index
// would: one ordered scan per range.
package store

import (
	"sort"
	"sync"

	"github.com/google/btree"

	"zrange/pkg/common"
	"zrange/pkg/morton"
)

type Item struct {
	Key common.Key
	Val []byte
}

func (i Item) Less(than btree.Item) bool {
	other := than.(Item)
	return i.Key.Lt(&other.Key)
}

// Candidate is a record returned by a range scan. Inside is set when the
// record came from a range flagged inside, so it needs no exact check.
type Candidate struct {
	common.Record
	Inside bool
}

type Index struct {
	codec *morton.Codec
	tree  *btree.BTree
	lock  sync.RWMutex
	size  int
}

func NewIndex(codec *morton.Codec, degree int) *Index {
	return &Index{
		codec: codec,
		tree:  btree.New(degree),
	}
}

// Put stores val under the key of coords, replacing an earlier record at the
// same point.
func (ix *Index) Put(coords []uint64, val []byte) (common.Key, error) {
	key, err := ix.codec.Encode(coords)
	if err != nil {
		return key, err
	}
	ix.PutKey(key, val)
	return key, nil
}

func (ix *Index) PutKey(key common.Key, val []byte) {
	ix.lock.Lock()
	defer ix.lock.Unlock()

	if old := ix.tree.ReplaceOrInsert(Item{Key: key, Val: val}); old != nil {
		ix.size -= 16 + len(old.(Item).Val)
	}
	ix.size += 16 + len(val)
}

func (ix *Index) Get(key common.Key) ([]byte, bool) {
	ix.lock.RLock()
	defer ix.lock.RUnlock()

	res := ix.tree.Get(Item{Key: key})
	if res == nil {
		return nil, false
	}
	return res.(Item).Val, true
}

func (ix *Index) Len() int {
	ix.lock.RLock()
	defer ix.lock.RUnlock()
	return ix.tree.Len()
}

// Size is an estimate of the bytes held.
func (ix *Index) Size() int {
	ix.lock.RLock()
	defer ix.lock.RUnlock()
	return ix.size
}

// ScanRange calls fn for every record with a key in r, in key order, until
// fn returns false. It reports how many records it visited.
func (ix *Index) ScanRange(r common.ZRange, fn func(rec common.Record) bool) int {
	ix.lock.RLock()
	defer ix.lock.RUnlock()
	return ix.scan(r, fn)
}

func (ix *Index) scan(r common.ZRange, fn func(rec common.Record) bool) int {
	n := 0
	ix.tree.AscendGreaterOrEqual(Item{Key: r.Min}, func(i btree.Item) bool {
		item := i.(Item)
		if item.Key.Gt(&r.Max) {
			return false
		}
		n++
		return fn(common.Record{Key: item.Key, Value: item.Val})
	})
	return n
}

// ScanRanges collects the records of every range. Overlapping ranges are
// merged first so that no record is returned twice.
func (ix *Index) ScanRanges(ranges []common.ZRange) []Candidate {
	ix.lock.RLock()
	defer ix.lock.RUnlock()

	var out []Candidate
	for _, r := range mergeOverlapping(ranges) {
		inside := r.Inside
		ix.scan(r, func(rec common.Record) bool {
			out = append(out, Candidate{Record: rec, Inside: inside})
			return true
		})
	}
	return out
}

// Iterator walks every record in key order.
func (ix *Index) Iterator(fn func(key common.Key, val []byte) bool) {
	ix.lock.RLock()
	defer ix.lock.RUnlock()

	ix.tree.Ascend(func(i btree.Item) bool {
		item := i.(Item)
		return fn(item.Key, item.Val)
	})
}

// Coords decodes the point a key was stored at.
func (ix *Index) Coords(key common.Key) []uint64 {
	return ix.codec.Decode(key)
}

// mergeOverlapping sorts ranges and fuses the ones sharing keys. Touching
// ranges stay apart so their inside flags survive.
func mergeOverlapping(ranges []common.ZRange) []common.ZRange {
	if len(ranges) < 2 {
		return ranges
	}
	sorted := make([]common.ZRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min.Lt(&sorted[j].Min) })

	out := sorted[:1]
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if r.Min.Gt(&last.Max) {
			out = append(out, r)
			continue
		}
		if r.Max.Gt(&last.Max) {
			last.Max = r.Max
		}
		last.Inside = last.Inside && r.Inside
	}
	return out
}
