package localizer

import (
	"container/heap"

	"github.com/hupe1980/seqloc/model"
)

// entry is a frontier item. acc is the accumulated cost at push time; an
// entry whose acc disagrees with the graph is stale.
type entry struct {
	key model.Key
	acc float64
}

// frontier is a min-heap by accumulated cost, ties broken by lower reference
// id, then lower query id.
type frontier []entry

var _ heap.Interface = (*frontier)(nil)

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	a, b := f[i], f[j]
	if a.acc != b.acc {
		return a.acc < b.acc
	}
	if a.key.RefID != b.key.RefID {
		return a.key.RefID < b.key.RefID
	}
	return a.key.QueryID < b.key.QueryID
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(entry)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	e := old[n-1]
	*f = old[:n-1]
	return e
}

func (f *frontier) push(k model.Key, acc float64) {
	heap.Push(f, entry{key: k, acc: acc})
}

func (f *frontier) pop() entry {
	return heap.Pop(f).(entry)
}

func (f *frontier) reset() {
	*f = (*f)[:0]
}
