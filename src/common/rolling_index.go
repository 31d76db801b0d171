package common

import "strconv"

// RollingIndex is an append-only cache of items with consecutive indexes
// starting at 0. It keeps between size and 2*size of the most recent items.
type RollingIndex struct {
	name      string
	size      int
	lastIndex int
	items     []interface{}
}

// NewRollingIndex ...
func NewRollingIndex(name string, size int) *RollingIndex {
	if size < 1 {
		size = 1
	}
	return &RollingIndex{
		name:      name,
		size:      size,
		items:     make([]interface{}, 0, 2*size),
		lastIndex: -1,
	}
}

// LastIndex returns the index of the most recent item, or -1.
func (r *RollingIndex) LastIndex() int {
	return r.lastIndex
}

// Append adds an item and returns its index.
func (r *RollingIndex) Append(item interface{}) int {
	if len(r.items) >= 2*r.size {
		r.Roll()
	}
	r.items = append(r.items, item)
	r.lastIndex++
	return r.lastIndex
}

// Since returns the cached items whose index is strictly greater than
// skipIndex. Use -1 to get everything still cached.
func (r *RollingIndex) Since(skipIndex int) ([]interface{}, error) {
	res := make([]interface{}, 0)

	if skipIndex >= r.lastIndex {
		return res, nil
	}

	oldestCachedIndex := r.lastIndex - len(r.items) + 1
	if skipIndex+1 < oldestCachedIndex {
		return res, NewStoreErr(r.name, TooLate, strconv.Itoa(skipIndex))
	}

	start := skipIndex - oldestCachedIndex + 1

	return append(res, r.items[start:]...), nil
}

// Last returns the most recent item.
func (r *RollingIndex) Last() (interface{}, error) {
	if len(r.items) == 0 {
		return nil, NewStoreErr(r.name, Empty, "")
	}
	return r.items[len(r.items)-1], nil
}

// Roll drops the oldest size items.
func (r *RollingIndex) Roll() {
	newList := make([]interface{}, 0, 2*r.size)
	newList = append(newList, r.items[r.size:]...)
	r.items = newList
}
