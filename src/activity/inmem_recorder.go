package activity

import (
	"sync"

	"github.com/mosaicnetworks/peermesh/src/common"
)

// DefaultCacheSize is the default number of records kept by an InmemRecorder.
const DefaultCacheSize = 1000

// Stats counts records by action and outcome.
type Stats map[Action]map[Outcome]int

// InmemRecorder keeps the most recent records in memory together with
// counters of everything it has seen.
type InmemRecorder struct {
	sync.Mutex
	records *common.RollingIndex
	stats   Stats
	total   int
}

// NewInmemRecorder ...
func NewInmemRecorder(cacheSize int) *InmemRecorder {
	return &InmemRecorder{
		records: common.NewRollingIndex("Record", cacheSize),
		stats: Stats{
			Send:    make(map[Outcome]int),
			Receive: make(map[Outcome]int),
		},
	}
}

// Record implements the Recorder interface.
func (i *InmemRecorder) Record(r Record) {
	i.Lock()
	defer i.Unlock()

	i.records.Append(r)

	if _, ok := i.stats[r.Action]; !ok {
		i.stats[r.Action] = make(map[Outcome]int)
	}
	i.stats[r.Action][r.Outcome]++
	i.total++
}

// Since returns the cached records with a sequence number greater than seq,
// and the sequence number of the last record. Use -1 to get every cached
// record. It returns a common.TooLate error if some of the requested records
// were already evicted.
func (i *InmemRecorder) Since(seq int) ([]Record, int, error) {
	i.Lock()
	defer i.Unlock()

	items, err := i.records.Since(seq)
	if err != nil {
		return nil, i.records.LastIndex(), err
	}

	res := make([]Record, len(items))
	for k, item := range items {
		res[k] = item.(Record)
	}

	return res, i.records.LastIndex(), nil
}

// Last returns the most recent record.
func (i *InmemRecorder) Last() (Record, error) {
	i.Lock()
	defer i.Unlock()

	item, err := i.records.Last()
	if err != nil {
		return Record{}, err
	}
	return item.(Record), nil
}

// Stats returns a copy of the counters.
func (i *InmemRecorder) Stats() Stats {
	i.Lock()
	defer i.Unlock()

	res := make(Stats, len(i.stats))
	for action, outcomes := range i.stats {
		res[action] = make(map[Outcome]int, len(outcomes))
		for o, c := range outcomes {
			res[action][o] = c
		}
	}
	return res
}

// Total returns the number of records seen since creation.
func (i *InmemRecorder) Total() int {
	i.Lock()
	defer i.Unlock()

	return i.total
}
