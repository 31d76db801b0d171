package activity

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/sirupsen/logrus"
)

const recordPrefix = "record"

// BadgerRecorder persists records in a Badger database. Keys sort in
// insertion order.
type BadgerRecorder struct {
	db     *badger.DB
	path   string
	logger *logrus.Entry

	seqLock sync.Mutex
	seq     uint64
}

// NewBadgerRecorder opens an existing database or creates a new one if nothing
// is found in path.
func NewBadgerRecorder(path string, logger *logrus.Entry) (*BadgerRecorder, error) {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true).
		WithLogger(logger.WithField("ns", "badger"))

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerRecorder{
		db:     handle,
		path:   path,
		logger: logger,
	}

	last, err := store.lastSeq()
	if err != nil {
		handle.Close()
		return nil, err
	}
	store.seq = last

	return store, nil
}

func recordKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", recordPrefix, seq))
}

// Record implements the Recorder interface.
func (b *BadgerRecorder) Record(r Record) {
	if err := b.dbSetRecord(r); err != nil {
		b.logger.WithError(err).Error("Failed to store activity record")
	}
}

// Records returns every stored record in insertion order.
func (b *BadgerRecorder) Records() ([]Record, error) {
	var res []Record

	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(data []byte) error {
				var r Record
				if err := r.Unmarshal(data); err != nil {
					return err
				}
				res = append(res, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return res, nil
}

// Close closes the underlying database.
func (b *BadgerRecorder) Close() error {
	return b.db.Close()
}

func (b *BadgerRecorder) dbSetRecord(r Record) error {
	val, err := r.Marshal()
	if err != nil {
		return err
	}

	b.seqLock.Lock()
	b.seq++
	key := recordKey(b.seq)
	b.seqLock.Unlock()

	tx := b.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(key, val); err != nil {
		return err
	}

	return tx.Commit()
}

// lastSeq finds the sequence number of the last stored record, so that
// records appended after a restart sort after the existing ones.
func (b *BadgerRecorder) lastSeq() (uint64, error) {
	var last uint64

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var seq uint64
			if _, err := fmt.Sscanf(string(it.Item().Key()), recordPrefix+"_%d", &seq); err != nil {
				return err
			}
			last = seq
		}
		return nil
	})

	return last, err
}
