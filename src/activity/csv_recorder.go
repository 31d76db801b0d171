package activity

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CSVHeader is the first row of every CSV activity file.
var CSVHeader = []string{"timestamp", "action", "hostname", "other_hostname", "ip", "port", "status"}

// CSVRecorder appends records to a CSV file. The header is written when the
// file is created, or found empty.
type CSVRecorder struct {
	l      sync.Mutex
	path   string
	logger *logrus.Entry
}

// NewCSVRecorder creates the parent directory of path if needed.
func NewCSVRecorder(path string, logger *logrus.Entry) (*CSVRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating activity directory")
	}

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &CSVRecorder{
		path:   path,
		logger: logger,
	}, nil
}

// Path returns the location of the CSV file.
func (c *CSVRecorder) Path() string {
	return c.path
}

// Record implements the Recorder interface.
func (c *CSVRecorder) Record(r Record) {
	c.l.Lock()
	defer c.l.Unlock()

	if err := c.append(r); err != nil {
		c.logger.WithError(err).WithField("path", c.path).Error("Failed to append activity record")
	}
}

func (c *CSVRecorder) append(r Record) error {
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)

	if info.Size() == 0 {
		if err := w.Write(CSVHeader); err != nil {
			return err
		}
	}

	if err := w.Write(csvRow(r)); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func csvRow(r Record) []string {
	port := NotAvailable
	if r.Port > 0 {
		port = strconv.Itoa(r.Port)
	}

	return []string{
		r.Timestamp.Format(TimestampFormat),
		string(r.Action),
		r.Hostname,
		orNotAvailable(r.OtherHostname),
		orNotAvailable(r.Address),
		port,
		string(r.Outcome),
	}
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
