// Package service exposes the state of a mesh node over HTTP.
package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/mosaicnetworks/peermesh/src/activity"
	"github.com/mosaicnetworks/peermesh/src/common"
	"github.com/mosaicnetworks/peermesh/src/peers"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 2 * time.Second

// Info describes the node the service reports on.
type Info struct {
	Hostname  string `json:"hostname"`
	Port      int    `json:"port"`
	Transport string `json:"transport"`
}

// Stats is the body of GET /stats.
type Stats struct {
	Info
	Peers   int                      `json:"peers"`
	Total   int                      `json:"total"`
	Send    map[activity.Outcome]int `json:"send"`
	Receive map[activity.Outcome]int `json:"receive"`
}

// Activity is the body of GET /activity.
type Activity struct {
	Last    int               `json:"last"`
	Records []activity.Record `json:"records"`
}

// Service serves the peer table and recent activity of a node.
type Service struct {
	bindAddress string
	info        Info
	table       *peers.PeerTable
	recorder    *activity.InmemRecorder
	logger      *logrus.Entry

	server *http.Server
}

// NewService ...
func NewService(
	bindAddress string,
	info Info,
	table *peers.PeerTable,
	recorder *activity.InmemRecorder,
	logger *logrus.Entry,
) *Service {

	service := &Service{
		bindAddress: bindAddress,
		info:        info,
		table:       table,
		recorder:    recorder,
		logger:      logger,
	}

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.Handler(),
	}

	return service
}

// Handler returns the router of the service.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/peers", s.makeHandler(s.GetPeers)).Methods(http.MethodGet)
	r.HandleFunc("/activity", s.makeHandler(s.GetActivity)).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.makeHandler(s.GetStats)).Methods(http.MethodGet)
	return r
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Serve calls ListenAndServe. This is a blocking call, it returns nil once
// Close has been called.
func (s *Service) Serve() error {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close gracefully stops the server.
func (s *Service) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// GetPeers returns the peer table, with ports, in order.
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.table.Peers())
}

// GetActivity returns the cached records. The optional "since" parameter
// skips the records up to and including that sequence number.
func (s *Service) GetActivity(w http.ResponseWriter, r *http.Request) {
	since := -1

	if param := r.URL.Query().Get("since"); param != "" {
		v, err := strconv.Atoi(param)
		if err != nil {
			s.logger.WithError(err).Errorf("Parsing since parameter %s", param)

			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}
		since = v
	}

	records, last, err := s.recorder.Since(since)
	if err != nil {
		status := http.StatusInternalServerError
		if common.IsStore(err, common.TooLate) {
			status = http.StatusGone
		}

		http.Error(w, err.Error(), status)

		return
	}

	writeJSON(w, Activity{
		Last:    last,
		Records: records,
	})
}

// GetStats returns the counters of the node.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	counts := s.recorder.Stats()

	writeJSON(w, Stats{
		Info:    s.info,
		Peers:   s.table.Len(),
		Total:   s.recorder.Total(),
		Send:    counts[activity.Send],
		Receive: counts[activity.Receive],
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(v)
}
