package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/dashboard"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/notify"
)

// Delivery history page sizes.
const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// ReportRequest is the body of POST /api/v1/reports.
//
// With neither start nor end the report covers the configured trailing
// window ending now. Channel and User override the default destination.
// DryRun formats the report without sending it.
type ReportRequest struct {
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Channels []string `json:"channels"`
	Channel  string   `json:"channel"`
	User     string   `json:"user"`
	DryRun   bool     `json:"dry_run"`
}

// ReportResponse is the body returned by POST /api/v1/reports.
type ReportResponse struct {
	Report   *dashboard.ReportView `json:"report"`
	Delivery *notify.Delivery      `json:"delivery,omitempty"`
	Error    *Error                `json:"error,omitempty"`
}

// DeliveriesResponse is the body of GET /api/v1/reports.
type DeliveriesResponse struct {
	Deliveries []notify.Delivery `json:"deliveries"`
}

// handleCreateReport formats a report and, unless dry_run is set, sends it.
//
// A failed send answers 502 with the report and the recorded delivery so
// the caller can see what would have been sent.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var build dashboard.ReportRequest
	if req.Start != "" || req.End != "" {
		rng, err := s.parseRange(req.Start, req.End)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		build.Range = &rng
	}
	if len(req.Channels) > 0 {
		ids, err := channel.Resolve(req.Channels)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		build.Channels = ids
	}

	if !req.DryRun && (s.notifier == nil || !s.notifier.Configured()) {
		s.writeDomainError(w, r, notify.ErrNotConfigured)
		return
	}

	view, err := s.dashboard.BuildReport(r.Context(), build)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if req.DryRun {
		writeJSON(w, http.StatusOK, ReportResponse{Report: view})
		return
	}

	delivery, err := s.notifier.Deliver(r.Context(), notify.Request{
		Report:      view.Report,
		Kind:        notify.KindManual,
		Destination: notify.Destination{Channel: req.Channel, User: req.User},
		RangeStart:  view.From,
		RangeEnd:    view.To,
	})
	if err != nil {
		if delivery == nil {
			s.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadGateway, ReportResponse{
			Report:   view,
			Delivery: delivery,
			Error: &Error{
				Status:  http.StatusBadGateway,
				Code:    ErrCodeDeliveryFailed,
				Message: err.Error(),
			},
		})
		return
	}

	writeJSON(w, http.StatusCreated, ReportResponse{Report: view, Delivery: delivery})
}

// handleListReports returns recent deliveries, newest first.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeBadRequest(w, "limit must be between 1 and "+strconv.Itoa(maxHistoryLimit))
			return
		}
		limit = n
	}

	resp := DeliveriesResponse{Deliveries: []notify.Delivery{}}
	if s.notifier != nil {
		list, err := s.notifier.History(r.Context(), limit)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		if list != nil {
			resp.Deliveries = list
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
