package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/dashboard"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// CategoryInfo describes one channel group.
type CategoryInfo struct {
	Name     channel.Category `json:"name"`
	Title    string           `json:"title"`
	Channels []channel.ID     `json:"channels"`
}

// ChannelsResponse is the body of GET /api/v1/channels.
type ChannelsResponse struct {
	Channels   []channel.Channel `json:"channels"`
	Categories []CategoryInfo    `json:"categories"`
}

// RangeResponse is the body of GET /api/v1/range.
type RangeResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Today string `json:"today"`
}

// handleListChannels returns the channel registry.
func (s *Server) handleListChannels(w http.ResponseWriter, _ *http.Request) {
	resp := ChannelsResponse{
		Channels:   make([]channel.Channel, 0, channel.Count()),
		Categories: make([]CategoryInfo, 0, len(channel.Categories)),
	}
	for _, id := range channel.All() {
		ch, _ := channel.Get(id)
		resp.Channels = append(resp.Channels, ch)
	}
	for _, cat := range channel.Categories {
		resp.Categories = append(resp.Categories, CategoryInfo{
			Name:     cat,
			Title:    cat.Title(),
			Channels: channel.ByCategory(cat),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRange returns the first and last dates that have a log file.
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	rng, err := s.dashboard.Available()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RangeResponse{
		Start: rng.Start.Format(time.DateOnly),
		End:   rng.End.Format(time.DateOnly),
		Today: s.dashboard.Today().Start.Format(time.DateOnly),
	})
}

// handleSeries returns chart columns for a date range.
//
// Query parameters: start, end (YYYY-MM-DD), category, channels (comma
// separated names or aliases). channels wins over category.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	rng, err := s.queryRange(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	ids, err := queryChannels(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	view, err := s.dashboard.Series(r.Context(), dashboard.SeriesRequest{
		Range:    rng,
		Category: channel.Category(strings.TrimSpace(r.URL.Query().Get("category"))),
		Channels: ids,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleValves returns the latest known state of every valve.
func (s *Server) handleValves(w http.ResponseWriter, r *http.Request) {
	rng, err := s.queryRange(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	view, err := s.dashboard.Valves(r.Context(), rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSummary returns per-channel statistics for a date range.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := s.queryRange(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	ids, err := queryChannels(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	view, err := s.dashboard.Summary(r.Context(), rng, ids)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// queryRange reads start and end from the query string. Both absent means
// today in the site time zone.
func (s *Server) queryRange(r *http.Request) (telemetry.Range, error) {
	q := r.URL.Query()
	return s.parseRange(q.Get("start"), q.Get("end"))
}

func (s *Server) parseRange(start, end string) (telemetry.Range, error) {
	return dashboard.ParseRange(start, end, s.dashboard.Location(), s.dashboard.Today().Start)
}

// queryChannels resolves the channels query parameter. Absent means nil.
func queryChannels(r *http.Request) ([]channel.ID, error) {
	names := splitList(r.URL.Query().Get("channels"))
	if len(names) == 0 {
		return nil, nil
	}
	return channel.Resolve(names)
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
