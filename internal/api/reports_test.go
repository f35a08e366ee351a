package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/config"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/database"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/notify"
	"github.com/MIT-Despereaux/Dspx-Monitor/migrations"
)

// webhook records every message it receives and answers with status.
type webhook struct {
	mu       sync.Mutex
	status   int
	messages []notify.Message
}

func (h *webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var msg notify.Message
	_ = json.NewDecoder(r.Body).Decode(&msg)
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	status := h.status
	h.mu.Unlock()
	w.WriteHeader(status)
	_, _ = w.Write([]byte("no_service"))
}

func (h *webhook) received() []notify.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]notify.Message(nil), h.messages...)
}

// newNotifier returns a notifier posting to a recording webhook, with
// history kept in a migrated in-memory database.
func newNotifier(t *testing.T, status int) (*notify.Notifier, *webhook) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	hook := &webhook{status: status}
	ts := httptest.NewServer(hook)
	t.Cleanup(ts.Close)

	sender, err := notify.NewWebhookSender(ts.URL)
	if err != nil {
		t.Fatalf("NewWebhookSender() error = %v", err)
	}
	n := notify.NewNotifier(sender, notify.NewSQLiteDeliveryRepository(db.DB), notify.Destination{Channel: "#fridge"}, nil)
	return n, hook
}

var reportRows = []string{
	"10:00:00\t0.012\t0.8\t1e-3\t1\t0",
	"10:30:00\t0.011\t0.7\t1e-3\t1\t0",
	"11:00:00\t0.010\t0.9\t2e-3\t0\t1",
}

func TestCreateReport_DryRun(t *testing.T) {
	f := newFixture(t, nil)
	f.writeLog(t, 10, reportRows...)

	w := f.do(t, http.MethodPost, "/api/v1/reports", `{"start":"2026-06-10","dry_run":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	resp := decode[ReportResponse](t, w)
	if resp.Delivery != nil {
		t.Error("dry run recorded a delivery")
	}
	if resp.Report == nil {
		t.Fatal("dry run returned no report")
	}
	if resp.Report.Label != "2026-06-10..2026-06-10" {
		t.Errorf("label = %q", resp.Report.Label)
	}
	if resp.Report.Summary.Observations != 3 {
		t.Errorf("observations = %d, want 3", resp.Report.Summary.Observations)
	}
	text := resp.Report.Report.Text
	for _, want := range []string{"Dspx-Monitor Daily Report", "Range: 2026-06-10..2026-06-10", "Samples: 3"} {
		if !strings.Contains(text, want) {
			t.Errorf("report text missing %q:\n%s", want, text)
		}
	}
	if len(resp.Report.Report.Blocks) == 0 {
		t.Error("report has no blocks")
	}
}

func TestCreateReport_NotConfigured(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/reports", `{"start":"2026-06-10"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if e := decode[Error](t, w); e.Code != ErrCodeUnavailable {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeUnavailable)
	}
}

func TestCreateReport_Delivered(t *testing.T) {
	n, hook := newNotifier(t, http.StatusOK)
	f := newFixture(t, n)
	f.writeLog(t, 10, reportRows...)

	w := f.do(t, http.MethodPost, "/api/v1/reports", `{"start":"2026-06-10","channel":"#ops","channels":["still"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	resp := decode[ReportResponse](t, w)
	if resp.Delivery == nil || resp.Delivery.Status != notify.StatusSent {
		t.Fatalf("delivery = %+v, want sent", resp.Delivery)
	}
	if resp.Delivery.Destination != "#ops" || resp.Delivery.Kind != notify.KindManual {
		t.Errorf("delivery = %+v", resp.Delivery)
	}
	if got := len(resp.Report.Summary.Channels); got != 1 {
		t.Errorf("summary channels = %d, want 1", got)
	}

	msgs := hook.received()
	if len(msgs) != 1 {
		t.Fatalf("webhook received %d messages, want 1", len(msgs))
	}
	if msgs[0].Channel != "#ops" || msgs[0].Text != resp.Report.Report.Text {
		t.Errorf("webhook message = %+v", msgs[0])
	}

	list := decode[DeliveriesResponse](t, f.do(t, http.MethodGet, "/api/v1/reports", ""))
	if len(list.Deliveries) != 1 || list.Deliveries[0].ID != resp.Delivery.ID {
		t.Errorf("history = %+v, want the new delivery", list.Deliveries)
	}
}

func TestCreateReport_DefaultDestination(t *testing.T) {
	n, hook := newNotifier(t, http.StatusOK)
	f := newFixture(t, n)

	w := f.do(t, http.MethodPost, "/api/v1/reports", `{"user":""}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	resp := decode[ReportResponse](t, w)
	if resp.Report.Label != "Last 24 hours" {
		t.Errorf("label = %q, want trailing window", resp.Report.Label)
	}
	if msgs := hook.received(); len(msgs) != 1 || msgs[0].Channel != "#fridge" {
		t.Errorf("webhook messages = %+v, want one to #fridge", msgs)
	}
}

func TestCreateReport_DeliveryFailure(t *testing.T) {
	n, hook := newNotifier(t, http.StatusNotFound)
	f := newFixture(t, n)
	f.writeLog(t, 10, reportRows...)

	w := f.do(t, http.MethodPost, "/api/v1/reports", `{"start":"2026-06-10","user":"alice"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 (body %s)", w.Code, w.Body.String())
	}
	resp := decode[ReportResponse](t, w)
	if resp.Error == nil || resp.Error.Code != ErrCodeDeliveryFailed {
		t.Errorf("error = %+v, want %s", resp.Error, ErrCodeDeliveryFailed)
	}
	if resp.Delivery == nil || resp.Delivery.Status != notify.StatusFailed || resp.Delivery.HTTPStatus != http.StatusNotFound {
		t.Errorf("delivery = %+v, want failed with 404", resp.Delivery)
	}
	if resp.Report == nil || resp.Report.Report.Text == "" {
		t.Error("failed delivery did not return the report")
	}
	if got := len(hook.received()); got != 1 {
		t.Errorf("webhook hits = %d, want exactly 1", got)
	}

	list := decode[DeliveriesResponse](t, f.do(t, http.MethodGet, "/api/v1/reports?limit=5", ""))
	if len(list.Deliveries) != 1 || list.Deliveries[0].Status != notify.StatusFailed {
		t.Errorf("history = %+v, want one failed delivery", list.Deliveries)
	}
}

func TestCreateReport_BadRequests(t *testing.T) {
	n, hook := newNotifier(t, http.StatusOK)
	f := newFixture(t, n)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"start":`},
		{"bad date", `{"start":"10/06/2026"}`},
		{"reversed range", `{"start":"2026-06-10","end":"2026-06-01"}`},
		{"unknown channel", `{"channels":["bogus"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/reports", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}
	if got := len(hook.received()); got != 0 {
		t.Errorf("webhook hits = %d, want 0", got)
	}
}

func TestListReports(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/reports", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"deliveries":[]`) {
		t.Errorf("body = %s, want an empty list", w.Body.String())
	}

	for _, q := range []string{"limit=0", "limit=abc", "limit=501"} {
		if w := f.do(t, http.MethodGet, "/api/v1/reports?"+q, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}
