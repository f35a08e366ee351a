package dashboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// fakeClock is a settable time source.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time { return f.t }

func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

const header = "heures\tfull range\tstill\tP1\tVE1\tVE2\n"

type fixture struct {
	dir   string
	clock *fakeClock
	ctrl  *Controller
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	dir := t.TempDir()
	src := telemetry.NewDirSource(dir, ".txt", time.UTC)
	merger := telemetry.NewMerger(src, telemetry.NewParser(time.UTC, time.Minute),
		telemetry.MergerConfig{Parallelism: 2, MaxRangeDays: 31})

	cfg.Location = time.UTC
	if cfg.MaxRangeDays == 0 {
		cfg.MaxRangeDays = 31
	}
	clock := &fakeClock{t: time.Date(2026, 6, 11, 15, 0, 0, 0, time.UTC)}
	ctrl := NewController(src, merger, cfg)
	ctrl.SetClock(clock.Now)
	return &fixture{dir: dir, clock: clock, ctrl: ctrl}
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) appendRow(t *testing.T, name, row string) {
	t.Helper()
	fh, err := os.OpenFile(filepath.Join(f.dir, name), os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	if _, err := fh.WriteString(row); err != nil {
		t.Fatal(err)
	}
}

func day(d int) time.Time {
	return time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC)
}

func rangeOf(a, b int) telemetry.Range {
	return telemetry.Range{Start: day(a), End: day(b)}
}

func TestLoad_CacheHitsUntilTTL(t *testing.T) {
	f := newFixture(t, Config{CacheTTL: 5 * time.Minute})
	f.write(t, "061026.txt", header+"10:00:00\t0.012\t0.8\t1e-3\t1\t0\n")
	ctx := context.Background()

	v, err := f.ctrl.Load(ctx, rangeOf(10, 10))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v.Cached {
		t.Error("first Load() should not be cached")
	}

	f.clock.Advance(4 * time.Minute)
	if v, _ = f.ctrl.Load(ctx, rangeOf(10, 10)); !v.Cached {
		t.Error("Load() within TTL should be cached")
	}

	f.clock.Advance(2 * time.Minute)
	if v, _ = f.ctrl.Load(ctx, rangeOf(10, 10)); v.Cached {
		t.Error("Load() after TTL should not be cached")
	}

	stats := f.ctrl.CacheStats()
	if stats.Hits != 1 || stats.Misses != 2 || stats.Entries != 1 {
		t.Errorf("CacheStats() = %+v", stats)
	}
}

func TestLoad_FileChangeInvalidates(t *testing.T) {
	f := newFixture(t, Config{CacheTTL: time.Hour})
	f.write(t, "061026.txt", header+"10:00:00\t0.012\t0.8\t1e-3\t1\t0\n")
	ctx := context.Background()

	if _, err := f.ctrl.Load(ctx, rangeOf(10, 10)); err != nil {
		t.Fatal(err)
	}

	f.appendRow(t, "061026.txt", "10:00:30\t0.011\t0.8\t1e-3\t1\t0\n")
	v, err := f.ctrl.Load(ctx, rangeOf(10, 10))
	if err != nil {
		t.Fatal(err)
	}
	if v.Cached || v.Result.Series.Len() != 2 {
		t.Errorf("Cached = %v, Len = %d; want fresh load with 2 rows", v.Cached, v.Result.Series.Len())
	}

	// A file appearing for a previously missing date also invalidates.
	if _, err := f.ctrl.Load(ctx, rangeOf(10, 11)); err != nil {
		t.Fatal(err)
	}
	f.write(t, "061126.txt", header+"00:00:00\t0.010\t0.8\t1e-3\t1\t0\n")
	if v, _ = f.ctrl.Load(ctx, rangeOf(10, 11)); v.Cached || v.Result.Series.Len() != 3 {
		t.Errorf("Cached = %v, Len = %d after new file", v.Cached, v.Result.Series.Len())
	}
}

func TestLoad_Invalidate(t *testing.T) {
	f := newFixture(t, Config{CacheTTL: time.Hour})
	f.write(t, "061026.txt", header+"10:00:00\t0.012\t0.8\t1e-3\t1\t0\n")
	ctx := context.Background()

	if _, err := f.ctrl.Load(ctx, rangeOf(10, 10)); err != nil {
		t.Fatal(err)
	}
	if n := f.ctrl.Invalidate(); n != 1 {
		t.Errorf("Invalidate() = %d, want 1", n)
	}
	if v, _ := f.ctrl.Load(ctx, rangeOf(10, 10)); v.Cached {
		t.Error("Load() after Invalidate() should not be cached")
	}
}

func TestLoad_NoCacheWhenTTLZero(t *testing.T) {
	f := newFixture(t, Config{})
	f.write(t, "061026.txt", header)

	for i := 0; i < 2; i++ {
		v, err := f.ctrl.Load(context.Background(), rangeOf(10, 10))
		if err != nil {
			t.Fatal(err)
		}
		if v.Cached {
			t.Error("Load() cached with zero TTL")
		}
	}
}

func TestLoad_States(t *testing.T) {
	good := header + "10:00:00\t0.012\t0.8\t1e-3\t1\t0\n"
	bad := header + "10:00:00\t0.012\t0.8\t1e-3\t1\t0\textra\tcells\n"

	tests := []struct {
		name  string
		files map[string]string
		want  State
	}{
		{name: "ok", files: map[string]string{"061026.txt": good}, want: StateOK},
		{name: "no files", files: nil, want: StateNoData},
		{name: "header only", files: map[string]string{"061026.txt": header}, want: StateNoData},
		{name: "partial", files: map[string]string{"061026.txt": good, "061126.txt": bad}, want: StatePartial},
		{name: "all failed", files: map[string]string{"061126.txt": bad}, want: StateError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			for name, content := range tt.files {
				f.write(t, name, content)
			}
			v, err := f.ctrl.Load(context.Background(), rangeOf(10, 11))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if v.State != tt.want {
				t.Errorf("State = %s, want %s", v.State, tt.want)
			}
		})
	}
}

func TestLoad_RangeErrors(t *testing.T) {
	f := newFixture(t, Config{MaxRangeDays: 7})

	if _, err := f.ctrl.Load(context.Background(), rangeOf(11, 10)); !errors.Is(err, telemetry.ErrInvalidRange) {
		t.Errorf("reversed range error = %v", err)
	}
	if _, err := f.ctrl.Load(context.Background(), rangeOf(1, 20)); !errors.Is(err, telemetry.ErrRangeTooLarge) {
		t.Errorf("long range error = %v", err)
	}
}

func TestSeries(t *testing.T) {
	f := newFixture(t, Config{MaxPoints: 2})
	f.write(t, "061026.txt", header+
		"10:00:00\t0.012\t\t1e-3\t1\t0\n"+
		"10:00:30\t0.011\t0.8\t1e-3\t1\t0\n"+
		"10:01:00\t0.010\t0.8\t1e-3\t1\t0\n")

	v, err := f.ctrl.Series(context.Background(), SeriesRequest{
		Range:    rangeOf(10, 10),
		Category: channel.CategoryTemperature,
	})
	if err != nil {
		t.Fatalf("Series() error = %v", err)
	}

	if v.Decimation.Full != 3 || v.Decimation.Sampled != 2 {
		t.Errorf("Decimation = %+v", v.Decimation)
	}
	if len(v.Times) != 2 || len(v.Columns) != 3 {
		t.Fatalf("Times = %d, Columns = %d", len(v.Times), len(v.Columns))
	}
	mc, still, cold := v.Columns[0], v.Columns[1], v.Columns[2]
	if mc.Channel.Name != "full range" || *mc.Values[1] != 0.010 {
		t.Errorf("full range column = %+v", mc)
	}
	if still.Values[0] != nil {
		t.Errorf("still[0] = %v, want null", *still.Values[0])
	}
	for i, val := range cold.Values {
		if val != nil {
			t.Errorf("Platine 4K[%d] = %v, want null for a missing column", i, *val)
		}
	}
	if v.State != StateOK || len(v.Missing) != 0 {
		t.Errorf("Outcome = %+v", v.Outcome)
	}
}

func TestSeries_ValveCap(t *testing.T) {
	f := newFixture(t, Config{MaxPoints: 4, ValveMaxPoints: 2})
	f.write(t, "061026.txt", header+
		"10:00:00\t0.012\t0.8\t1e-3\t1\t0\n"+
		"10:00:30\t0.011\t0.8\t1e-3\t0\t0\n"+
		"10:01:00\t0.010\t0.8\t1e-3\t1\t1\n"+
		"10:01:30\t0.010\t0.8\t1e-3\t1\t1\n")
	ctx := context.Background()
	p1, _ := channel.Lookup("P1")
	ve1, _ := channel.Lookup("VE1")

	tests := []struct {
		name        string
		req         SeriesRequest
		wantSampled int
	}{
		{"valve category", SeriesRequest{Category: channel.CategoryValve}, 2},
		{"valve channel", SeriesRequest{Channels: []channel.ID{ve1.ID}}, 2},
		{"mixed channels", SeriesRequest{Channels: []channel.ID{ve1.ID, p1.ID}}, 4},
		{"temperatures", SeriesRequest{Category: channel.CategoryTemperature}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Range = rangeOf(10, 10)
			v, err := f.ctrl.Series(ctx, tt.req)
			if err != nil {
				t.Fatalf("Series() error = %v", err)
			}
			if v.Decimation.Full != 4 || v.Decimation.Sampled != tt.wantSampled {
				t.Errorf("Decimation = %+v, want sampled %d", v.Decimation, tt.wantSampled)
			}
		})
	}
}

func TestSeries_ChannelSelection(t *testing.T) {
	f := newFixture(t, Config{})
	f.write(t, "061026.txt", header+"10:00:00\t0.012\t0.8\t1e-3\t1\t0\n")
	ctx := context.Background()

	p1, _ := channel.Lookup("P1")
	v, err := f.ctrl.Series(ctx, SeriesRequest{Range: rangeOf(10, 10), Category: channel.CategoryTemperature, Channels: []channel.ID{p1.ID}})
	if err != nil || len(v.Columns) != 1 || v.Columns[0].Channel.Name != "P1" {
		t.Errorf("Series(P1) = %+v, %v", v, err)
	}

	if v, _ = f.ctrl.Series(ctx, SeriesRequest{Range: rangeOf(10, 10)}); len(v.Columns) != channel.Count() {
		t.Errorf("Series(all) columns = %d", len(v.Columns))
	}

	if _, err := f.ctrl.Series(ctx, SeriesRequest{Range: rangeOf(10, 10), Category: "humidity"}); !errors.Is(err, channel.ErrUnknownCategory) {
		t.Errorf("unknown category error = %v", err)
	}
}

func TestValves(t *testing.T) {
	f := newFixture(t, Config{})
	f.write(t, "061026.txt", header+
		"10:00:00\t0.012\t0.8\t1e-3\t1\t1\n"+
		"10:00:30\t0.011\t0.8\t1e-3\t0\t\n")

	v, err := f.ctrl.Valves(context.Background(), rangeOf(10, 10))
	if err != nil {
		t.Fatalf("Valves() error = %v", err)
	}
	if len(v.Valves) != channel.ValveCount {
		t.Fatalf("got %d valves", len(v.Valves))
	}

	ve1, ve2, ve3 := v.Valves[0], v.Valves[1], v.Valves[2]
	if ve1.Open == nil || *ve1.Open || ve1.At.Second() != 30 {
		t.Errorf("VE1 = %+v, want closed at 10:00:30", ve1)
	}
	if ve2.Open == nil || !*ve2.Open || ve2.At.Second() != 0 {
		t.Errorf("VE2 = %+v, want open at 10:00:00", ve2)
	}
	if ve3.Open != nil {
		t.Errorf("VE3 = %+v, want unknown", ve3)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t, Config{})
	f.write(t, "061026.txt", header+
		"10:00:00\t0.050\t0.8\t1e-3\t1\t0\n"+
		"12:00:00\t0.045\t0.8\t1e-3\t1\t0\n")

	fr, _ := channel.Lookup("full range")
	v, err := f.ctrl.Summary(context.Background(), rangeOf(10, 10), []channel.ID{fr.ID})
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	cs, ok := v.Summary.Get(fr.ID)
	if !ok || cs.RatePerHour == nil || *cs.RatePerHour > -0.0024 || *cs.RatePerHour < -0.0026 {
		t.Errorf("full range summary = %+v", cs)
	}
}

func TestBuildReport_TrailingWindow(t *testing.T) {
	f := newFixture(t, Config{Report: ReportConfig{Title: "Fridge", Precision: 4}})
	f.write(t, "061026.txt", header+
		"14:00:00\t0.060\t0.8\t1e-3\t1\t0\n"+ // before the window
		"16:00:00\t0.050\t0.8\t1e-3\t1\t0\n")
	f.write(t, "061126.txt", header+
		"14:00:00\t0.040\t0.8\t1e-3\t1\t0\n"+
		"16:00:00\t0.030\t0.8\t1e-3\t1\t0\n") // after now

	v, err := f.ctrl.BuildReport(context.Background(), ReportRequest{})
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}
	if v.Label != "Last 24 hours" || v.Summary.Observations != 2 {
		t.Errorf("Label = %q, Observations = %d", v.Label, v.Summary.Observations)
	}
	if !strings.HasPrefix(v.Report.Text, "Fridge\nRange: Last 24 hours\nGenerated: 2026-06-11 15:00:00") {
		t.Errorf("Text = %q", v.Report.Text)
	}
	if !strings.Contains(v.Report.Text, "MC (K): min=0.04 K @ 2026-06-11 14:00:00, max=0.05 K @ 2026-06-10 16:00:00") {
		t.Errorf("Text = %q", v.Report.Text)
	}
	if strings.Contains(v.Report.Text, "P1") {
		t.Error("default report channels should be temperatures only")
	}
}

func TestBuildReport_ExplicitRangeAndNoData(t *testing.T) {
	f := newFixture(t, Config{})
	rng := rangeOf(1, 2)

	v, err := f.ctrl.BuildReport(context.Background(), ReportRequest{Range: &rng})
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}
	if v.State != StateNoData || v.Label != "2026-06-01..2026-06-02" {
		t.Errorf("State = %s, Label = %q", v.State, v.Label)
	}
	if !strings.Contains(v.Report.Text, "MC (K): no data") {
		t.Errorf("Text = %q", v.Report.Text)
	}
	if !v.To.Equal(day(3).Add(-time.Nanosecond)) {
		t.Errorf("To = %v", v.To)
	}
}

func TestParseRange(t *testing.T) {
	now := time.Date(2026, 6, 11, 23, 30, 0, 0, time.UTC)
	tests := []struct {
		start, end string
		want       telemetry.Range
		wantErr    error
	}{
		{"", "", rangeOf(11, 11), nil},
		{"2026-06-10", "", rangeOf(10, 10), nil},
		{"", "2026-06-09", rangeOf(9, 9), nil},
		{"2026-06-01", "2026-06-10", rangeOf(1, 10), nil},
		{"2026-06-10", "2026-06-01", telemetry.Range{}, telemetry.ErrInvalidRange},
		{"06/10/2026", "", telemetry.Range{}, ErrInvalidDate},
	}
	for _, tt := range tests {
		got, err := ParseRange(tt.start, tt.end, time.UTC, now)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ParseRange(%q, %q) error = %v, want %v", tt.start, tt.end, err, tt.wantErr)
			continue
		}
		if err == nil && (!got.Start.Equal(tt.want.Start) || !got.End.Equal(tt.want.End)) {
			t.Errorf("ParseRange(%q, %q) = %v, want %v", tt.start, tt.end, got, tt.want)
		}
	}
}
