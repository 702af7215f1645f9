package storage

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/sim"
	"gopkg.in/src-d/go-billy.v4/memfs"
)

func fixedClock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func cascadeResult() *sim.Result {
	return &sim.Result{
		Mode: sim.ModeCascade,
		Trajectory: &sim.Trajectory{
			Time:       []float64{0, 1e-6, 2e-6},
			Voltage:    []float64{15.89, 15.89, 0.1},
			Current:    []float64{0, 0.028, 0.0561},
			Speed:      []float64{0, 1e-9, 3.3e-9},
			CurrentRef: []float64{5, 5, 5},
		},
		Final:   []float64{0.084, 7e-9},
		Metrics: map[string]float64{"copper_loss": 1.5},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	ts := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	st := New(memfs.New(), WithClock(fixedClock(ts)))

	cfg := config.GetPreset("cascade-step")
	runID, err := st.Save(cfg, cascadeResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID != "cascade_1792411200" {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Mode != "cascade" {
		t.Errorf("expected mode 'cascade', got '%s'", meta.Mode)
	}
	if meta.Steps != 3 {
		t.Errorf("expected 3 steps, got %d", meta.Steps)
	}
	if meta.Metrics["copper_loss"] != 1.5 {
		t.Errorf("expected copper loss 1.5, got %f", meta.Metrics["copper_loss"])
	}
	if meta.Config == nil || meta.Config.CurrentPID.Ki != 13280 {
		t.Errorf("expected stored config, got %+v", meta.Config)
	}
	if !meta.Timestamp.Equal(ts) {
		t.Errorf("expected timestamp %v, got %v", ts, meta.Timestamp)
	}
}

func TestStoreTrajectoryExact(t *testing.T) {
	st := New(memfs.New())
	want := cascadeResult()

	runID, err := st.Save(config.GetPreset("cascade-step"), want)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := st.LoadTrajectory(runID)
	if err != nil {
		t.Fatalf("load trajectory failed: %v", err)
	}

	if got.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", got.Len())
	}
	for k := range want.Trajectory.Time {
		if got.Time[k] != want.Trajectory.Time[k] ||
			got.Voltage[k] != want.Trajectory.Voltage[k] ||
			got.Current[k] != want.Trajectory.Current[k] ||
			got.Speed[k] != want.Trajectory.Speed[k] ||
			got.CurrentRef[k] != want.Trajectory.CurrentRef[k] {
			t.Errorf("sample %d differs after reload", k)
		}
	}
}

func TestStoreList(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := New(memfs.New(), WithClock(fixedClock(t0.Add(time.Hour), t0)))

	open := cascadeResult()
	open.Mode = sim.ModeOpen
	open.Trajectory.CurrentRef = nil

	if _, err := st.Save(config.GetPreset("open-square"), open); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Save(config.GetPreset("cascade-step"), cascadeResult()); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Mode != "cascade" || runs[1].Mode != "open" {
		t.Errorf("expected oldest first, got %s then %s", runs[0].Mode, runs[1].Mode)
	}
}

func TestStoreListEmpty(t *testing.T) {
	runs, err := New(memfs.New()).List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestStoreUniqueIDs(t *testing.T) {
	ts := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	st := New(memfs.New(), WithClock(fixedClock(ts)))

	a, err := st.Save(config.GetPreset("cascade-step"), cascadeResult())
	if err != nil {
		t.Fatal(err)
	}
	b, err := st.Save(config.GetPreset("cascade-step"), cascadeResult())
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("expected distinct ids, both %q", a)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	st := New(memfs.New())
	if _, err := st.Load("nope"); err == nil {
		t.Error("expected error for missing run")
	}
	if _, err := st.LoadTrajectory("nope"); err == nil {
		t.Error("expected error for missing trajectory")
	}
}

func TestExport(t *testing.T) {
	st := New(memfs.New())
	runID, err := st.Save(config.GetPreset("cascade-step"), cascadeResult())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.Export(runID, &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if data.ID != runID {
		t.Errorf("expected id %q, got %q", runID, data.ID)
	}
	if len(data.Trajectory.CurrentRef) != 3 {
		t.Errorf("expected current_ref in export, got %v", data.Trajectory.CurrentRef)
	}

	buf.Reset()
	if err := st.ExportCSV(runID, &buf); err != nil {
		t.Fatalf("csv export failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "time,voltage,current,speed,current_ref\n") {
		t.Errorf("unexpected csv header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unknown column", "time,torque\n0,1\n"},
		{"bad number", "time,speed\n0,fast\n"},
		{"ragged", "time,speed\n0,1\n1\n"},
	}

	for _, tt := range tests {
		if _, err := ReadCSV(strings.NewReader(tt.input)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
