package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/motorsim/internal/signals"
	"github.com/san-kum/motorsim/internal/sim"
)

func sampleTrajectory(withRef bool) *sim.Trajectory {
	tr := &sim.Trajectory{}
	for k := 0; k < 500; k++ {
		t := float64(k) * 1e-3
		tr.Time = append(tr.Time, t)
		tr.Voltage = append(tr.Voltage, 12)
		tr.Current = append(tr.Current, 3/(1+10*t))
		tr.Speed = append(tr.Speed, 300*t)
		if withRef {
			tr.CurrentRef = append(tr.CurrentRef, 5)
		}
	}
	return tr
}

func TestScopePNG(t *testing.T) {
	var buf bytes.Buffer
	err := Scope(&buf, "png", sampleTrajectory(true), ScopeOptions{
		Title:          "cascade",
		SpeedReference: signals.Step(150, 0.1),
	})
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("output is not a png")
	}
}

func TestScopeSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := Scope(&buf, "svg", sampleTrajectory(false), ScopeOptions{MaxPoints: 50}); err != nil {
		t.Fatalf("scope failed: %v", err)
	}

	if !bytes.Contains(buf.Bytes(), []byte("<svg")) {
		t.Error("output is not an svg")
	}
}

func TestScopeErrors(t *testing.T) {
	var buf bytes.Buffer

	if err := Scope(&buf, "gif", sampleTrajectory(false), ScopeOptions{}); err == nil {
		t.Error("expected error for unsupported format")
	}
	if err := Scope(&buf, "png", &sim.Trajectory{}, ScopeOptions{}); err == nil {
		t.Error("expected error for empty trajectory")
	}
}

func TestScopeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scope.svg")

	if err := ScopeFile(path, sampleTrajectory(false), ScopeOptions{}); err != nil {
		t.Fatalf("scope file failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("expected non-empty file")
	}
}
