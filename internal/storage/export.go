package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/motorsim/internal/sim"
)

type ExportData struct {
	RunMetadata
	Trajectory *sim.Trajectory `json:"trajectory"`
}

// ExportJSON writes the metadata and trajectory of a run as one document.
func ExportJSON(w io.Writer, meta *RunMetadata, traj *sim.Trajectory) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{RunMetadata: *meta, Trajectory: traj})
}

// Export writes a stored run to w as JSON.
func (s *Store) Export(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	traj, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	return ExportJSON(w, meta, traj)
}

// ExportCSV copies the trajectory of a stored run to w.
func (s *Store) ExportCSV(runID string, w io.Writer) error {
	traj, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	return WriteCSV(w, traj)
}
