package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/sim"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/osfs"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

// Store keeps one directory per run, holding metadata.json and
// trajectory.csv.
type Store struct {
	// Filesystem is the directory runs are stored under.
	Filesystem billy.Filesystem

	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for run ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(fs billy.Filesystem, opts ...Option) *Store {
	s := &Store{
		Filesystem: fs,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a store rooted at a directory on disk.
func Open(baseDir string, opts ...Option) *Store {
	return New(osfs.New(baseDir), opts...)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Mode       string             `json:"mode"`
	Timestamp  time.Time          `json:"timestamp"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Final      []float64          `json:"final"`
	Metrics    map[string]float64 `json:"metrics"`
	Config     *config.Config     `json:"config,omitempty"`
}

// Save writes a finished run and returns its id.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (runID string, err error) {
	ts := s.now()
	runID = fmt.Sprintf("%s_%d", result.Mode, ts.Unix())
	for n := 1; s.exists(runID); n++ {
		runID = fmt.Sprintf("%s_%d_%d", result.Mode, ts.Unix(), n)
	}

	if err := s.Filesystem.MkdirAll(runID, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Mode:       result.Mode,
		Timestamp:  ts,
		Integrator: cfg.Simulation.Integrator,
		Dt:         cfg.Simulation.Dt,
		Duration:   cfg.Simulation.Duration,
		Steps:      result.Trajectory.Len(),
		Final:      result.Final,
		Metrics:    result.Metrics,
		Config:     cfg,
	}

	if err := s.writeFile(path.Join(runID, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return "", err
	}

	if err := s.writeFile(path.Join(runID, trajectoryFile), func(w io.Writer) error {
		return WriteCSV(w, result.Trajectory)
	}); err != nil {
		return "", err
	}

	s.logger.Info("saved run", zap.String("id", runID), zap.Int("steps", meta.Steps))
	return runID, nil
}

func (s *Store) exists(runID string) bool {
	_, err := s.Filesystem.Stat(runID)
	return err == nil
}

func (s *Store) writeFile(name string, write func(io.Writer) error) (err error) {
	f, err := s.Filesystem.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return write(f)
}

// List returns the metadata of every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := s.Filesystem.ReadDir("")
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			s.logger.Debug("skipping unreadable run", zap.String("dir", entry.Name()), zap.Error(err))
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (meta *RunMetadata, err error) {
	f, err := s.Filesystem.Open(path.Join(runID, metadataFile))
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	meta = &RunMetadata{}
	if err := json.NewDecoder(f).Decode(meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return meta, nil
}

func (s *Store) LoadTrajectory(runID string) (traj *sim.Trajectory, err error) {
	f, err := s.Filesystem.Open(path.Join(runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	traj, err = ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return traj, nil
}

func csvColumns(traj *sim.Trajectory) ([]string, [][]float64) {
	header := []string{"time", "voltage", "current", "speed"}
	cols := [][]float64{traj.Time, traj.Voltage, traj.Current, traj.Speed}
	if traj.CurrentRef != nil {
		header = append(header, "current_ref")
		cols = append(cols, traj.CurrentRef)
	}
	return header, cols
}

// WriteCSV writes a trajectory with a header row. Values are formatted so
// they read back bit-exact.
func WriteCSV(w io.Writer, traj *sim.Trajectory) error {
	cw := csv.NewWriter(w)

	header, cols := csvColumns(traj)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for k := 0; k < traj.Len(); k++ {
		for c, col := range cols {
			row[c] = strconv.FormatFloat(col[k], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a trajectory written by WriteCSV. Columns are matched by
// header name, so their order does not matter.
func ReadCSV(r io.Reader) (*sim.Trajectory, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty trajectory file")
		}
		return nil, err
	}

	traj := &sim.Trajectory{}
	dst := make([]*[]float64, len(header))
	for c, name := range header {
		switch name {
		case "time":
			dst[c] = &traj.Time
		case "voltage":
			dst[c] = &traj.Voltage
		case "current":
			dst[c] = &traj.Current
		case "speed":
			dst[c] = &traj.Speed
		case "current_ref":
			traj.CurrentRef = []float64{}
			dst[c] = &traj.CurrentRef
		default:
			return nil, fmt.Errorf("unknown column %q", name)
		}
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for c, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			*dst[c] = append(*dst[c], v)
		}
	}

	return traj, nil
}
