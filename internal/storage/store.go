package storage

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/san-kum/dpend/internal/pendulum"
	"github.com/san-kum/dpend/internal/sim"
)

const (
	catalogFile  = "runs.db"
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

var (
	ErrNotInitialized = errors.New("storage: Init has not been called")
	ErrRunNotFound    = errors.New("storage: run not found")
	ErrBadStates      = errors.New("storage: malformed states file")
)

var statesHeader = []string{"time", "dt", "phi", "psi", "phi_dot", "psi_dot"}

// Store keeps each run in its own directory under baseDir and indexes
// runs in a SQLite catalog next to them.
type Store struct {
	baseDir string
	db      *sql.DB
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite3", filepath.Join(s.baseDir, catalogFile))
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		preset TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		dt REAL NOT NULL,
		duration REAL NOT NULL,
		damping REAL NOT NULL,
		steps INTEGER NOT NULL,
		energy_drift REAL
	);`)
	if err != nil {
		db.Close()
		return fmt.Errorf("create catalog: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Preset      string             `json:"preset"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Gravity     float64            `json:"gravity"`
	ArmLength   float64            `json:"arm_length"`
	Damping     float64            `json:"damping"`
	InitState   pendulum.State     `json:"init_state"`
	Steps       int                `json:"steps"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Trajectory is the content of a states file. Dts[0] is zero; Dts[i] is the
// tick that produced States[i].
type Trajectory struct {
	Times  []float64
	Dts    []float64
	States []pendulum.State
}

// TickDts returns the tick lengths that reproduce the trajectory when fed
// to a sim.SequenceClock.
func (tr *Trajectory) TickDts() []float64 {
	if len(tr.Dts) < 2 {
		return nil
	}
	return tr.Dts[1:]
}

// Save writes the run to disk and records it in the catalog. meta supplies
// the run parameters; ID, Timestamp, Steps and the result fields are
// filled in here.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	if s.db == nil {
		return "", ErrNotInitialized
	}

	now := time.Now()
	if meta.Preset == "" {
		meta.Preset = "custom"
	}
	meta.ID = fmt.Sprintf("%s_%d", meta.Preset, now.UnixNano())
	meta.Timestamp = now
	meta.Steps = result.StepsTaken
	meta.EnergyDrift = result.EnergyDrift
	meta.Metrics = result.Metrics
	if len(result.States) > 0 {
		meta.InitState = result.States[0]
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := s.writeRun(runDir, meta, result); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}

	return meta.ID, nil
}

func (s *Store) writeRun(runDir string, meta RunMetadata, result *sim.Result) error {
	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := writeStates(filepath.Join(runDir, statesFile), result); err != nil {
		return fmt.Errorf("write states: %w", err)
	}

	// SQLite stores NaN as NULL; a diverged run has no finite drift.
	drift := sql.NullFloat64{Float64: meta.EnergyDrift, Valid: isFinite(meta.EnergyDrift)}
	_, err := s.db.Exec(
		"INSERT INTO runs (id, preset, created_at, dt, duration, damping, steps, energy_drift) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		meta.ID, meta.Preset, meta.Timestamp.UnixNano(), meta.Dt, meta.Duration, meta.Damping, meta.Steps, drift,
	)
	if err != nil {
		return fmt.Errorf("catalog insert: %w", err)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeStates(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(statesHeader); err != nil {
		return err
	}

	for i, x := range result.States {
		dt := 0.0
		if i > 0 && i-1 < len(result.Dts) {
			dt = result.Dts[i-1]
		}
		t := 0.0
		if i < len(result.Times) {
			t = result.Times[i]
		}

		// Shortest exact formatting so a replay reproduces the run bit for bit.
		row := []string{
			formatFloat(t), formatFloat(dt),
			formatFloat(x.Phi), formatFloat(x.Psi), formatFloat(x.PhiDot), formatFloat(x.PsiDot),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns catalogued runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.Query("SELECT id FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(ids))
	for _, id := range ids {
		meta, err := s.Load(id)
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadStates(runID string) (*Trajectory, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(statesHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadStates, err)
	}

	tr := &Trajectory{}
	if len(records) < 2 {
		return tr, nil
	}

	n := len(records) - 1
	tr.Times = make([]float64, 0, n)
	tr.Dts = make([]float64, 0, n)
	tr.States = make([]pendulum.State, 0, n)

	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %s: %w", ErrBadStates, i+1, statesHeader[j], err)
			}
			vals[j] = v
		}

		x, _ := pendulum.FromVector(vals[2:])
		tr.Times = append(tr.Times, vals[0])
		tr.Dts = append(tr.Dts, vals[1])
		tr.States = append(tr.States, x)
	}

	return tr, nil
}

// Delete removes a run from disk and the catalog.
func (s *Store) Delete(runID string) error {
	if s.db == nil {
		return ErrNotInitialized
	}
	res, err := s.db.Exec("DELETE FROM runs WHERE id = ?", runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return os.RemoveAll(filepath.Join(s.baseDir, runID))
}
