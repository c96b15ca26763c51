package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/ringoptics/internal/accel"
	"github.com/san-kum/ringoptics/internal/lattice"
	"github.com/san-kum/ringoptics/internal/optics"
)

const (
	metadataFile = "metadata.json"
	opticsFile   = "optics.csv"
	latticeFile  = "lattice.yaml"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Label        string             `json:"label,omitempty"`
	Lattice      string             `json:"lattice"`
	Elements     int                `json:"elements"`
	Timestamp    time.Time          `json:"timestamp"`
	Delta        float64            `json:"delta"`
	Tune         [2]float64         `json:"tune"`
	Chromaticity *[2]float64        `json:"chromaticity,omitempty"`
	Converged    bool               `json:"converged"`
	Records      int                `json:"records"`
	Settings     optics.Settings    `json:"settings"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// Run describes what to store.
type Run struct {
	Label    string
	Lattice  *accel.Lattice
	Settings optics.Settings
	Result   *optics.OpticsResult
	Metrics  map[string]float64
}

// Save writes a run directory holding metadata.json, optics.csv and the
// analysed lattice, and returns the new run ID.
func (s *Store) Save(run Run) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	runID := id.String()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Label:        run.Label,
		Lattice:      run.Lattice.Name,
		Elements:     run.Lattice.Len(),
		Timestamp:    time.Now().UTC(),
		Delta:        run.Result.Delta,
		Tune:         run.Result.Tune,
		Chromaticity: run.Result.Chromaticity,
		Converged:    run.Result.Converged,
		Records:      len(run.Result.Records),
		Settings:     run.Settings,
		Metrics:      run.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeRecords(filepath.Join(runDir, opticsFile), run.Result.Records); err != nil {
		return "", err
	}
	if err := lattice.Save(filepath.Join(runDir, latticeFile), run.Lattice); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var recordHeader = func() []string {
	h := []string{"index", "s", "x", "px", "y", "py", "dx", "dpx", "dy", "dpy",
		"alpha_x", "alpha_y", "beta_x", "beta_y", "mu_x", "mu_y"}
	for i := 1; i <= 4; i++ {
		for j := 1; j <= 4; j++ {
			h = append(h, fmt.Sprintf("m%d%d", i, j))
		}
	}
	return h
}()

func writeRecords(path string, records []optics.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(recordHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := make([]string, 0, len(recordHeader))
		row = append(row, strconv.Itoa(r.Index))
		vals := []float64{r.SPos}
		vals = append(vals, r.ClosedOrbit[:]...)
		vals = append(vals, r.Dispersion[:]...)
		vals = append(vals, r.Alpha[:]...)
		vals = append(vals, r.Beta[:]...)
		vals = append(vals, r.Mu[:]...)
		vals = append(vals, r.M44.Flat()...)
		for _, v := range vals {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
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
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
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

func (s *Store) LoadRecords(runID string) ([]optics.Record, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, opticsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(recordHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return []optics.Record{}, nil
	}

	records := make([]optics.Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rec, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", opticsFile, n+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(row []string) (optics.Record, error) {
	var rec optics.Record
	idx, err := strconv.Atoi(row[0])
	if err != nil {
		return rec, err
	}
	rec.Index = idx

	vals := make([]float64, len(row)-1)
	for i, s := range row[1:] {
		if vals[i], err = strconv.ParseFloat(s, 64); err != nil {
			return rec, err
		}
	}

	rec.SPos = vals[0]
	copy(rec.ClosedOrbit[:], vals[1:5])
	copy(rec.Dispersion[:], vals[5:9])
	copy(rec.Alpha[:], vals[9:11])
	copy(rec.Beta[:], vals[11:13])
	copy(rec.Mu[:], vals[13:15])
	for i := 0; i < 4; i++ {
		copy(rec.M44[i][:], vals[15+4*i:19+4*i])
	}
	return rec, nil
}

// LatticePath is the lattice file stored with a run.
func (s *Store) LatticePath(runID string) string {
	return filepath.Join(s.baseDir, runID, latticeFile)
}
