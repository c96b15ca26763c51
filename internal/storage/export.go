package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/ringoptics/internal/optics"
)

type ExportData struct {
	Run     RunMetadata     `json:"run"`
	Records []optics.Record `json:"records"`
}

// Export writes a stored run with all its records as indented JSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	records, err := s.LoadRecords(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Records: records})
}
