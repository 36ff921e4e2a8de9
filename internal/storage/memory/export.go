package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/firereach/ladderreach/internal/stats"
	"github.com/firereach/ladderreach/pkg/core"
)

// SessionExport is the root JSON structure
type SessionExport struct {
	SessionID  string                     `json:"sessionId"`
	TruckID    string                     `json:"truckId"`
	StartedAt  time.Time                  `json:"startedAt"`
	EndedAt    time.Time                  `json:"endedAt"`
	Statistics []core.VisibilityStatistic `json:"statistics"`
	Bins       []core.StatisticBin        `json:"bins"`
	Results    []ResultJSON               `json:"results"`
}

// ResultJSON is a committed result with its intersection points flattened
// to [x, y, z, visible] rows
type ResultJSON struct {
	core.AnalysisResult
	Points [][4]float64 `json:"points"`
}

// exportJSON writes the session data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := b.session.StartedAt.Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s_%s.json", b.session.TruckID, timestamp, b.session.ID[:min(8, len(b.session.ID))])
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		SessionID:  b.session.ID,
		TruckID:    b.session.TruckID,
		StartedAt:  b.session.StartedAt,
		EndedAt:    time.Now(),
		Statistics: make([]core.VisibilityStatistic, 0, len(b.statistics)),
		Bins:       stats.Bin(b.statistics, stats.DefaultBinSize),
		Results:    make([]ResultJSON, 0, len(b.results)),
	}
	export.Statistics = append(export.Statistics, b.statistics...)

	for _, r := range b.results {
		row := ResultJSON{AnalysisResult: r, Points: make([][4]float64, 0, len(r.Targets))}
		for _, t := range r.Targets {
			visible := 0.0
			if t.Status == core.StatusVisible {
				visible = 1
			}
			row.Points = append(row.Points, [4]float64{t.Obstruction.X, t.Obstruction.Y, t.Obstruction.Z, visible})
		}
		export.Results = append(export.Results, row)
	}
	return export
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
