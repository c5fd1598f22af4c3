// Package export writes run results as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/talgya/deepfake-battle/internal/engine"
)

// WriteSeries writes one header row ("Step" then the column names) and one
// row per sample.
func WriteSeries(w io.Writer, s *engine.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Step"}, s.Names()...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, sample := range s.Samples() {
		row := make([]string, 0, len(sample.Values)+1)
		row = append(row, strconv.Itoa(sample.Step))
		for _, v := range sample.Values {
			row = append(row, strconv.Itoa(v))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write step %d: %w", sample.Step, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBattles writes the battle log, one engagement per row.
func WriteBattles(w io.Writer, battles []engine.Battle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Step", "DetectorID", "GeneratorID", "Outcome"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, b := range battles {
		row := []string{
			strconv.Itoa(b.Step),
			strconv.FormatUint(uint64(b.DetectorID), 10),
			strconv.FormatUint(uint64(b.GeneratorID), 10),
			string(b.Outcome),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
