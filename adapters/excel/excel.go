// Package excel exports cluster tables to xlsx workbooks.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"permcluster/internal/errors"
	"permcluster/ports"
)

const sheetName = "Clusters"

// Exporter writes finalized results to xlsx files.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// WriteClusterTable writes the cluster table of a stored result to path,
// one row per cluster plus a header and a metadata block.
func (e *Exporter) WriteClusterTable(path string, res *ports.StoredResult) error {
	if res == nil {
		return errors.InvalidInput("result is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return errors.Wrap(err, "failed to create sheet")
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "failed to remove default sheet")
	}

	meta := [][]interface{}{
		{"run_id", res.RunID.String()},
		{"name", res.Name},
		{"meas", res.Meas},
		{"samples", res.Samples},
		{"n_clusters", res.NClusters},
	}
	row := 1
	for _, kv := range meta {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &kv); err != nil {
			return errors.Wrap(err, "failed to write metadata row")
		}
		row++
	}
	row++

	header := []interface{}{"rank", "p", "v", "tstart", "tstop"}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheetName, cell, &header); err != nil {
		return errors.Wrap(err, "failed to write header row")
	}
	row++

	for _, c := range res.Clusters {
		vals := []interface{}{c.Rank, c.P, c.V, timeCell(c.TStart), timeCell(c.TStop)}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &vals); err != nil {
			return errors.Wrapf(err, "failed to write cluster row %d", c.Rank)
		}
		row++
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to save workbook %s", path))
	}
	return nil
}

func timeCell(t *float64) interface{} {
	if t == nil {
		return ""
	}
	return *t
}
