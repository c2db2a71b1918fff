package xlsx

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	resultsSheet = "Results"
	searchSheet  = "Search"
)

var resultColumns = []string{
	"Rank", "Type", "Title", "Source", "Status", "Score",
	"Budget", "Currency", "Deadline", "Website", "Keywords", "ID",
}

// Exporter renders ranked search results as an XLSX workbook.
type Exporter struct {
	now func() time.Time
}

func NewExporter() *Exporter {
	return &Exporter{now: time.Now}
}

func (e *Exporter) ContentType() string {
	return ContentType
}

func (e *Exporter) Export(w io.Writer, query string, resp *domain.SearchResponse) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeResults(f, resp.Results); err != nil {
		return err
	}

	if _, err := f.NewSheet(searchSheet); err != nil {
		return fmt.Errorf("create search sheet: %w", err)
	}
	summary := [][]any{
		{"Query", query},
		{"Refined query", resp.RefinedQuery},
		{"Results", len(resp.Results)},
		{"Exported at", e.now().UTC().Format(time.RFC3339)},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(searchSheet, cell, &row); err != nil {
			return fmt.Errorf("write search summary: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeResults(f *excelize.File, results []domain.SearchResult) error {
	header := make([]any, len(resultColumns))
	for i, col := range resultColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(resultColumns), 1)
	if err := f.SetCellStyle(resultsSheet, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, res := range results {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := resultRow(i+1, res)
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write result row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(resultsSheet, "C", "D", 40); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

func resultRow(rank int, res domain.SearchResult) []any {
	row := []any{rank, string(res.Type), res.Title, res.Source, res.Status, res.Score, "", "", "", "", "", res.ID}
	meta := res.Metadata
	if meta.IsEmpty() {
		return row
	}
	if meta.Budget != nil {
		row[6] = *meta.Budget
		row[7] = meta.Currency
	}
	if meta.Deadline != nil {
		row[8] = meta.Deadline.Format("2006-01-02")
	}
	row[9] = meta.Website
	row[10] = strings.Join(meta.Keywords, ", ")
	return row
}
