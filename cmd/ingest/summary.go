package ingest

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jonesrussell/north-cloud/corpus/internal/pipeline"
)

// RenderSummary writes the end-of-run statistics table to w.
func RenderSummary(w io.Writer, result *pipeline.Result) {
	s := result.Summary

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("corpus " + string(result.Mode) + " " + result.RunID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Corpus", result.CorpusDir},
		{"Scheduled", s.Scheduled},
		{"Fetched", s.Fetched},
		{"Failed", s.Failed},
		{"Empty", s.Empty},
		{"Duplicates", s.Duplicates},
		{"Stored", s.Stored},
		{"Bytes", s.Bytes},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
	})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}
