package main

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"heartapi/ml"
	"heartapi/store"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

// writeReport prints the holdout metrics and the confusion counts.
func writeReport(w io.Writer, e ml.Evaluation) {
	table := newTable(w, []string{"Metric", "Value"})
	table.AppendBulk([][]string{
		{"samples", strconv.Itoa(e.Samples)},
		{"accuracy", formatRatio(e.Accuracy)},
		{"precision", formatRatio(e.Precision)},
		{"recall", formatRatio(e.Recall)},
		{"f1", formatRatio(e.F1)},
		{"true positives", strconv.Itoa(e.TruePositives)},
		{"false positives", strconv.Itoa(e.FalsePositives)},
		{"true negatives", strconv.Itoa(e.TrueNegatives)},
		{"false negatives", strconv.Itoa(e.FalseNegatives)},
	})
	table.Render()
}

func writeHistory(w io.Writer, runs []store.TrainingRun) {
	table := newTable(w, []string{"ID", "Trained At", "Model", "Dataset", "Rows", "Accuracy", "F1", "Bundle"})
	for _, r := range runs {
		table.Append([]string{
			strconv.FormatInt(r.ID, 10),
			r.TrainedAt.UTC().Format(time.RFC3339),
			r.ModelType,
			r.Dataset,
			strconv.Itoa(r.TrainRows) + "/" + strconv.Itoa(r.TestRows),
			formatRatio(r.Accuracy),
			formatRatio(r.F1),
			r.BundlePath,
		})
	}
	table.Render()
}

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
