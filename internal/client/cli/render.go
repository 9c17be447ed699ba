package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
)

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewTable(w)

	h := make([]any, len(headers))
	for i, v := range headers {
		h[i] = v
	}
	table.Header(h...)

	for _, row := range rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	return table.Render()
}

// availability is the Out column: who holds the item, "*" while a
// transition is still in flight.
func availability(a models.Asset, pending bool) string {
	s := "in"
	if !a.IsAvailable {
		s = "out"
		if a.CheckedOutBy != nil {
			s += " #" + strconv.FormatInt(*a.CheckedOutBy, 10)
		}
	}
	if pending {
		s += " *"
	}
	return s
}

func assetRows(items []models.Asset, pending func(int64) bool) [][]string {
	rows := make([][]string, 0, len(items))
	for _, a := range items {
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			a.Name,
			a.SerialNumber,
			a.Location,
			string(a.Status),
			availability(a, pending(a.ID)),
		})
	}
	return rows
}

var assetHeaders = []string{"ID", "Name", "Serial", "Location", "Status", "Out"}

func materialRows(items []models.Material) [][]string {
	rows := make([][]string, 0, len(items))
	for _, m := range items {
		reorder := ""
		if m.NeedsReorder() {
			reorder = "REORDER"
		}
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.Name,
			fmt.Sprintf("%d %s", m.Quantity, m.Unit),
			strconv.Itoa(m.MinStock),
			reorder,
		})
	}
	return rows
}

var materialHeaders = []string{"ID", "Name", "Quantity", "Min", "Reorder"}

func parseID(s, usage string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errUsage(usage)
	}
	return id, nil
}
