// Package export writes tasks to CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/harrisonrobin/priority-manager/pkg/model"
	"github.com/harrisonrobin/priority-manager/pkg/taskfile"
)

// DefaultFile is the export file written when no output is given.
const DefaultFile = "tasks_export.csv"

// Header is the first CSV record.
var Header = []string{
	"Task Name",
	taskfile.LabelDescription,
	taskfile.LabelPriority,
	taskfile.LabelDueDate,
	taskfile.LabelTags,
	taskfile.LabelDateAdded,
	taskfile.LabelStatus,
	taskfile.LabelList,
}

// WriteCSV writes a header and one record per task.
func WriteCSV(w io.Writer, tasks []model.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, t := range tasks {
		record := []string{
			t.Name,
			t.Description,
			strconv.Itoa(t.PriorityScore),
			t.DueDate,
			t.Tags,
			t.DateAdded,
			t.Status,
			t.List,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToFile writes tasks to path, replacing it.
func ToFile(path string, tasks []model.Task) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, tasks); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
