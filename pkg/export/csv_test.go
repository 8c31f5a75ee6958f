package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/priority-manager/pkg/model"
)

func TestWriteCSV(t *testing.T) {
	tasks := []model.Task{
		{Name: "Report, final", Description: "Say \"hi\"", PriorityScore: 14, DueDate: "2025-01-15",
			Tags: "work, q1", DateAdded: "2025-01-01T10:00:00", Status: "To Do"},
		{Name: "Pulled", Description: "Pulled from remote service", DueDate: model.NoDueDate, List: "Groceries"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tasks))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"Report, final", "Say \"hi\"", "14", "2025-01-15", "work, q1", "2025-01-01T10:00:00", "To Do", ""}, records[1])
	assert.Equal(t, "Groceries", records[2][7])
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, ToFile(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Task Name,Description,Priority Score,Due Date,Tags,Date Added,Status,List\n", string(data))
}
