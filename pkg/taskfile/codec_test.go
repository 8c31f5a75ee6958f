package taskfile

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/priority-manager/pkg/model"
)

func TestDecodeCurrentFormat(t *testing.T) {
	input := "**Name:** Alpha Task\n\n" +
		"**List:** Work\n\n" +
		"**Description:** First test task.\n\n" +
		"**Priority Score:** 15\n\n" +
		"**Due Date:** 2025-01-15\n\n" +
		"**Tags:** alpha, test\n\n" +
		"**Date Added:** 2024-06-01T14:30:00\n\n" +
		"**Status:** In Progress\n"

	task, err := Decode(strings.NewReader(input), "alpha")
	require.NoError(t, err)

	assert.Equal(t, "Alpha Task", task.Name)
	assert.Equal(t, "Work", task.List)
	assert.Equal(t, "First test task.", task.Description)
	assert.Equal(t, 15, task.PriorityScore)
	assert.Equal(t, "2025-01-15", task.DueDate)
	assert.Equal(t, "alpha, test", task.Tags)
	assert.Equal(t, "2024-06-01T14:30:00", task.DateAdded)
	assert.Equal(t, "In Progress", task.Status)
	assert.Equal(t, "alpha", task.FileName)
	assert.Equal(t, "2024-06-01", task.StartDate)
}

func TestDecodeLegacyHeading(t *testing.T) {
	input := "# Sample Task\n\n" +
		"**Description:** This is a test task.\n\n" +
		"**Priority Score:** 10\n\n" +
		"**Due Date:** 2024-12-31\n\n" +
		"**Date Added:** 2024-06-01T14:30:00\n\n" +
		"**Status:** To Do\n"

	task, err := Decode(strings.NewReader(input), "sample_task")
	require.NoError(t, err)
	assert.Equal(t, "Sample Task", task.Name)
	assert.Equal(t, 10, task.PriorityScore)
	assert.Equal(t, "", task.List)
}

func TestDecodeNameFieldWinsOverHeading(t *testing.T) {
	input := "# Heading Title\n\n**Name:** Field Title\n\n**Priority Score:** 1\n"
	task, err := Decode(strings.NewReader(input), "x")
	require.NoError(t, err)
	assert.Equal(t, "Field Title", task.Name)
}

func TestDecodeDefaults(t *testing.T) {
	task, err := Decode(strings.NewReader("just some notes\n"), "plainname")
	require.NoError(t, err)

	assert.Equal(t, "plainname", task.Name)
	assert.Equal(t, model.SentinelPriority, task.PriorityScore)
	assert.Equal(t, model.NoDescription, task.Description)
	assert.Equal(t, model.NoDueDate, task.DueDate)
	assert.Equal(t, model.NoStatus, task.Status)
	assert.Equal(t, model.NoStartDate, task.StartDate)
}

func TestDecodeMalformedPriority(t *testing.T) {
	input := "**Name:** Broken\n\n**Priority Score:** high\n\n**Due Date:**\n"
	task, err := Decode(strings.NewReader(input), "broken")
	require.NoError(t, err)
	assert.Equal(t, model.SentinelPriority, task.PriorityScore)
	assert.Equal(t, model.NoDueDate, task.DueDate)
	assert.False(t, task.HasPriority())
}

func TestDecodeCRLF(t *testing.T) {
	input := "**Name:** Windows\r\n\r\n**Priority Score:** 7\r\n\r\n**Status:** To Do\r\n"
	task, err := Decode(strings.NewReader(input), "win")
	require.NoError(t, err)
	assert.Equal(t, "Windows", task.Name)
	assert.Equal(t, 7, task.PriorityScore)
	assert.Equal(t, "To Do", task.Status)
}

func TestDecodeStatusNormalization(t *testing.T) {
	codec := Codec{Statuses: []string{"To Do", "In Progress", "Complete"}}

	task, err := codec.Decode(strings.NewReader("**Status:** in progress\n"), "a")
	require.NoError(t, err)
	assert.Equal(t, "In Progress", task.Status)

	task, err = codec.Decode(strings.NewReader("**Status:** Incomplete\n"), "b")
	require.NoError(t, err)
	assert.Equal(t, model.NoStatus, task.Status)
}

func TestStartDateFromFileName(t *testing.T) {
	assert.Equal(t, "2025-03-04", StartDate("2025-03-04T10-00-00_Task", "2024-01-01T00:00:00"))
	assert.Equal(t, "2024-01-01", StartDate("plain", "2024-01-01T00:00:00"))
	assert.Equal(t, model.NoStartDate, StartDate("plain", "2024"))
}

func TestRoundTrip(t *testing.T) {
	records := []model.Task{
		{
			Name:          "Запланировать встречу",
			Description:   "Описание задачи",
			PriorityScore: 14,
			DueDate:       "2025-03-01",
			Tags:          "work, intl",
			Status:        "To Do",
			DateAdded:     "2025-02-01T09:10:11.123456",
		},
		{
			Name:          "Pulled  task with  spaces",
			Description:   "Pulled from remote service",
			PriorityScore: 0,
			DueDate:       model.NoDueDate,
			Tags:          "",
			Status:        "Complete",
			DateAdded:     "2025-02-01T09:10:11",
			List:          "List Alpha",
		},
		{
			Name:          "Unknown score",
			Description:   "",
			PriorityScore: model.SentinelPriority,
			DueDate:       model.NoDueDate,
			Status:        model.NoStatus,
		},
	}

	for _, want := range records {
		base := "2025-02-01T09-10-11_" + Slug(want.Name)
		want.FileName = base
		want.StartDate = StartDate(base, want.DateAdded)

		got, err := Decode(bytes.NewReader(Encode(want)), base)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestEncodeFieldOrder(t *testing.T) {
	out := string(Encode(model.Task{
		Name:          "Ordered",
		List:          "Inbox",
		Description:   "d",
		PriorityScore: 3,
		DueDate:       model.NoDueDate,
		Tags:          "a,b",
		DateAdded:     "2025-01-01T00:00:00",
		Status:        "To Do",
	}))
	want := "**Name:** Ordered\n\n" +
		"**List:** Inbox\n\n" +
		"**Description:** d\n\n" +
		"**Priority Score:** 3\n\n" +
		"**Due Date:** No due date\n\n" +
		"**Tags:** a,b\n\n" +
		"**Date Added:** 2025-01-01T00:00:00\n\n" +
		"**Status:** To Do\n\n"
	assert.Equal(t, want, out)

	out = string(Encode(model.Task{Name: "No list"}))
	assert.NotContains(t, out, "**List:**")
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Buy milk":                             "Buy_milk",
		"  Spaces   everywhere ":               "Spaces_everywhere",
		"Запланировать встречу":                "task",
		"Fix bug #42 (urgent!)":                "Fix_bug_42_urgent",
		"a-very_long name that goes on and on": "a-very_long_name_that_goes_on_",
		"":                                     "task",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), "Slug(%q)", in)
	}
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, []string{"Area1", "SubArea"}, SanitizePath("Area1/SubArea"))
	assert.Equal(t, []string{"Work"}, SanitizePath(`../Work\..\.`))
	assert.Empty(t, SanitizePath("///"))

	long := strings.Repeat("x", 50)
	assert.Equal(t, []string{strings.Repeat("x", 40)}, SanitizePath(long))
}

func TestFileNames(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 678901000, time.UTC)
	assert.Equal(t, "2025-01-02T03-04-05_Task.md", FileName(now, "Task"))
	assert.Equal(t, "2025-01-02T03-04-05-678901_Task.md", PreciseFileName(now, "Task"))
}
