// Package taskfile encodes and decodes the flat markdown-like task file format.
//
// A task file is a sequence of field lines of the form
//
//	**<Label>:** <value>
//
// separated by blank lines. Older files start with a "# <Name>" heading
// instead of a Name field; both layouts decode to the same record.
package taskfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/harrisonrobin/priority-manager/pkg/model"
)

// Field labels in encode order.
const (
	LabelName        = "Name"
	LabelList        = "List"
	LabelDescription = "Description"
	LabelPriority    = "Priority Score"
	LabelDueDate     = "Due Date"
	LabelTags        = "Tags"
	LabelDateAdded   = "Date Added"
	LabelStatus      = "Status"
)

// Ext is the extension of every task file.
const Ext = ".md"

var (
	fieldRegex   = regexp.MustCompile(`^\*\*([A-Za-z ]+):\*\*(.*)$`)
	headingRegex = regexp.MustCompile(`^#+\s*(.*?)\s*$`)
	dateRegex    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

	lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")
)

// Codec decodes task files, optionally normalizing statuses against a
// configured set. The zero value keeps statuses as written.
type Codec struct {
	// Statuses, when non-empty, is the set of recognized statuses. Values
	// are matched case-insensitively and rewritten to their canonical form;
	// anything else decodes as model.NoStatus.
	Statuses []string
}

// Decode decodes r with the zero Codec.
func Decode(r io.Reader, baseName string) (model.Task, error) {
	return Codec{}.Decode(r, baseName)
}

// DecodeFile reads and decodes the task file at path.
func (c Codec) DecodeFile(path string) (model.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Task{}, err
	}
	defer f.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	task, err := c.Decode(f, base)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to decode task file %s: %w", path, err)
	}
	task.Path = path
	return task, nil
}

// Decode scans the file contents line by line. Malformed values never fail
// the decode: a bad priority score leaves model.SentinelPriority in place.
// The only error returned is a read error from r.
func (c Codec) Decode(r io.Reader, baseName string) (model.Task, error) {
	task := model.Task{
		PriorityScore: model.SentinelPriority,
		Description:   model.NoDescription,
		DueDate:       model.NoDueDate,
		Status:        model.NoStatus,
		FileName:      baseName,
	}

	var name, heading string
	var hasName bool

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.ToValidUTF8(strings.TrimRight(scanner.Text(), "\r"), "�")

		matches := fieldRegex.FindStringSubmatch(line)
		if matches == nil {
			if heading == "" {
				if m := headingRegex.FindStringSubmatch(line); m != nil {
					heading = m[1]
				}
			}
			continue
		}

		value := strings.TrimSpace(matches[2])
		switch matches[1] {
		case LabelName:
			name, hasName = value, true
		case LabelList:
			task.List = value
		case LabelDescription:
			task.Description = value
		case LabelPriority:
			if score, err := strconv.Atoi(value); err == nil {
				task.PriorityScore = score
			}
		case LabelDueDate:
			if value != "" {
				task.DueDate = value
			}
		case LabelTags:
			task.Tags = value
		case LabelDateAdded:
			task.DateAdded = value
		case LabelStatus:
			task.Status = c.normalizeStatus(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return model.Task{}, err
	}

	switch {
	case hasName:
		task.Name = name
	case heading != "":
		task.Name = heading
	default:
		task.Name = baseName
	}
	task.StartDate = StartDate(baseName, task.DateAdded)
	return task, nil
}

func (c Codec) normalizeStatus(value string) string {
	if value == "" {
		return model.NoStatus
	}
	if len(c.Statuses) == 0 {
		return value
	}
	for _, s := range c.Statuses {
		if strings.EqualFold(s, value) {
			return s
		}
	}
	return model.NoStatus
}

// StartDate derives the start date of a task: a YYYY-MM-DD found in the
// file name, else the date part of dateAdded, else model.NoStartDate.
func StartDate(baseName, dateAdded string) string {
	if match := dateRegex.FindString(baseName); match != "" {
		return match
	}
	if len(dateAdded) >= 10 {
		return dateAdded[:10]
	}
	return model.NoStartDate
}

// Encode renders t in the canonical field order. Derived fields are not written.
func Encode(t model.Task) []byte {
	var b bytes.Buffer
	writeField(&b, LabelName, t.Name)
	if t.List != "" {
		writeField(&b, LabelList, t.List)
	}
	writeField(&b, LabelDescription, t.Description)
	writeField(&b, LabelPriority, strconv.Itoa(t.PriorityScore))
	writeField(&b, LabelDueDate, t.DueDate)
	writeField(&b, LabelTags, t.Tags)
	writeField(&b, LabelDateAdded, t.DateAdded)
	writeField(&b, LabelStatus, t.Status)
	return b.Bytes()
}

func writeField(b *bytes.Buffer, label, value string) {
	value = strings.TrimSpace(lineBreaks.Replace(value))
	b.WriteString("**")
	b.WriteString(label)
	b.WriteString(":**")
	if value != "" {
		b.WriteByte(' ')
		b.WriteString(value)
	}
	b.WriteString("\n\n")
}
