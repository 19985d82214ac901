// Package report renders the scheduler state as a PDF document.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nibzard/nextup/internal/scheduler"
	"github.com/nibzard/nextup/internal/todo"
)

// Row is one pending task in the report.
type Row struct {
	Task       todo.Task
	Executable bool
	Waiting    []string
}

// Report is the content of a PDF report.
type Report struct {
	Generated time.Time
	Pending   []Row
	Completed []string
	Next      string
}

// FromScheduler collects the report content from s.
func FromScheduler(s *scheduler.Scheduler, now time.Time) Report {
	r := Report{Generated: now, Completed: s.Completed()}
	for _, item := range s.ListPending() {
		r.Pending = append(r.Pending, Row{
			Task:       item.Task,
			Executable: item.Executable,
			Waiting:    s.Unresolved(item.Task),
		})
	}
	if next, ok := s.Next(); ok {
		r.Next = next.Name
	}
	return r
}

// Column widths in mm for the pending table.
var columns = []struct {
	title string
	width float64
}{
	{"Task", 60},
	{"Priority", 20},
	{"Due", 28},
	{"Status", 72},
}

// Build renders r as PDF bytes.
func Build(r Report) ([]byte, error) {
	p := newDocument(r)
	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders r to a PDF file at path.
func WriteFile(path string, r Report) error {
	p := newDocument(r)
	if err := p.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf %s: %w", path, err)
	}
	return nil
}

func newDocument(r Report) *gofpdf.Fpdf {
	p := gofpdf.New("P", "mm", "A4", "")
	tr := p.UnicodeTranslatorFromDescriptor("")
	p.SetTitle("nextup report", true)
	p.AddPage()

	p.SetFont("Arial", "B", 16)
	p.Cell(40, 10, "Task report")
	p.Ln(10)
	p.SetFont("Arial", "", 10)
	p.Cell(40, 6, "Generated "+r.Generated.Format("2006-01-02 15:04"))
	p.Ln(10)

	p.SetFont("Arial", "B", 12)
	p.Cell(40, 8, fmt.Sprintf("Pending tasks (%d)", len(r.Pending)))
	p.Ln(9)
	if len(r.Pending) == 0 {
		p.SetFont("Arial", "", 10)
		p.Cell(40, 6, "No pending tasks.")
		p.Ln(8)
	} else {
		writeTable(p, tr, r.Pending)
	}

	p.SetFont("Arial", "", 10)
	if r.Next != "" {
		p.Cell(40, 6, tr("Next task: "+r.Next))
	} else {
		p.Cell(40, 6, "No executable tasks.")
	}
	p.Ln(12)

	p.SetFont("Arial", "B", 12)
	p.Cell(40, 8, fmt.Sprintf("Completed tasks (%d)", len(r.Completed)))
	p.Ln(9)
	p.SetFont("Arial", "", 10)
	for _, name := range r.Completed {
		p.Cell(40, 6, tr("- "+name))
		p.Ln(6)
	}
	return p
}

func writeTable(p *gofpdf.Fpdf, tr func(string) string, rows []Row) {
	p.SetFont("Arial", "B", 10)
	p.SetFillColor(230, 230, 230)
	for _, c := range columns {
		p.CellFormat(c.width, 7, c.title, "1", 0, "L", true, 0, "")
	}
	p.Ln(-1)

	p.SetFont("Arial", "", 10)
	for _, row := range rows {
		status := "Executable"
		if !row.Executable {
			status = "Blocked by " + strings.Join(row.Waiting, ", ")
		}
		cells := []string{
			row.Task.Name,
			fmt.Sprintf("%d", row.Task.Priority),
			row.Task.DueDate.String(),
			status,
		}
		for i, c := range columns {
			p.CellFormat(c.width, 7, tr(fit(p, cells[i], c.width-2)), "1", 0, "L", false, 0, "")
		}
		p.Ln(-1)
	}
	p.Ln(4)
}

// fit shortens s with an ellipsis until it fits in width mm.
func fit(p *gofpdf.Fpdf, s string, width float64) string {
	if p.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && p.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
