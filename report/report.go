// Package report delivers graded findings and action outcomes to the
// operator and to secondary sinks.
package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"dabastion/posture"
)

// Reporter receives graded lines as a run produces them. Severity is
// presentation only: recording an error does not stop the run.
type Reporter interface {
	Record(severity posture.Severity, message string)
}

var severityStyles = map[posture.Severity]lipgloss.Style{
	posture.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	posture.Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	posture.Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

var severityTags = map[posture.Severity]string{
	posture.Success: "[ ok ]",
	posture.Warning: "[warn]",
	posture.Error:   "[fail]",
}

// Console writes one styled line per record to a terminal writer.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Record(severity posture.Severity, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag := severityStyles[severity].Render(severityTags[severity])
	fmt.Fprintf(c.out, "%s %s\n", tag, message)
}

// FileLog appends every record, unstyled and timestamped, to a file.
// Lines are "<RFC3339> <severity> <message>".
type FileLog struct {
	mu  sync.Mutex
	f   *os.File
	now func() time.Time
}

func OpenFileLog(path string) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening report log %s: %w", path, err)
	}
	return &FileLog{f: f, now: time.Now}, nil
}

func (l *FileLog) Record(severity posture.Severity, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.f, "%s %s %s\n", l.now().Format(time.RFC3339), severity, message)
}

func (l *FileLog) Close() error {
	return l.f.Close()
}

// Fanout relays each record to every sink in order.
type Fanout []Reporter

func (f Fanout) Record(severity posture.Severity, message string) {
	for _, r := range f {
		r.Record(severity, message)
	}
}
