package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"glwalk/internal/walk"
)

// tableSink renders walk output as markdown-style section headers and
// padded tables. Each table is printed as soon as it is closed, so rows
// emitted before a mid-walk failure stay visible.
type tableSink struct {
	w       io.Writer
	columns []string
	rows    [][]string
}

func newTableSink(w io.Writer) *tableSink {
	return &tableSink{w: w}
}

func (s *tableSink) Section(title string) {
	_, _ = fmt.Fprintf(s.w, "## %s\n", title)
}

func (s *tableSink) Note(text string) {
	_, _ = fmt.Fprintf(s.w, "### %s\n", text)
}

func (s *tableSink) BeginTable(title string, columns ...string) {
	_, _ = fmt.Fprintf(s.w, "### %s\n", title)
	s.columns = columns
	s.rows = s.rows[:0]
}

func (s *tableSink) Row(values ...string) {
	s.rows = append(s.rows, values)
}

func (s *tableSink) EndTable() {
	PrintTable(s.w, s.columns, s.rows)
	s.columns, s.rows = nil, nil
}

// jsonSink accumulates walk output into a JSON document rendered at
// Flush.
type jsonSink struct {
	sections []*jsonSection
}

type jsonSection struct {
	Title  string       `json:"section"`
	Notes  []string     `json:"notes,omitempty"`
	Tables []*jsonTable `json:"tables,omitempty"`
}

type jsonTable struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func newJSONSink() *jsonSink {
	return &jsonSink{sections: []*jsonSection{}}
}

func (s *jsonSink) current() *jsonSection {
	if len(s.sections) == 0 {
		s.sections = append(s.sections, &jsonSection{})
	}
	return s.sections[len(s.sections)-1]
}

func (s *jsonSink) Section(title string) {
	s.sections = append(s.sections, &jsonSection{Title: title})
}

func (s *jsonSink) Note(text string) {
	sec := s.current()
	sec.Notes = append(sec.Notes, text)
}

func (s *jsonSink) BeginTable(title string, columns ...string) {
	sec := s.current()
	sec.Tables = append(sec.Tables, &jsonTable{Title: title, Columns: columns, Rows: [][]string{}})
}

func (s *jsonSink) Row(values ...string) {
	tables := s.current().Tables
	if len(tables) == 0 {
		return
	}
	tbl := tables[len(tables)-1]
	tbl.Rows = append(tbl.Rows, values)
}

func (s *jsonSink) EndTable() {}

func (s *jsonSink) Flush(w io.Writer) error {
	return PrintJSON(w, s.sections)
}

// newWalkSink returns the sink for the command's effective output format
// together with a flush function to call once the walk ends. The flush
// runs even for a failed walk, so partially aggregated output is still
// rendered.
func newWalkSink(cmd *cobra.Command) (walk.Sink, func() error) {
	if getOutputFormat(cmd) == "json" {
		sink := newJSONSink()
		return sink, func() error { return sink.Flush(os.Stdout) }
	}
	return newTableSink(os.Stdout), func() error { return nil }
}
