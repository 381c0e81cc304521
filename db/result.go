package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/nickyhof/stressdb/core"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	SessionResultType
)

func (t ResultType) String() string {
	if t == SessionResultType {
		return "session"
	}
	return "query"
}

type Result interface {
	Type() ResultType
	Display(w io.Writer)
}

// QueryResult is a read-only answer laid out as a table. Status is set for
// curve and interpolation queries and names the no-data state, if any.
type QueryResult struct {
	Statement        string
	Status           string
	Columns          []string
	Data             [][]string
	NumericColumns   []int
	RecordsRead      int
	ExecutionTimeSec float64
}

// SessionResult reports the session after a statement that changed it.
type SessionResult struct {
	Statement        string
	Variant          string
	Selection        map[string]string
	Candidates       int
	ExecutionTimeSec float64
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result SessionResult) Type() ResultType {
	return SessionResultType
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	switch {
	case secs < 0.001:
		return "<1ms"
	case secs < 0.01:
		return fmt.Sprintf("%.1fms", secs*1000)
	case secs < 1:
		return fmt.Sprintf("%dms", int(secs*1000))
	case secs < 10:
		return fmt.Sprintf("%.1fs", secs)
	case secs < 60:
		return fmt.Sprintf("%ds", int(secs))
	default:
		mins, rest := int(secs)/60, int(secs)%60
		if rest == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, rest)
	}
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result SessionResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Display(w io.Writer) {
	if len(result.Data) > 0 {
		table := NewTable(w)
		table.Header(result.Columns)
		table.AlignRight(result.NumericColumns...)
		table.Bulk(result.Data)
		table.Render()
	}

	status := ""
	if result.Status != "" && result.Status != CurveOK.String() {
		status = result.Status + ", "
	}
	fmt.Fprintf(w, "%s%d rows (%s)\n", status, len(result.Data), result.ExecutionTime())
}

func (result SessionResult) Display(w io.Writer) {
	parts := []string{result.Variant}

	for _, attr := range core.Attributes {
		if v, ok := result.Selection[attr.String()]; ok {
			parts = append(parts, fmt.Sprintf("%s=%q", attr, v))
		}
	}

	fmt.Fprintf(w, "OK: %s, %d candidate(s) (%s)\n", strings.Join(parts, " "), result.Candidates, result.ExecutionTime())
}
