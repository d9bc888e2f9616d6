// Package report records the outcome of a CLI job run.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prilive-com/mailshield/bulk"
	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/httpop"
)

// maxListedFailures bounds the failures printed by FormatSummary.
const maxListedFailures = 10

// Report represents a job run report.
type Report struct {
	RunID     string        `json:"run_id"`
	Job       string        `json:"job"`
	Endpoint  string        `json:"endpoint"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Aborted   bool          `json:"aborted"`
	Items     []Item        `json:"items"`
	Summary   Summary       `json:"summary"`
}

// Item is the outcome of one request.
type Item struct {
	Index      int    `json:"index"`
	Request    string `json:"request"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Summary contains aggregate statistics.
type Summary struct {
	Total         int           `json:"total"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	SuccessRate   float64       `json:"success_rate"`
	Failures      fault.Summary `json:"failures"`
	TotalDuration string        `json:"total_duration"`
}

// NewReport starts a report for the named job.
func NewReport(job, endpoint string) *Report {
	return &Report{
		Job:       job,
		Endpoint:  endpoint,
		StartTime: time.Now(),
	}
}

// Finalize fills the report from a completed bulk run over reqs.
func (r *Report) Finalize(reqs []httpop.Request, res *bulk.Result[*httpop.Reply]) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.RunID = res.RunID
	r.Aborted = res.Aborted

	r.Items = make([]Item, res.Len())
	for _, s := range res.Succeeded {
		item := Item{Index: s.Index, Request: requestName(reqs, s.Index), Success: true}
		if s.Value != nil {
			item.StatusCode = s.Value.StatusCode
		}
		r.Items[s.Index] = item
	}
	for _, f := range res.Failed {
		item := Item{Index: f.Index, Request: requestName(reqs, f.Index)}
		if f.Failure != nil {
			item.Kind = kindLabel(f.Failure)
			item.Attempts = f.Failure.Attempts
			item.Error = f.Failure.Error()
			var remote *fault.RemoteError
			if errors.As(f.Failure, &remote) {
				item.StatusCode = remote.StatusCode
			}
		}
		r.Items[f.Index] = item
	}

	r.Summary = Summary{
		Total:         res.Len(),
		Succeeded:     len(res.Succeeded),
		Failed:        len(res.Failed),
		SuccessRate:   res.SuccessRate(),
		Failures:      res.Tally(),
		TotalDuration: r.Duration.String(),
	}
	r.Success = len(res.Failed) == 0 && !res.Aborted
}

// ToJSON returns the report as JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Save saves the report to a file.
func (r *Report) Save(storageDir string) (string, error) {
	if err := os.MkdirAll(filepath.Join(storageDir, "reports"), 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	filename := filepath.Join(storageDir, "reports", fmt.Sprintf("report-%s.json", r.RunID))

	data, err := r.ToJSON()
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return filename, nil
}

// FormatSummary returns a human-readable summary.
func (r *Report) FormatSummary() string {
	var sb strings.Builder

	status := "PASSED"
	switch {
	case r.Aborted:
		status = "ABORTED"
	case !r.Success:
		status = "FAILED"
	}

	fmt.Fprintf(&sb, "Run: %s (%s)\n", r.RunID, r.Job)
	fmt.Fprintf(&sb, "Endpoint: %s\n", r.Endpoint)
	fmt.Fprintf(&sb, "Status: %s\n", status)
	fmt.Fprintf(&sb, "Duration: %s\n\n", r.Duration.Round(time.Millisecond))

	fmt.Fprintf(&sb, "Requests: %d/%d succeeded (%.1f%%)\n",
		r.Summary.Succeeded, r.Summary.Total, r.Summary.SuccessRate*100)

	for _, k := range fault.Kinds() {
		if n := r.Summary.Failures.ByKind[k]; n > 0 {
			fmt.Fprintf(&sb, "  %s: %d\n", k, n)
		}
	}
	if n := r.Summary.Failures.CircuitOpen; n > 0 {
		fmt.Fprintf(&sb, "  circuit_open: %d\n", n)
	}
	if n := r.Summary.Failures.Exhausted; n > 0 {
		fmt.Fprintf(&sb, "  exhausted: %d\n", n)
	}

	listed := 0
	for _, item := range r.Items {
		if item.Success {
			continue
		}
		if listed == maxListedFailures {
			fmt.Fprintf(&sb, "... and %d more\n", r.Summary.Failed-listed)
			break
		}
		if listed == 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "FAILED: #%d %s - %s\n", item.Index, item.Request, item.Error)
		listed++
	}

	return sb.String()
}

func requestName(reqs []httpop.Request, i int) string {
	if i < len(reqs) {
		return reqs[i].Name
	}
	return ""
}

func kindLabel(f *fault.Failure) string {
	switch {
	case f.IsCircuitOpen():
		return "circuit_open"
	case f.IsCanceled():
		return "canceled"
	default:
		return f.Kind.String()
	}
}
