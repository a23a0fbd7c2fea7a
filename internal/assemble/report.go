package assemble

import (
	"strings"
	"time"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/pagewrap/internal/scope"
)

// Status values of a finished pass.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// OutputRecord describes one written file.
type OutputRecord struct {
	Source      string `json:"source"`
	Dest        string `json:"dest"`
	Fingerprint string `json:"fingerprint"`
}

// FileFailure describes a file that could not be assembled or written.
type FileFailure struct {
	Source string `json:"source"`
	Err    error  `json:"-"`
}

// Report summarizes one assembly pass.
type Report struct {
	PassID          string         `json:"pass_id"`
	Scope           scope.Scope    `json:"-"`
	Started         time.Time      `json:"started"`
	Finished        time.Time      `json:"finished"`
	Outputs         []OutputRecord `json:"outputs"`
	Removed         []string       `json:"removed,omitempty"`
	Skipped         []string       `json:"skipped,omitempty"`
	MissingIncludes int            `json:"missing_includes"`
	Failures        []FileFailure  `json:"-"`
	Err             error          `json:"-"`
}

// Duration is the wall time of the pass.
func (r *Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Status is StatusFailed when the pass aborted or any file failed.
func (r *Report) Status() string {
	if r.Err != nil || len(r.Failures) > 0 {
		return StatusFailed
	}
	return StatusSuccess
}

// Hash fingerprints the pass's outputs; browsers reload when it changes.
func (r *Report) Hash() string {
	if r.Err != nil {
		return "error:" + r.PassID
	}
	var b strings.Builder
	for _, o := range r.Outputs {
		b.WriteString(o.Dest)
		b.WriteByte(0)
		b.WriteString(o.Fingerprint)
		b.WriteByte('\n')
	}
	for _, p := range r.Removed {
		b.WriteString(p)
		b.WriteString("\x00removed\n")
	}
	return mdfp.CalculateFingerprintFromParts(r.PassID, b.String())
}

// Fingerprint returns the content fingerprint recorded for an output.
func Fingerprint(content []byte) string {
	return mdfp.CalculateFingerprintFromParts("", string(content))
}
