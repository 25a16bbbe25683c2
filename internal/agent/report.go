package agent

import (
	"fmt"
	"strings"
)

// ReportEditor is a stateful document the agent can shape incrementally
// across iterations via the finalize_report tool's edit operations,
// rather than regenerating the whole report each call.
type ReportEditor struct {
	sections []reportSection
}

type reportSection struct {
	heading string
	body    string
}

func NewReportEditor() *ReportEditor { return &ReportEditor{} }

// Set replaces the whole document with a single section under heading.
func (r *ReportEditor) Set(heading, body string) {
	r.sections = []reportSection{{heading: heading, body: body}}
}

// Append adds a new section at the end.
func (r *ReportEditor) Append(heading, body string) {
	r.sections = append(r.sections, reportSection{heading: heading, body: body})
}

// Replace replaces the body of the first section whose heading matches
// (case-insensitive, substring) target; it appends a new section if no
// match is found.
func (r *ReportEditor) Replace(target, body string) {
	if i := r.find(target); i >= 0 {
		r.sections[i].body = body
		return
	}
	r.Append(target, body)
}

// InsertAfterHeading inserts a new section immediately after the first
// section whose heading matches target; appends at the end if not found.
func (r *ReportEditor) InsertAfterHeading(target, heading, body string) {
	i := r.find(target)
	if i < 0 {
		r.Append(heading, body)
		return
	}
	section := reportSection{heading: heading, body: body}
	r.sections = append(r.sections[:i+1], append([]reportSection{section}, r.sections[i+1:]...)...)
}

// ReplaceSection replaces both heading and body of the matching section.
func (r *ReportEditor) ReplaceSection(target, heading, body string) {
	if i := r.find(target); i >= 0 {
		r.sections[i] = reportSection{heading: heading, body: body}
		return
	}
	r.Append(heading, body)
}

// DeleteSection removes the first section whose heading matches target.
func (r *ReportEditor) DeleteSection(target string) {
	if i := r.find(target); i >= 0 {
		r.sections = append(r.sections[:i], r.sections[i+1:]...)
	}
}

func (r *ReportEditor) find(target string) int {
	target = strings.ToLower(target)
	for i, s := range r.sections {
		if strings.Contains(strings.ToLower(s.heading), target) {
			return i
		}
	}
	return -1
}

// Finalize renders the accumulated sections as a markdown document.
func (r *ReportEditor) Finalize() string {
	var b strings.Builder
	for _, s := range r.sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.heading, s.body)
	}
	return b.String()
}
