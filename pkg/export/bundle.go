package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact is one staged output: a pinned file name and its rendered bytes.
type Artifact struct {
	Name string
	Data []byte
}

// Bundle accumulates run artifacts in memory as stages produce them. Nothing
// touches the output directory until Commit, so a run that dies mid-flight
// leaves either no output at all or an explicitly quarantined directory,
// never a silently half-written one.
type Bundle struct {
	artifacts []Artifact
}

// NewBundle returns an empty artifact bundle.
func NewBundle() *Bundle {
	return &Bundle{}
}

// Add stages an artifact. Staging order is commit order.
func (b *Bundle) Add(name string, data []byte) {
	b.artifacts = append(b.artifacts, Artifact{Name: name, Data: data})
}

// Len reports the number of staged artifacts.
func (b *Bundle) Len() int {
	return len(b.artifacts)
}

// Names lists the staged artifact names in commit order.
func (b *Bundle) Names() []string {
	names := make([]string, len(b.artifacts))
	for i, a := range b.artifacts {
		names[i] = a.Name
	}
	return names
}

// Commit writes every staged artifact into dir, creating it if needed.
// Writes are independent: one failing write does not stop the rest, and the
// combined error reports every failure.
func (b *Bundle) Commit(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return b.writeAll(dir)
}

// CommitQuarantined writes the staged artifacts like Commit, then marks the
// directory with an INCOMPLETE file naming the failed stage and its cause.
// It is the failure-path counterpart of Commit: partial results stay
// inspectable but can never be mistaken for a finished run.
func (b *Bundle) CommitQuarantined(dir, stage string, cause error) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	writeErr := b.writeAll(dir)

	marker := fmt.Sprintf("pipeline failed during %s: %v\n", stage, cause)
	if err := os.WriteFile(filepath.Join(dir, IncompleteMarker), []byte(marker), 0644); err != nil {
		writeErr = errors.Join(writeErr, fmt.Errorf("failed to write quarantine marker: %w", err))
	}
	return writeErr
}

// writeAll writes the artifacts in staging order, collecting failures
// instead of aborting on the first one.
func (b *Bundle) writeAll(dir string) error {
	var errs []error
	for _, a := range b.artifacts {
		path := filepath.Join(dir, a.Name)
		if err := os.WriteFile(path, a.Data, 0644); err != nil {
			fmt.Printf("Warning: Failed to write %s: %v\n", a.Name, err)
			errs = append(errs, fmt.Errorf("failed to write %s: %w", a.Name, err))
			continue
		}
	}
	return errors.Join(errs...)
}
