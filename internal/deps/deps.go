// Package deps checks that external generator executables are installed.
package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external executable a backend relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Path = resolved
	status.Available = true
	return status
}

// Resolve returns the absolute path for a required executable or an error
// naming what is missing.
func Resolve(req Requirement) (string, error) {
	status := check(req)
	if !status.Available {
		return "", fmt.Errorf("%s: %s", status.Name, status.Detail)
	}
	return status.Path, nil
}

// Missing joins the failures of non-optional requirements; nil when all are
// present.
func Missing(statuses []Status) error {
	var errs []error
	for _, s := range statuses {
		if s.Available || s.Optional {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %s", s.Name, s.Detail))
	}
	return errors.Join(errs...)
}
