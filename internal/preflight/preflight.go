package preflight

import (
	"context"
	"errors"
	"fmt"

	"assetgen/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to cfg and outputDir. The output
// directory is checked through its nearest existing ancestor so a fresh run
// can still create it.
func RunAll(ctx context.Context, cfg *config.Config, outputDir string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if outputDir != "" {
		results = append(results, CheckWritableTarget("Output directory", outputDir))
	}

	seen := make(map[string]bool)
	for _, kind := range []string{"image", "audio"} {
		name := cfg.BackendFor(kind)
		if seen[name] {
			continue
		}
		seen[name] = true
		results = append(results, CheckBackend(ctx, cfg, name))
	}
	return results
}

// Failed joins the failing results into one error; nil when all passed.
func Failed(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	return errors.Join(errs...)
}
