package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"assetgen/internal/config"
	"assetgen/internal/deps"
)

const endpointTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableTarget passes when path is an accessible directory, or when
// it does not exist yet and its nearest existing ancestor is writable.
func CheckWritableTarget(name, path string) Result {
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := filepath.Dir(filepath.Clean(path))
	for {
		if _, err := os.Stat(ancestor); err == nil {
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
	}
	res := CheckDirectoryAccess(name, ancestor)
	if res.Passed {
		res.Detail = fmt.Sprintf("%s (will be created under %s)", path, ancestor)
	}
	return res
}

// CheckBackend checks the backend registered under name.
func CheckBackend(ctx context.Context, cfg *config.Config, name string) Result {
	label := fmt.Sprintf("Backend %q", name)
	switch name {
	case config.BackendPlaceholder:
		return Result{Name: label, Passed: true, Detail: "built in"}
	case config.BackendCommand:
		statuses := deps.CheckBinaries([]deps.Requirement{{
			Name:        "Generator command",
			Command:     cfg.Backend.Command,
			Description: "Runs once per generation attempt",
		}})
		if err := deps.Missing(statuses); err != nil {
			return Result{Name: label, Detail: err.Error()}
		}
		return Result{Name: label, Passed: true, Detail: statuses[0].Path}
	case config.BackendHTTP:
		res := CheckEndpoint(ctx, cfg.Backend.BaseURL, cfg.Backend.APIKey)
		res.Name = label
		return res
	default:
		return Result{Name: label, Detail: "unknown backend"}
	}
}

// CheckEndpoint verifies the HTTP backend answers and accepts the API key.
// Any response other than 401/403 or a 5xx counts as reachable.
func CheckEndpoint(ctx context.Context, baseURL, apiKey string) Result {
	const name = "HTTP backend"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base_url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, endpointTimeout)
	defer cancel()

	client := &http.Client{Timeout: endpointTimeout}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	if key := strings.TrimSpace(apiKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeEndpointError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	case resp.StatusCode >= 500:
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", base)}
	}
}

func summarizeEndpointError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (backend unreachable)"
	}
	return err.Error()
}
