package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"storyreel/internal/services"
	"storyreel/internal/services/genai"
)

const checkTimeout = 15 * time.Second

// CheckProvider verifies that the provider accepts the API key and knows the
// model.
func CheckProvider(ctx context.Context, name string, client *genai.Client, model string) Result {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := client.HealthCheck(checkCtx, model); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", model, summarizeProviderError(err))}
	}
	return Result{Name: name, Passed: true, Detail: model + " (reachable)"}
}

// CheckNtfy verifies that the ntfy server behind topic answers. It issues a
// HEAD so no notification is published.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, strings.TrimSpace(topic), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic url (%v)", err)}
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

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

func summarizeProviderError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	switch services.Kind(err) {
	case "configuration":
		return "api key missing"
	case "permanent":
		return "rejected: " + err.Error()
	case "transient":
		return "unreachable: " + err.Error()
	default:
		return err.Error()
	}
}
