// Package checker probes the bowiephone app server for the assets the
// front-end needs and reports which are missing before a debug session
// starts.
package checker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bowiephone/bowietest/internal/config"
)

// DefaultPaths are the assets every build of the front-end must serve.
var DefaultPaths = []string{
	"/",
	"/config.js",
	"/app.js",
	"/debug.js",
	"/styles/styles.css",
	"/styles/default-theme.css",
}

// configAsset is the path whose body is scanned for the debug flag.
const configAsset = "/config.js"

// DebugFlag is the best-effort debug marker found in the config asset.
type DebugFlag string

const (
	DebugFlagUnknown  DebugFlag = ""
	DebugFlagEnabled  DebugFlag = "enabled"
	DebugFlagDisabled DebugFlag = "disabled"
)

// Result is the outcome of probing one asset path.
type Result struct {
	Path       string
	StatusCode int
	Size       int
	Err        error
	DebugFlag  DebugFlag
}

// Passed reports whether the asset came back 200.
func (r Result) Passed() bool {
	return r.Err == nil && r.StatusCode == http.StatusOK
}

// AllPassed reports whether every probed path passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed() {
			return false
		}
	}
	return true
}

// Checker issues one GET per expected asset path.
type Checker struct {
	baseURL string
	paths   []string
	client  *http.Client
	logger  zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) *Checker {
	return &Checker{
		baseURL: strings.TrimRight(cfg.Checker.BaseURL, "/"),
		paths:   DefaultPaths,
		client:  &http.Client{Timeout: cfg.CheckerTimeout()},
		logger:  logger.With().Str("component", "checker").Logger(),
	}
}

// Run probes every path in order. A failing path never stops the sweep;
// each result records its own outcome.
func (c *Checker) Run(ctx context.Context) []Result {
	c.logger.Debug().Str("base_url", c.baseURL).Int("paths", len(c.paths)).Msg("checking assets")
	results := make([]Result, 0, len(c.paths))
	for _, path := range c.paths {
		results = append(results, c.probe(ctx, path))
	}
	return results
}

func (c *Checker) probe(ctx context.Context, path string) Result {
	res := Result{Path: path}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		res.Err = err
		return res
	}
	resp, err := c.client.Do(req)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Err = fmt.Errorf("read body: %w", err)
		return res
	}
	res.StatusCode = resp.StatusCode
	res.Size = len(body)

	if path == configAsset && resp.StatusCode == http.StatusOK {
		res.DebugFlag = scanDebugFlag(body)
	}
	return res
}

// scanDebugFlag looks for the literal markers the front-end's config
// template renders. Best effort: a reformatted config yields no flag.
func scanDebugFlag(body []byte) DebugFlag {
	switch {
	case bytes.Contains(body, []byte("debug: true")):
		return DebugFlagEnabled
	case bytes.Contains(body, []byte("debug: false")):
		return DebugFlagDisabled
	default:
		return DebugFlagUnknown
	}
}
