package platform

import (
	"os"
	"os/exec"
	"sort"
	"sync"

	"github.com/skelding/pdfpress/internal/domain"
)

// RequiredBinaries lists external system binaries the app needs to function
var RequiredBinaries = []string{
	"qpdf",
	"gs",
}

// OptionalBinaries degrade specific operations when absent instead of
// refusing to start.
var OptionalBinaries = map[string]string{
	"soffice":   "office conversions",
	"pdftotext": "text extraction",
	"pdfinfo":   "page inspection fallback",
}

// chromiumCandidates are probed in order when no explicit path is set.
var chromiumCandidates = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
}

type lookupResult struct {
	path string
	err  error
}

// Binaries resolves external tools through exec.LookPath and caches the
// result for the process lifetime. A missing tool surfaces as
// TOOL_UNAVAILABLE on the jobs that need it, never as a crash.
type Binaries struct {
	mu               sync.Mutex
	cache            map[string]lookupResult
	chromiumOverride string
}

func NewBinaries(chromiumPath string) *Binaries {
	return &Binaries{
		cache:            make(map[string]lookupResult),
		chromiumOverride: chromiumPath,
	}
}

// Lookup resolves a binary by name, caching hit and miss alike.
func (b *Binaries) Lookup(name string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if res, ok := b.cache[name]; ok {
		return res.path, res.err
	}

	path, err := exec.LookPath(name)
	if err != nil {
		err = domain.CodedFrom(domain.ErrToolUnavailable, err, "%s is not installed", name)
		b.cache[name] = lookupResult{err: err}
		return "", err
	}
	b.cache[name] = lookupResult{path: path}
	return path, nil
}

// Chromium resolves the browser binary: the configured override first,
// then the usual install names.
func (b *Binaries) Chromium() (string, error) {
	if b.chromiumOverride != "" {
		if _, err := os.Stat(b.chromiumOverride); err != nil {
			return "", domain.CodedFrom(domain.ErrToolUnavailable, err,
				"configured browser binary %s is not usable", b.chromiumOverride)
		}
		return b.chromiumOverride, nil
	}
	for _, name := range chromiumCandidates {
		if path, err := b.Lookup(name); err == nil {
			return path, nil
		}
	}
	return "", domain.Coded(domain.ErrToolUnavailable, "no chromium or chrome binary found in PATH")
}

// ValidateDependencies fails when a required binary is missing and
// reports which optional features are disabled.
func (b *Binaries) ValidateDependencies() (disabled []string, err error) {
	for _, bin := range RequiredBinaries {
		if _, lerr := b.Lookup(bin); lerr != nil {
			return nil, lerr
		}
	}
	for bin, feature := range OptionalBinaries {
		if _, lerr := b.Lookup(bin); lerr != nil {
			disabled = append(disabled, feature)
		}
	}
	if _, cerr := b.Chromium(); cerr != nil {
		disabled = append(disabled, "html rendering")
	}
	sort.Strings(disabled)
	return disabled, nil
}

// Report maps every known tool to its resolved path, or "missing". Used
// by the check subcommand and the health endpoint.
func (b *Binaries) Report() map[string]string {
	report := make(map[string]string)
	for _, bin := range RequiredBinaries {
		if path, err := b.Lookup(bin); err == nil {
			report[bin] = path
		} else {
			report[bin] = "missing"
		}
	}
	for bin := range OptionalBinaries {
		if path, err := b.Lookup(bin); err == nil {
			report[bin] = path
		} else {
			report[bin] = "missing"
		}
	}
	if path, err := b.Chromium(); err == nil {
		report["chromium"] = path
	} else {
		report["chromium"] = "missing"
	}
	return report
}
