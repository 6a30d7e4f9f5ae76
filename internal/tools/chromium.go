package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// deadProxy points http and https at a closed local port. The page
// itself loads over file://, so only data:, blob:, about: and file:
// resources can resolve; every remote fetch dies immediately.
const deadProxy = "http=127.0.0.1:1;https=127.0.0.1:1"

func browserArgs(profileDir, outPath, pageURL string) []string {
	return []string{
		"--headless",
		"--disable-gpu",
		"--no-sandbox",
		"--disable-extensions",
		"--no-first-run",
		"--user-data-dir=" + profileDir,
		"--proxy-server=" + deadProxy,
		"--virtual-time-budget=10000",
		"--run-all-compositor-stages-before-draw",
		"--print-to-pdf-no-header",
		"--print-to-pdf=" + outPath,
		pageURL,
	}
}

// RenderHTML prints the given markup to a PDF through the headless
// browser with networking confined to local schemes.
func (t *Toolbox) RenderHTML(ctx context.Context, html, out string) error {
	bin, err := t.bins.Chromium()
	if err != nil {
		return err
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		page := filepath.Join(scratch, "page.html")
		if err := os.WriteFile(page, []byte(html), 0600); err != nil {
			return fmt.Errorf("failed to write page: %w", err)
		}
		args := browserArgs(filepath.Join(scratch, "profile"), tmpOut, "file://"+page)
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: browserTimeout,
		})
		return err
	})
}
