package tools

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/infra/logger"
	"github.com/skelding/pdfpress/internal/platform"
	"github.com/skelding/pdfpress/internal/store"
)

// fakeToolbox points PATH at a directory of shell stand-ins so poppler
// invocations run without poppler installed.
func fakeToolbox(t *testing.T, scripts map[string]string) *Toolbox {
	t.Helper()

	dir := t.TempDir()
	for name, body := range scripts {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
			t.Fatalf("write fake %s: %v", name, err)
		}
	}
	t.Setenv("PATH", dir)

	st, err := store.NewTempStore(t.TempDir(), t.TempDir(), logger.Nop())
	if err != nil {
		t.Fatalf("temp store: %v", err)
	}
	return NewToolbox(platform.NewBinaries(""), st, logger.Nop())
}

func TestTextArgs(t *testing.T) {
	got := textArgs("/up/in.pdf", 2, 5)
	want := []string{"-layout", "-f", "2", "-l", "5", "/up/in.pdf", "-"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("bounded args = %v, want %v", got, want)
	}

	got = textArgs("/up/in.pdf", 0, 0)
	want = []string{"-layout", "/up/in.pdf", "-"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unbounded args = %v, want %v", got, want)
	}
}

func TestExtractTextStreamsStdout(t *testing.T) {
	tb := fakeToolbox(t, map[string]string{"pdftotext": `echo "$@"`})

	out, err := tb.ExtractText(context.Background(), "/up/in.pdf", 1, 3)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(out, "-layout -f 1 -l 3 /up/in.pdf -") {
		t.Fatalf("tool saw %q, argv not passed through", out)
	}
}

func TestExtractTextMissingBinary(t *testing.T) {
	tb := fakeToolbox(t, nil)

	_, err := tb.ExtractText(context.Background(), "/up/in.pdf", 0, 0)
	if code := domain.CodeOf(err); code != domain.ErrToolUnavailable {
		t.Fatalf("code = %q (%v), want %q", code, err, domain.ErrToolUnavailable)
	}
}

func TestProbeValidChecksTextExtraction(t *testing.T) {
	// The header alone defeats the native parser, so the probe answers
	// come from the fake poppler tools.
	pageCountOK := `echo "Pages: 3"`

	writeDoc := func(t *testing.T, tb *Toolbox) string {
		t.Helper()
		p := filepath.Join(tb.store.UploadsDir(), "doc.pdf")
		if err := os.WriteFile(p, []byte("%PDF-1.4 not really"), 0644); err != nil {
			t.Fatalf("write doc: %v", err)
		}
		return p
	}

	t.Run("unreadable text fails the probe", func(t *testing.T) {
		tb := fakeToolbox(t, map[string]string{
			"pdfinfo":   pageCountOK,
			"pdftotext": `echo "Syntax Error: corrupt stream" >&2; exit 1`,
		})
		if err := tb.ProbeValid(context.Background(), writeDoc(t, tb)); err == nil {
			t.Fatal("probe passed a document whose text does not extract")
		}
	})

	t.Run("readable text passes", func(t *testing.T) {
		tb := fakeToolbox(t, map[string]string{
			"pdfinfo":   pageCountOK,
			"pdftotext": `echo "hello"`,
		})
		if err := tb.ProbeValid(context.Background(), writeDoc(t, tb)); err != nil {
			t.Fatalf("probe failed a readable document: %v", err)
		}
	})

	t.Run("probe degrades without pdftotext", func(t *testing.T) {
		tb := fakeToolbox(t, map[string]string{"pdfinfo": pageCountOK})
		if err := tb.ProbeValid(context.Background(), writeDoc(t, tb)); err != nil {
			t.Fatalf("probe failed with pdftotext absent: %v", err)
		}
	})
}
