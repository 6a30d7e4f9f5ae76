package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skelding/pdfpress/internal/domain"
)

// compressPresets maps the public quality names onto pdfwrite distiller
// settings.
var compressPresets = map[string]string{
	"smallest": "/screen",
	"balanced": "/ebook",
	"high":     "/printer",
}

// CompressPresetNames returns the accepted preset names for validation
// messages.
func CompressPresetNames() []string {
	names := make([]string, 0, len(compressPresets))
	for name := range compressPresets {
		names = append(names, name)
	}
	return names
}

// Compress re-distills the document at the named quality preset.
func (t *Toolbox) Compress(ctx context.Context, in, out, preset string) error {
	setting, ok := compressPresets[preset]
	if !ok {
		return domain.Coded(domain.ErrBadPayload, "unknown compression preset %q", preset)
	}
	bin, err := t.bins.Lookup("gs")
	if err != nil {
		return err
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		args := []string{
			"-sDEVICE=pdfwrite",
			"-dCompatibilityLevel=1.4",
			"-dPDFSETTINGS=" + setting,
			"-dNOPAUSE", "-dQUIET", "-dBATCH",
			"-sOutputFile=" + tmpOut,
			in,
		}
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: gsCompressTimeout,
		})
		return err
	})
}

// DeepRepair re-renders the document through pdfwrite, rebuilding every
// object. Strict mode stops on interpreter errors; permissive mode
// salvages whatever still renders.
func (t *Toolbox) DeepRepair(ctx context.Context, in, out string, strict bool) error {
	bin, err := t.bins.Lookup("gs")
	if err != nil {
		return err
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		args := []string{"-sDEVICE=pdfwrite", "-dNOPAUSE", "-dQUIET", "-dBATCH"}
		if strict {
			args = append(args, "-dPDFSTOPONERROR")
		}
		args = append(args, "-sOutputFile="+tmpOut, in)
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: gsRenderTimeout,
		})
		return err
	})
}

// CropRange rewrites pages first..last with the given visible box
// ([llx lly urx ury] in points). Callers split mixed-geometry documents
// into runs of pages sharing one box and merge the results.
func (t *Toolbox) CropRange(ctx context.Context, in, out string, first, last int, box [4]float64) error {
	bin, err := t.bins.Lookup("gs")
	if err != nil {
		return err
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		mark := fmt.Sprintf("[/CropBox [%.2f %.2f %.2f %.2f] /PAGES pdfmark",
			box[0], box[1], box[2], box[3])
		args := []string{
			"-sDEVICE=pdfwrite",
			fmt.Sprintf("-dFirstPage=%d", first),
			fmt.Sprintf("-dLastPage=%d", last),
			"-dNOPAUSE", "-dQUIET", "-dBATCH",
			"-sOutputFile=" + tmpOut,
			"-c", mark,
			"-f", in,
		}
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: gsRenderTimeout,
		})
		return err
	})
}

// RenderPostScript distills a generated PostScript program into a PDF.
// Used to produce watermark stamp pages.
func (t *Toolbox) RenderPostScript(ctx context.Context, program, out string) error {
	bin, err := t.bins.Lookup("gs")
	if err != nil {
		return err
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		ps := filepath.Join(scratch, "input.ps")
		if err := os.WriteFile(ps, []byte(program), 0600); err != nil {
			return fmt.Errorf("failed to write postscript: %w", err)
		}
		args := []string{
			"-sDEVICE=pdfwrite",
			"-dNOPAUSE", "-dQUIET", "-dBATCH",
			"-sOutputFile=" + tmpOut,
			ps,
		}
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: gsRenderTimeout,
		})
		return err
	})
}

// WatermarkProgram builds the PostScript for a one-page diagonal text
// stamp sized to the target page. Opacity is approximated with a gray
// level since plain PostScript has no transparency.
func WatermarkProgram(text string, pageW, pageH, fontSize, opacity float64) string {
	if fontSize <= 0 {
		fontSize = 48
	}
	if opacity <= 0 || opacity > 1 {
		opacity = 0.3
	}
	gray := 1 - opacity

	var b strings.Builder
	fmt.Fprintf(&b, "%%!PS\n")
	fmt.Fprintf(&b, "<< /PageSize [%.2f %.2f] >> setpagedevice\n", pageW, pageH)
	fmt.Fprintf(&b, "/Helvetica-Bold findfont %.2f scalefont setfont\n", fontSize)
	fmt.Fprintf(&b, "%.3f setgray\n", gray)
	fmt.Fprintf(&b, "%.2f %.2f translate\n", pageW/2, pageH/2)
	fmt.Fprintf(&b, "45 rotate\n")
	fmt.Fprintf(&b, "(%s) dup stringwidth pop 2 div neg %.2f neg moveto show\n",
		escapePS(text), fontSize/3)
	fmt.Fprintf(&b, "showpage\n")
	return b.String()
}

// escapePS makes a user string safe inside a PostScript string literal.
func escapePS(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\n", `\n`, "\r", ``)
	return r.Replace(s)
}
