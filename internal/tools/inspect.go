package tools

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"rsc.io/pdf"

	"github.com/skelding/pdfpress/internal/domain"
)

// PageCount reads the page count natively, falling back to pdfinfo when
// the native parser chokes on the file.
func (t *Toolbox) PageCount(ctx context.Context, path string) (int, error) {
	n, err := pageCountNative(path)
	if err != nil {
		n, err = t.pageCountPoppler(ctx, path)
	}
	return n, err
}

func pageCountNative(path string) (n int, err error) {
	// rsc.io/pdf panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse failed: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	p, err := pdf.NewReader(f, fi.Size())
	if err != nil {
		return 0, err
	}
	c := p.NumPage()
	if c < 1 {
		return 0, errors.New("document has no pages")
	}
	return c, nil
}

func (t *Toolbox) pageCountPoppler(ctx context.Context, path string) (int, error) {
	bin, err := t.bins.Lookup("pdfinfo")
	if err != nil {
		return 0, err
	}
	res, err := t.runner.Run(ctx, Invocation{
		Bin: bin, Args: []string{path}, Timeout: popplerTimeout,
	})
	if err != nil {
		return 0, err
	}
	sc := bufio.NewScanner(bytes.NewReader(res.Stdout))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		return strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, errors.New("page count not found in pdfinfo output")
}

// PageBox is a page's media box size in points.
type PageBox struct {
	Width  float64
	Height float64
}

// letterBox stands in when a page carries no resolvable MediaBox.
var letterBox = PageBox{Width: 612, Height: 792}

// DefaultPageBoxes returns n letter-sized boxes for documents the native
// parser cannot open.
func DefaultPageBoxes(n int) []PageBox {
	boxes := make([]PageBox, n)
	for i := range boxes {
		boxes[i] = letterBox
	}
	return boxes
}

// PageBoxes returns per-page dimensions. Pages whose MediaBox cannot be
// resolved (missing, inherited from a broken parent chain) report US
// Letter.
func PageBoxes(path string) (boxes []PageBox, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse failed: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	r, err := pdf.NewReader(f, fi.Size())
	if err != nil {
		return nil, err
	}

	n := r.NumPage()
	boxes = make([]PageBox, 0, n)
	for i := 1; i <= n; i++ {
		boxes = append(boxes, pageBox(r.Page(i)))
	}
	return boxes, nil
}

func pageBox(p pdf.Page) PageBox {
	box := inheritedMediaBox(p)
	if box.IsNull() || box.Len() != 4 {
		return letterBox
	}
	x0 := box.Index(0).Float64()
	y0 := box.Index(1).Float64()
	x1 := box.Index(2).Float64()
	y1 := box.Index(3).Float64()

	w := x1 - x0
	if w < 0 {
		w = -w
	}
	h := y1 - y0
	if h < 0 {
		h = -h
	}
	if w == 0 || h == 0 {
		return letterBox
	}
	return PageBox{Width: w, Height: h}
}

// inheritedMediaBox walks the page tree upward; MediaBox is an
// inheritable attribute.
func inheritedMediaBox(p pdf.Page) pdf.Value {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		if box := v.Key("MediaBox"); !box.IsNull() {
			return box
		}
	}
	return pdf.Value{}
}

// ProbeValid reports whether the document parses and has at least one
// page, trying the native reader first and poppler second. With
// pdftotext installed the first page must also extract; a page tree can
// count while its content streams stay unreadable.
func (t *Toolbox) ProbeValid(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return errors.New("file is empty")
	}
	if _, err := t.PageCount(ctx, path); err != nil {
		return fmt.Errorf("document does not parse: %w", err)
	}
	if _, err := t.ExtractText(ctx, path, 1, 1); err != nil && domain.CodeOf(err) != domain.ErrToolUnavailable {
		return fmt.Errorf("document text does not extract: %w", err)
	}
	return nil
}
