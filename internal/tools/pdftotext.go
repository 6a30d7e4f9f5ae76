package tools

import (
	"context"
	"strconv"
)

// textArgs builds the pdftotext argv: layout preserved, an optional
// inclusive 1-based page window, output on stdout.
func textArgs(in string, firstPage, lastPage int) []string {
	args := []string{"-layout"}
	if firstPage > 0 {
		args = append(args, "-f", strconv.Itoa(firstPage))
	}
	if lastPage > 0 {
		args = append(args, "-l", strconv.Itoa(lastPage))
	}
	return append(args, in, "-")
}

// ExtractText pulls text with layout preserved, optionally limited to an
// inclusive 1-based page range (zero means unbounded).
func (t *Toolbox) ExtractText(ctx context.Context, in string, firstPage, lastPage int) (string, error) {
	bin, err := t.bins.Lookup("pdftotext")
	if err != nil {
		return "", err
	}

	res, err := t.runner.Run(ctx, Invocation{
		Bin: bin, Args: textArgs(in, firstPage, lastPage), Timeout: popplerTimeout,
	})
	if err != nil {
		return "", err
	}
	return string(res.Stdout), nil
}
