package tools

import (
	"context"
	"fmt"
)

// Merge concatenates the inputs, in order, into a single document.
func (t *Toolbox) Merge(ctx context.Context, inputs []string, out string) error {
	bin, err := t.bins.Lookup("qpdf")
	if err != nil {
		return err
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		args := []string{"--empty", "--pages"}
		args = append(args, inputs...)
		args = append(args, "--", tmpOut)
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: qpdfTimeout,
		})
		return err
	})
}

// ExtractPages copies the pages named by ranges ("1-3,7" style, already
// normalized by the page-spec parser) into a new document.
func (t *Toolbox) ExtractPages(ctx context.Context, in, ranges, out string) error {
	bin, err := t.bins.Lookup("qpdf")
	if err != nil {
		return err
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		args := []string{in, "--pages", ".", ranges, "--", tmpOut}
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: qpdfTimeout,
		})
		return err
	})
}

// Rotate adds angle degrees clockwise to the pages named by ranges, or
// to every page when ranges is empty. The tool folds the delta into each
// page's existing rotation.
func (t *Toolbox) Rotate(ctx context.Context, in string, angle int, ranges, out string) error {
	bin, err := t.bins.Lookup("qpdf")
	if err != nil {
		return err
	}
	if ranges == "" {
		ranges = "1-z"
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		args := []string{fmt.Sprintf("--rotate=+%d:%s", angle, ranges), in, tmpOut}
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: qpdfTimeout,
		})
		return err
	})
}

// Encrypt protects the document with AES-256, same user and owner
// password.
func (t *Toolbox) Encrypt(ctx context.Context, in, password, out string) error {
	bin, err := t.bins.Lookup("qpdf")
	if err != nil {
		return err
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		args := []string{"--encrypt", password, password, "256", "--", in, tmpOut}
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: qpdfTimeout,
			Redact: []string{password},
		})
		return err
	})
}

// Decrypt removes encryption using the supplied password. A wrong
// password surfaces as INVALID_PASSWORD via the stderr mapping.
func (t *Toolbox) Decrypt(ctx context.Context, in, password, out string) error {
	bin, err := t.bins.Lookup("qpdf")
	if err != nil {
		return err
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		args := []string{"--password=" + password, "--decrypt", in, tmpOut}
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: qpdfTimeout,
			Redact: []string{password},
		})
		return err
	})
}

// Reemit rewrites the document structure, tolerating warnings (exit 3).
// The extra flags select the repair strategy.
func (t *Toolbox) Reemit(ctx context.Context, in, out string, extra ...string) error {
	bin, err := t.bins.Lookup("qpdf")
	if err != nil {
		return err
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		args := append(append([]string{}, extra...), in, tmpOut)
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: repairAttemptTimeout,
			OKCodes: []int{0, 3},
		})
		return err
	})
}

// Overlay stamps page 1 of stamp onto every page of in.
func (t *Toolbox) Overlay(ctx context.Context, in, stamp, out string) error {
	bin, err := t.bins.Lookup("qpdf")
	if err != nil {
		return err
	}
	return t.stage(out, func(scratch, tmpOut string) error {
		args := []string{in, "--overlay", stamp, "--from=", "--repeat=1", "--", tmpOut}
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: qpdfTimeout,
		})
		return err
	})
}
