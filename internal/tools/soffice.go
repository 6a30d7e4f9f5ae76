package tools

import (
	"context"
	"path/filepath"
	"strings"
)

// ConvertOffice converts one document to the target format ("pdf",
// "docx", "xlsx", "pptx"). Invocations are serialized because soffice
// trips over its own profile lock under concurrency.
func (t *Toolbox) ConvertOffice(ctx context.Context, in, target, out string) error {
	bin, err := t.bins.Lookup("soffice")
	if err != nil {
		return err
	}

	if err := t.office.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.office.Release(1)

	return t.stage(out, func(scratch, tmpOut string) error {
		args := []string{
			"--headless",
			"--norestore",
			"--convert-to", target,
			"--outdir", scratch,
			in,
		}
		_, err := t.runner.Run(ctx, Invocation{
			Bin: bin, Args: args, Dir: scratch, Timeout: officeTimeout,
			// soffice insists on a writable profile under HOME.
			Env: []string{"HOME=" + scratch},
		})
		if err != nil {
			return err
		}

		// soffice names the result after the input; move it onto the
		// staged path so the usual publish flow applies.
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		produced := filepath.Join(scratch, base+"."+target)
		if err := requireOutput(produced); err != nil {
			return err
		}
		return t.store.Publish(produced, tmpOut)
	})
}
