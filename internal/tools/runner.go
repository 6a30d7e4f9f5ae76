package tools

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/infra/logger"
)

// DefaultMaxOutput caps each of stdout and stderr per invocation.
const DefaultMaxOutput = 10 << 20 // 10 MiB

// Invocation describes one external tool run. Args is always a plain
// vector; nothing here ever passes through a shell.
type Invocation struct {
	Bin     string
	Args    []string
	Dir     string
	Env     []string // appended to the inherited environment
	Timeout time.Duration

	// MaxOutput overrides DefaultMaxOutput when positive.
	MaxOutput int64

	// OKCodes lists acceptable exit codes; empty means {0}.
	OKCodes []int

	// Redact lists secrets (passwords) scrubbed from any surfaced output.
	Redact []string
}

type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Elapsed  time.Duration
}

// stderrCodes maps known tool complaints to specific error codes instead
// of a generic TOOL_FAILED.
var stderrCodes = []struct {
	substr string
	code   domain.ErrorCode
	msg    string
}{
	{"invalid password", domain.ErrInvalidPassword, "password is incorrect"},
	{"incorrect password", domain.ErrInvalidPassword, "password is incorrect"},
	{"password required", domain.ErrInvalidPassword, "document requires a password"},
}

// Runner executes external binaries with deadlines, output caps and
// process-group kill semantics.
type Runner struct {
	log *logger.Logger
}

func NewRunner(log *logger.Logger) *Runner {
	return &Runner{log: log}
}

// Run executes the invocation and classifies the outcome. The child and
// its direct children run in their own process group so a kill reaches
// helpers the tool spawned.
func (r *Runner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	maxOut := inv.MaxOutput
	if maxOut <= 0 {
		maxOut = DefaultMaxOutput
	}

	tctx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	// A second cancel layer lets the output caps kill the child the
	// moment either stream overflows.
	octx, ocancel := context.WithCancel(tctx)
	defer ocancel()

	stdout := &cappedBuffer{max: maxOut, kill: ocancel}
	stderr := &cappedBuffer{max: maxOut, kill: ocancel}

	cmd := exec.CommandContext(octx, inv.Bin, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	name := filepath.Base(inv.Bin)
	start := time.Now()
	runErr := cmd.Run()
	res := &Result{
		Stdout:  stdout.buf.Bytes(),
		Stderr:  stderr.buf.Bytes(),
		Elapsed: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if stdout.overflowed || stderr.overflowed {
		return res, domain.Coded(domain.ErrToolOutputOverflow,
			"%s produced more than %d bytes of output", name, maxOut)
	}
	if ctx.Err() != nil {
		// The job-level context expired or was cancelled; let the
		// worker classify it.
		return res, ctx.Err()
	}
	if errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return res, domain.Coded(domain.ErrToolTimeout,
			"%s timed out after %s", name, inv.Timeout)
	}

	if runErr == nil || exitAllowed(res.ExitCode, runErr, inv.OKCodes) {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		tail := sanitizeTail(res.Stderr, inv.Redact)
		for _, pat := range stderrCodes {
			if strings.Contains(strings.ToLower(tail), pat.substr) {
				return res, domain.Coded(pat.code, "%s", pat.msg)
			}
		}
		r.log.Debug("tools: %s exited %d: %s", name, res.ExitCode, tail)
		return res, domain.Coded(domain.ErrToolFailed,
			"%s exited with code %d: %s", name, res.ExitCode, tail)
	}
	return res, domain.CodedFrom(domain.ErrToolFailed, runErr, "%s failed to run", name)
}

func exitAllowed(code int, runErr error, ok []int) bool {
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		return false
	}
	for _, c := range ok {
		if code == c {
			return true
		}
	}
	return false
}

// sanitizeTail returns the last chunk of stderr with secrets scrubbed
// and newlines collapsed, safe for client-facing messages.
func sanitizeTail(stderr []byte, redact []string) string {
	const tailLen = 400
	tail := stderr
	if len(tail) > tailLen {
		tail = tail[len(tail)-tailLen:]
	}
	s := string(tail)
	for _, secret := range redact {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "******")
		}
	}
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// cappedBuffer keeps up to max bytes and kills the child once the cap is
// crossed. Writes keep succeeding so the exec copier never stalls.
type cappedBuffer struct {
	buf        bytes.Buffer
	max        int64
	overflowed bool
	kill       context.CancelFunc
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.overflowed {
		return len(p), nil
	}
	remain := b.max - int64(b.buf.Len())
	if int64(len(p)) > remain {
		b.buf.Write(p[:remain])
		b.overflowed = true
		b.kill()
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}
