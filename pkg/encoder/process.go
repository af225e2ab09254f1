// Package encoder runs the external encoder process (ffmpeg)
// that takes raw frames from its stdin and publishes them.
package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/framecast/framecast/pkg/config"
	"github.com/framecast/framecast/pkg/logger"
)

var ErrNotStarted = errors.New("encoder is not started")

// pipeWaitDelay limits the wait for the stderr copy after the process exit.
const pipeWaitDelay = 2 * time.Second

type Process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	log   *logger.Logger

	done chan struct{}
	err  error

	closeOnce sync.Once
	closeErr  error
}

// Start spawns the configured encoder binary.
func Start(ctx context.Context, conf config.Config, log *logger.Logger) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	args := Args(conf)
	log.Info().Str("cmd", conf.Encoder.Binary+" "+strings.Join(Redact(args, conf.Stream.Key), " ")).
		Msg("starting the encoder")
	return Spawn(conf.Encoder.Binary, args, log)
}

// Spawn starts the binary with an open stdin pipe,
// its stderr goes into the log line by line.
func Spawn(bin string, args []string, log *logger.Logger) (*Process, error) {
	if log == nil {
		log = logger.Nop()
	}
	cmd := exec.Command(bin, args...)
	setProcAttr(cmd)
	cmd.WaitDelay = pipeWaitDelay

	p := &Process{cmd: cmd, log: log.Module("ffmpeg"), done: make(chan struct{})}
	cmd.Stderr = &lineWriter{log: p.log}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotStarted, err)
	}
	if err = cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotStarted, err)
	}
	p.stdin = stdin
	p.log.Info().Int("pid", cmd.Process.Pid).Msg("encoder started")

	go func() {
		p.err = cmd.Wait()
		code := ExitCode(p.err)
		ev := p.log.Info()
		if code != 0 {
			ev = p.log.Warn()
		}
		ev.Err(p.err).Int("code", code).Msg("encoder exited")
		close(p.done)
	}()
	return p, nil
}

// Write sends the bytes into the encoder stdin, it blocks
// while the encoder is busy.
func (p *Process) Write(b []byte) (int, error) {
	if p == nil || p.stdin == nil {
		return 0, ErrNotStarted
	}
	return p.stdin.Write(b)
}

// Close closes the encoder stdin so it can flush and exit.
func (p *Process) Close() error {
	if p == nil || p.stdin == nil {
		return ErrNotStarted
	}
	p.closeOnce.Do(func() { p.closeErr = p.stdin.Close() })
	return p.closeErr
}

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the process exits and returns its exit code.
func (p *Process) Wait() (int, error) {
	if p == nil || p.cmd == nil {
		return ExitCode(ErrNotStarted), ErrNotStarted
	}
	<-p.done
	return ExitCode(p.err), p.err
}

// Stop closes stdin and waits for the process to exit,
// then terminates and finally kills it after the timeout.
func (p *Process) Stop(timeout time.Duration) (int, error) {
	if p == nil || p.cmd == nil {
		return ExitCode(ErrNotStarted), ErrNotStarted
	}
	_ = p.Close()

	select {
	case <-p.done:
		return p.Wait()
	case <-time.After(timeout):
	}
	p.log.Warn().Dur("timeout", timeout).Msg("encoder didn't stop, terminating")
	_ = terminate(p.cmd.Process)

	select {
	case <-p.done:
		return p.Wait()
	case <-time.After(timeout):
	}
	p.log.Warn().Msg("encoder is still running, killing")
	_ = p.cmd.Process.Kill()
	return p.Wait()
}

func (p *Process) Pid() int {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// ExitCode maps the process wait error into an exit code,
// any failure without its own code is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if code := ee.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}

// lineWriter logs each complete line written into it.
type lineWriter struct {
	log *logger.Logger
	buf []byte
}

func (w *lineWriter) Write(b []byte) (int, error) {
	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		if line := strings.TrimSpace(string(w.buf[:i])); line != "" {
			w.log.Info().Msg(line)
		}
		w.buf = w.buf[i+1:]
	}
	return len(b), nil
}
