package depotcli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// runner abstracts child-process execution so the session state machine is
// testable without spawning real processes.
type runner interface {
	start(ctx context.Context, bin string, args []string) (childProcess, error)
}

// childProcess is one running downloader invocation.
type childProcess interface {
	// lines streams combined stdout/stderr line by line. The channel is
	// closed once both pipes are drained; output is consumed continuously
	// so the child can never block on a full pipe.
	lines() <-chan string

	// writeInput writes a line (with trailing newline) to the child's
	// stdin. Used to answer Guard code prompts.
	writeInput(s string) error

	// wait blocks until the process exits. A nil return means exit 0.
	wait() error

	// kill terminates the process immediately.
	kill() error
}

// execRunner spawns real processes via os/exec.
type execRunner struct{}

func (execRunner) start(ctx context.Context, bin string, args []string) (childProcess, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}

	p := &execProcess{
		cmd:   cmd,
		stdin: stdin,
		out:   make(chan string, 256),
	}
	p.wg.Add(2)
	go p.drain(stdout)
	go p.drain(stderr)
	go func() {
		p.wg.Wait()
		close(p.out)
	}()

	return p, nil
}

type execProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   chan string
	wg    sync.WaitGroup

	waitOnce sync.Once
	waitErr  error
}

// drain pumps one pipe into the shared line channel until EOF.
func (p *execProcess) drain(r io.Reader) {
	defer p.wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.out <- scanner.Text()
	}
}

func (p *execProcess) lines() <-chan string {
	return p.out
}

func (p *execProcess) writeInput(s string) error {
	if _, err := io.WriteString(p.stdin, s+"\n"); err != nil {
		return fmt.Errorf("write to downloader stdin: %w", err)
	}
	return nil
}

func (p *execProcess) wait() error {
	p.waitOnce.Do(func() {
		// Pipes must be fully drained before Wait closes them.
		p.wg.Wait()
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

func (p *execProcess) kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}
