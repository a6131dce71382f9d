package callback

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Process is a training loop running as an external command. It reports an
// epoch for every stdout line of the form
//
//	epoch=<n> <name>=<value> ...
//
// and copies all output through.
type Process struct {
	Name string
	Args []string
	// Env is added to the current environment.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// ParseEpochLine reads an epoch report line. ok is false for any other output.
func ParseEpochLine(line string) (epoch int, logs Logs, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "epoch=") {
		return 0, nil, false
	}
	epoch, err := strconv.Atoi(strings.TrimPrefix(fields[0], "epoch="))
	if err != nil || epoch < 0 {
		return 0, nil, false
	}

	logs = make(Logs, len(fields)-1)
	for _, field := range fields[1:] {
		name, raw, found := strings.Cut(field, "=")
		if !found || name == "" {
			return 0, nil, false
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, nil, false
		}
		logs[name] = value
	}
	return epoch, logs, true
}

// Train runs the command to completion. A failing epoch report stops the
// process.
func (p *Process) Train(ctx context.Context, report EpochFunc) error {
	cmd := exec.CommandContext(ctx, p.Name, p.Args...)
	cmd.Env = append(os.Environ(), p.Env...)
	cmd.Stderr = p.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to attach to training command: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start training command: %w", err)
	}

	var reportErr error
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if p.Stdout != nil {
			fmt.Fprintln(p.Stdout, line)
		}
		epoch, logs, ok := ParseEpochLine(line)
		if !ok {
			continue
		}
		if reportErr = report(epoch, logs); reportErr != nil {
			cmd.Process.Kill()
			break
		}
	}
	// Drain so the command is not blocked on a full pipe.
	io.Copy(io.Discard, stdout)

	waitErr := cmd.Wait()
	if reportErr != nil {
		return reportErr
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read training output: %w", err)
	}
	if waitErr != nil {
		return fmt.Errorf("training command failed: %w", waitErr)
	}
	return nil
}
