/*
Copyright © 2023 Jeff Berkowitz (pdxjjb@gmail.com)

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package runner launches external tools and reports their exit status.
//
// Commands are argument lists, never shell text. A test name containing
// spaces or quotes reaches the tool as a single argument and no shell is
// ever involved.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Command is one invocation of an external tool.
type Command struct {
	Path string   // program name or path, looked up in PATH
	Args []string // arguments, not including Path
	Dir  string   // working directory; empty means the current one
	Env  []string // KEY=value pairs added to the inherited environment
}

// String renders the command the way a user would type it. The result is
// for display only.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Path))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=+,@%", r)
}

// Executor runs a command to completion. The returned code is the
// process exit status. A non-nil error means the process could not be
// run at all, and the code is then -1.
type Executor interface {
	Execute(ctx context.Context, c Command) (int, error)
}

// Exec runs commands as child processes, streaming their output.
type Exec struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// NewExec returns an Exec wired to the given streams.
func NewExec(stdin io.Reader, stdout, stderr io.Writer, logger *zap.Logger) *Exec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{Stdin: stdin, Stdout: stdout, Stderr: stderr, Logger: logger}
}

// Execute starts c and blocks until it exits.
func (e *Exec) Execute(ctx context.Context, c Command) (int, error) {
	if c.Path == "" {
		return -1, errors.New("runner: empty command path")
	}
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	log := e.logger().With(zap.String("path", c.Path), zap.Strings("args", c.Args))
	log.Debug("starting process", zap.String("dir", c.Dir))

	if err := cmd.Start(); err != nil {
		log.Debug("start failed", zap.Error(err))
		return -1, fmt.Errorf("runner: start %s: %w", c.Path, err)
	}
	err := cmd.Wait()
	if err == nil {
		log.Debug("process exited", zap.Int("code", 0))
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// killed by a signal; never report that as success
			code = 1
		}
		log.Debug("process exited", zap.Int("code", code), zap.String("state", exitErr.String()))
		return code, nil
	}
	return -1, fmt.Errorf("runner: wait %s: %w", c.Path, err)
}

func (e *Exec) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// DryRun prints each command instead of running it and reports success.
type DryRun struct {
	Out io.Writer
}

func (d DryRun) Execute(_ context.Context, c Command) (int, error) {
	if d.Out != nil {
		fmt.Fprintf(d.Out, "(dry run) %s\n", c)
	}
	return 0, nil
}
