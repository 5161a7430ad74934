package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/san-kum/simbridge/internal/bridge"
	"github.com/san-kum/simbridge/internal/logging"
	"github.com/sirupsen/logrus"
)

var (
	ErrBusy    = errors.New("script: a script is already running")
	ErrStopped = errors.New("script: stopped")
)

// Fault is a script that threw or failed to compile. Message is the last
// line of the interpreter's diagnostic.
type Fault struct {
	Script  string
	Message string
	Err     error
}

func (f *Fault) Error() string { return fmt.Sprintf("%s: %s", f.Script, f.Message) }
func (f *Fault) Unwrap() error { return f.Err }

// Runner executes one script at a time in a fresh interpreter with the
// bridge table installed. Scripts run on their own goroutine and can be
// interrupted between any two instructions.
type Runner struct {
	table *bridge.Table
	out   io.Writer
	log   logrus.FieldLogger

	mu   sync.Mutex
	vm   *goja.Runtime
	stop chan struct{}
	done chan struct{}
	err  error
}

func NewRunner(table *bridge.Table, out io.Writer, log logrus.FieldLogger) *Runner {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{table: table, out: out, log: log}
}

// Start launches code and returns immediately.
func (r *Runner) Start(ctx context.Context, name, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		select {
		case <-r.done:
		default:
			return ErrBusy
		}
	}
	vm := goja.New()
	stop := make(chan struct{})
	done := make(chan struct{})
	r.vm, r.stop, r.done, r.err = vm, stop, done, nil

	go func() {
		start := time.Now()
		err := r.exec(ctx, vm, stop, name, code)
		r.log.WithFields(logrus.Fields{
			"script":  name,
			"elapsed": time.Since(start).Round(time.Millisecond),
			"error":   err,
		}).Debug("script finished")

		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		close(done)
	}()
	return nil
}

// Wait blocks until the current script ends and returns its result.
func (r *Runner) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Run executes code to completion.
func (r *Runner) Run(ctx context.Context, name, code string) error {
	if err := r.Start(ctx, name, code); err != nil {
		return err
	}
	return r.Wait()
}

// Running reports whether a script is executing.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Stop aborts the running script. Bridge calls already in progress
// complete; nothing after them runs.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm == nil || r.done == nil {
		return
	}
	select {
	case <-r.done:
		return
	case <-r.stop:
		return
	default:
	}
	close(r.stop)
	r.vm.Interrupt(ErrStopped)
}

func (r *Runner) exec(ctx context.Context, vm *goja.Runtime, stop chan struct{}, name, code string) error {
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-finished:
		}
	}()

	err := r.install(ctx, vm, stop)
	if err == nil {
		_, err = vm.RunScript(name, code)
	}
	if err == nil {
		return nil
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		fmt.Fprintln(r.out, "Script stopped")
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
		return ErrStopped
	}

	msg := err.Error()
	var ex *goja.Exception
	if errors.As(err, &ex) {
		msg = ex.Value().String()
	}
	msg = lastLine(msg)
	fmt.Fprintln(r.out, msg)
	return &Fault{Script: name, Message: msg, Err: err}
}

func (r *Runner) install(ctx context.Context, vm *goja.Runtime, stop chan struct{}) error {
	if r.table != nil {
		if err := r.table.Register(vm); err != nil {
			return err
		}
	}

	echo := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		fmt.Fprintln(r.out, strings.Join(parts, " "))
		return goja.Undefined()
	}
	if err := vm.Set("print", echo); err != nil {
		return err
	}
	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error"} {
		if err := console.Set(level, echo); err != nil {
			return err
		}
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}

	sleep := func(ms float64) {
		if ms <= 0 {
			return
		}
		t := time.NewTimer(time.Duration(ms * float64(time.Millisecond)))
		defer t.Stop()
		select {
		case <-t.C:
		case <-stop:
		case <-ctx.Done():
		}
	}
	if err := vm.Set("sleep", sleep); err != nil {
		return err
	}

	_, err := vm.RunScript("prelude.js", prelude)
	return err
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return s
}
