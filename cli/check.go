package cli

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fsnotify/fsnotify"

	"github.com/beanbot-go/beanbot/ledger"
	"github.com/beanbot-go/beanbot/parser"
	"github.com/beanbot-go/beanbot/telemetry"
)

type CheckCmd struct {
	File  string `help:"Ledger input filename." arg:"" type:"existingfile"`
	Fix   bool   `help:"Write freshly assigned identity tokens back to the file."`
	Watch bool   `help:"Re-run the check whenever the file changes."`
}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := telemetryContext(globals, ctx)
	defer report()

	if !cmd.Watch {
		if ok := cmd.check(runCtx, ctx); !ok {
			report()
			os.Exit(1)
		}
		return nil
	}

	return cmd.watch(runCtx, ctx)
}

// check loads the file once and reports the outcome. Returns false when
// the file failed to parse.
func (cmd *CheckCmd) check(runCtx context.Context, ctx *kong.Context) bool {
	l := ledger.New(cmd.File)
	if err := l.Load(runCtx); err != nil {
		var errList parser.ErrorList
		if stdErrors.As(err, &errList) {
			for _, parseErr := range errList {
				_, _ = fmt.Fprintln(ctx.Stderr, errorStyle.Render(parseErr.Error()))
			}
			_, _ = fmt.Fprintln(ctx.Stderr)
			printError(ctx.Stderr, fmt.Sprintf("%d parse error(s) found", len(errList)))
			return false
		}
		printError(ctx.Stderr, err.Error())
		return false
	}

	entries := l.Existing()
	if l.Dirty() {
		if cmd.Fix {
			if err := l.Save(runCtx); err != nil {
				printError(ctx.Stderr, fmt.Sprintf("failed to write identity tokens: %s", err))
				return false
			}
			printInfof(ctx.Stdout, "assigned identity tokens written to %s", cmd.File)
		} else {
			printInfof(ctx.Stdout, "some entries have no identity token yet (re-run with --fix to assign them)")
		}
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("Check passed, %d entries", len(entries)))
	return true
}

// watch re-runs the check on every write to the file until interrupted.
func (cmd *CheckCmd) watch(runCtx context.Context, ctx *kong.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(cmd.File); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cmd.File, err)
	}

	sigCtx, stop := signal.NotifyContext(runCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	printInfof(ctx.Stdout, "watching %s", cmd.File)
	cmd.check(sigCtx, ctx)

	// Editors often write files in multiple steps; debounce events.
	const debounceDelay = 100 * time.Millisecond
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-sigCtx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				// Atomic saves replace the file; re-add the watch.
				_ = watcher.Add(cmd.File)
				cmd.check(sigCtx, ctx)
			})

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("file watcher error: %v", watchErr)
		}
	}
}

// telemetryContext attaches a timing collector to the run context when
// telemetry is enabled. The returned report function is safe to call more
// than once.
func telemetryContext(globals *Globals, ctx *kong.Context) (context.Context, func()) {
	runCtx := context.Background()
	if !globals.Telemetry {
		return runCtx, func() {}
	}

	collector := telemetry.NewTimingCollector()
	runCtx = telemetry.WithCollector(runCtx, collector)

	reported := false
	return runCtx, func() {
		if reported {
			return
		}
		reported = true
		_, _ = fmt.Fprintln(ctx.Stderr)
		collector.Report(ctx.Stderr)
	}
}
