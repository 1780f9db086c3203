package main

import (
	"context"
	"fmt"
	"io"

	"borrowck/internal/driver"
	"borrowck/internal/ui"
)

type dirOutcome struct {
	results []*driver.Result
	err     error
}

// checkDirWithUI runs CheckDir in the background and draws its progress on
// out until every file is settled.
func checkDirWithUI(ctx context.Context, dir string, opts driver.Options, out io.Writer) ([]*driver.Result, error) {
	files, err := driver.ListFiles(dir, opts)
	if err != nil {
		return nil, err
	}
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan dirOutcome, 1)

	go func() {
		opts.Progress = driver.ChannelSink{Ch: events}
		results, err := driver.CheckDir(ctx, dir, opts)
		close(events)
		outcomeCh <- dirOutcome{results: results, err: err}
	}()

	if uiErr := ui.Run("borrowck "+dir, dir, files, events, out); uiErr != nil {
		// the check itself is fine; keep draining so the worker never blocks
		fmt.Fprintf(out, "borrowck: progress view failed: %v\n", uiErr)
		for range events {
		}
	}
	outcome := <-outcomeCh
	return outcome.results, outcome.err
}
