package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bililive-go/toffeelive-go/src/emitter"
	"github.com/bililive-go/toffeelive-go/src/live"
	"github.com/bililive-go/toffeelive-go/src/scraper"
)

// printSummary 打印本次运行的结果
func printSummary(out io.Writer, res *scraper.Result, w *emitter.Writer, writeErr error) {
	if len(res.Channels) == 0 {
		if res.DirectoryErr != nil {
			fmt.Fprintf(out, "\nNo channels found: channel directory unavailable (%v)\n", res.DirectoryErr)
		} else {
			fmt.Fprintln(out, "\nNo channels found.")
		}
	} else {
		fmt.Fprintf(out, "\nSuccessfully scraped %d channels (%s)\n", len(res.Channels), res.Strategy)
	}
	if res.Credential.IsZero() {
		fmt.Fprintln(out, "Warning: no Edge-Cache-Cookie acquired, playlist entries carry no cookie")
	}
	if len(res.Unresolved) > 0 {
		fmt.Fprintf(out, "Unresolved channels: %d\n", len(res.Unresolved))
		for _, ref := range res.Unresolved {
			fmt.Fprintf(out, "  - %s (%s)\n", ref.Name, ref.PageURL)
		}
	}
	for _, path := range []string{w.ChannelsFile, w.PlaylistFile} {
		if failed(writeErr, path) {
			fmt.Fprintf(out, "Failed to save %s\n", path)
		} else {
			fmt.Fprintf(out, "Saved %s\n", path)
		}
	}

	if len(res.Channels) == 0 {
		return
	}
	fmt.Fprintln(out, "\n=== TOFFEE CHANNELS ===")
	for _, ch := range res.Channels {
		fmt.Fprintln(out, strings.Repeat("-", 50))
		fmt.Fprintf(out, "Name: %s\n", ch.Name)
		fmt.Fprintf(out, "Stream URL: %s\n\n", ch.StreamURL)
	}
}

func failed(err error, path string) bool {
	if err == nil {
		return false
	}
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		var we *live.WriteError
		if errors.As(e, &we) && we.Path == path {
			return true
		}
	}
	return false
}
