// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package tui renders fetch progress on an interactive terminal.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/medsegkit/segprep/pkg/segprep"
)

var (
	okLine   = color.New(color.FgGreen).SprintFunc()
	warnLine = color.New(color.FgYellow).SprintFunc()
	errLine  = color.New(color.FgRed).SprintFunc()
)

// Renderer turns progress events into status lines plus a byte-progress
// bar for the file currently streaming. Fetches are sequential, so a
// single bar at a time is all that's ever needed.
type Renderer struct {
	interactive bool
	bar         *pb.ProgressBar
	plainDirty  bool // a plain-text progress line is pending a newline
}

// NewRenderer creates a renderer. The progress bar is only used when
// stdout is a terminal; otherwise only status lines are printed.
func NewRenderer() *Renderer {
	return &Renderer{
		interactive: term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == "",
	}
}

// Handler returns the ProgressFunc to pass into the fetchers.
func (r *Renderer) Handler() segprep.ProgressFunc {
	return func(ev segprep.ProgressEvent) {
		switch ev.Event {
		case "fetch_start":
			fmt.Printf("Downloading to: %s\n", ev.Path)
		case "stage_start":
			fmt.Printf("  trying %s ...\n", ev.Stage)
		case "stage_failed":
			r.finishBar()
			fmt.Println(warnLine("  " + ev.Message))
		case "file_progress":
			r.update(ev)
		case "file_done":
			r.finishBar()
			if strings.HasPrefix(ev.Message, "skip") {
				fmt.Println(okLine(fmt.Sprintf("✓ %s already present, %s", ev.Path, ev.Message)))
			} else {
				fmt.Println(okLine("✓ saved " + ev.Path))
			}
		case "extracted":
			fmt.Printf("Extracted contents: [%s]\n", ev.Message)
		case "manual":
			r.finishBar()
			fmt.Println(warnLine(ev.Message))
		case "error":
			r.finishBar()
			fmt.Println(errLine("✗ " + ev.Message))
		case "done":
			r.finishBar()
			if ev.Message != "" {
				fmt.Println(ev.Message)
			}
		}
	}
}

// Close finishes any bar still running.
func (r *Renderer) Close() {
	r.finishBar()
}

func (r *Renderer) update(ev segprep.ProgressEvent) {
	if !r.interactive {
		// Periodic plain-text percentage for logs and dumb terminals.
		if ev.Total > 0 {
			fmt.Printf("\r  %3.0f%% of %s", float64(ev.Downloaded)/float64(ev.Total)*100, humanTotal(ev.Total))
			r.plainDirty = true
		}
		return
	}
	if r.bar == nil {
		total := ev.Total
		if total <= 0 {
			total = ev.Downloaded
		}
		r.bar = pb.New64(total)
		r.bar.Set(pb.Bytes, true)
		r.bar.SetWriter(os.Stdout)
		r.bar.Start()
	}
	if ev.Total > 0 && r.bar.Total() != ev.Total {
		r.bar.SetTotal(ev.Total)
	} else if ev.Total <= 0 && ev.Downloaded > r.bar.Total() {
		r.bar.SetTotal(ev.Downloaded)
	}
	r.bar.SetCurrent(ev.Downloaded)
}

func (r *Renderer) finishBar() {
	if r.bar != nil {
		r.bar.Finish()
		r.bar = nil
	}
	if r.plainDirty {
		fmt.Println()
		r.plainDirty = false
	}
}

func humanTotal(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for n/div >= unit && exp < 6 {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
