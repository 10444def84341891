// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medsegkit/segprep/internal/tui"
	"github.com/medsegkit/segprep/pkg/segprep"
)

// RootOpts holds global CLI options.
type RootOpts struct {
	JSONOut bool
	Quiet   bool
	Config  string
}

// FetchOpts holds the options of the default fetch behavior.
type FetchOpts struct {
	Task       string
	Session    string
	ModelKind  string
	OutputRoot string
	Endpoint   string

	Model    bool
	Datasets bool
	Clip     bool
	All      bool
	Manual   bool

	Strict bool
}

// Execute runs the CLI with the given version string.
func Execute(version string) error {
	ro := &RootOpts{}
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	root := newRootCmd(ctx, ro, version)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func newRootCmd(ctx context.Context, ro *RootOpts, version string) *cobra.Command {
	fo := &FetchOpts{}

	root := &cobra.Command{
		Use:   "segprep",
		Short: "Fetch pretrained checkpoints and datasets for the segmentation pipeline",
		Long: `segprep places pretrained model weights and the dataset archive into the
directory layout the training/inference pipeline expects:

  <task>/<model-type>/<session>/models/best_model-<model-type>.pth.tar
  datasets/
  nets/ViT-B-32.pt

With no action flag, the pretrained model and the datasets are fetched.
Failures are reported on the console; unless --strict is set the process
always exits 0 so a batch job is never broken by a flaky mirror.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyConfigDefaults(cmd, ro, fo)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(ctx, ro, fo)
		},
	}

	// Global flags
	root.PersistentFlags().BoolVar(&ro.JSONOut, "json", false, "Emit machine-readable JSON events")
	root.PersistentFlags().BoolVarP(&ro.Quiet, "quiet", "q", false, "Quiet mode (errors and summaries only)")
	root.PersistentFlags().StringVar(&ro.Config, "config", "", "Path to config file (JSON or YAML)")

	// Value flags (consumed by the model fetcher only)
	root.Flags().StringVarP(&fo.Session, "test-session", "t", "session_09.25_00h27", "Session label for the pretrained model")
	root.Flags().StringVarP(&fo.ModelKind, "model-type", "m", "RecLMIS", "Model type name")
	root.Flags().StringVar(&fo.Task, "task", "covid19", "Task configuration: "+strings.Join(segprep.TaskNames(), "|"))
	root.Flags().StringVarP(&fo.OutputRoot, "output", "o", ".", "Directory the layout is created under")
	root.Flags().StringVar(&fo.Endpoint, "endpoint", "", "Override the cloud-drive endpoint (mirrors)")

	// Action flags
	root.Flags().BoolVar(&fo.Model, "model", false, "Fetch only the pretrained model")
	root.Flags().BoolVar(&fo.Datasets, "datasets", false, "Fetch only the dataset archive")
	root.Flags().BoolVar(&fo.Clip, "clip", false, "Fetch only the CLIP ViT-B-32 model")
	root.Flags().BoolVar(&fo.All, "all", false, "Fetch model, datasets and CLIP model")
	root.Flags().BoolVar(&fo.Manual, "manual", false, "Print manual download instructions and exit")
	root.MarkFlagsMutuallyExclusive("model", "datasets", "clip", "all", "manual")

	root.Flags().BoolVar(&fo.Strict, "strict", false, "Exit non-zero when a fetch ultimately fails")

	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newServeCmd(ro))
	root.AddCommand(newConfigCmd())
	root.SetHelpCommand(&cobra.Command{Use: "help", Hidden: true})

	return root
}

func runFetch(ctx context.Context, ro *RootOpts, fo *FetchOpts) error {
	task, err := segprep.LookupTask(fo.Task)
	if err != nil {
		return err
	}

	cfg := segprep.Settings{
		OutputRoot: fo.OutputRoot,
		Endpoint:   fo.Endpoint,
	}
	datasetDir := filepath.Join(fo.OutputRoot, "datasets")

	if fo.Manual {
		fmt.Println(segprep.ManualInstructions(segprep.DatasetFileID, "datasets.zip", datasetDir))
		return nil
	}

	// Progress mode selection
	var progress segprep.ProgressFunc
	switch {
	case ro.JSONOut:
		progress = jsonProgress(os.Stdout)
	case ro.Quiet:
		progress = quietProgress()
	default:
		ui := tui.NewRenderer()
		defer ui.Close()
		progress = ui.Handler()
	}

	modelSpec := segprep.ModelSpec{
		Task:    task.Name,
		Kind:    fo.ModelKind,
		Session: fo.Session,
		FileID:  task.ModelFileID,
	}
	datasetSpec := segprep.DatasetSpec{}

	fetchDataset := segprep.FetchDataset
	if fo.Strict {
		fetchDataset = segprep.FetchDatasetStrict
	}

	// Every step runs regardless of earlier failures; the first error is
	// kept only for --strict.
	var firstErr error
	step := func(fn func() error) {
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	sep := func() { fmt.Println("\n" + strings.Repeat("=", 50) + "\n") }

	switch {
	case fo.Model:
		step(func() error { return segprep.FetchModel(ctx, modelSpec, cfg, progress) })
	case fo.Datasets:
		step(func() error { return fetchDataset(ctx, datasetSpec, cfg, progress) })
	case fo.Clip:
		step(func() error { return segprep.FetchCLIP(ctx, cfg, progress) })
	case fo.All:
		step(func() error { return segprep.FetchModel(ctx, modelSpec, cfg, progress) })
		sep()
		step(func() error { return fetchDataset(ctx, datasetSpec, cfg, progress) })
		sep()
		step(func() error { return segprep.FetchCLIP(ctx, cfg, progress) })
	default:
		step(func() error { return segprep.FetchModel(ctx, modelSpec, cfg, progress) })
		sep()
		step(func() error { return fetchDataset(ctx, datasetSpec, cfg, progress) })
	}

	if fo.Strict {
		return firstErr
	}
	// Lenient mode: everything was already reported on the console.
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// quietProgress returns a minimal text progress handler.
func quietProgress() segprep.ProgressFunc {
	return func(ev segprep.ProgressEvent) {
		switch ev.Event {
		case "error":
			fmt.Fprintf(os.Stderr, "error: %s\n", ev.Message)
		case "manual":
			fmt.Println(ev.Message)
		case "done":
			if ev.Message != "" {
				fmt.Println(ev.Message)
			}
		}
	}
}

// jsonProgress returns a JSON-lines progress handler.
func jsonProgress(w io.Writer) segprep.ProgressFunc {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	var mu sync.Mutex
	return func(ev segprep.ProgressEvent) {
		mu.Lock()
		_ = enc.Encode(ev)
		mu.Unlock()
	}
}
