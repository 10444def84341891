// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

/*
Package segprep fetches the pretrained checkpoints and dataset archive a
segmentation pipeline expects and lays them out on disk.

Three fetchers cover the three kinds of remote object:

  - FetchModel retrieves one task checkpoint from a cloud-drive identifier
    into <Task>/<Kind>/<Session>/models/best_model-<Kind>.pth.tar.
  - FetchDataset retrieves the shared dataset zip through an ordered
    cascade of drive transports (direct, fuzzy share-link, raw HTTP with
    interstitial bypass), validates it, and extracts it into datasets/.
  - FetchCLIP retrieves the CLIP ViT-B-32 checkpoint into nets/, skipping
    the download when the file already exists.

All fetchers report through a ProgressFunc callback and are single-shot:
no resume, no checksums, no parallelism. Failures are designed to be
console-reported rather than fatal; see FetchDataset for the lenient
exhaustion contract.

# Quick start

	cfg := segprep.Settings{OutputRoot: "."}

	task, _ := segprep.LookupTask("covid19")
	spec := segprep.ModelSpec{
		Task:    task.Name,
		Kind:    "RecLMIS",
		Session: "session_09.25_00h27",
		FileID:  task.ModelFileID,
	}

	err := segprep.FetchModel(ctx, spec, cfg, func(e segprep.ProgressEvent) {
		if e.Event == "file_done" {
			fmt.Println("saved:", e.Path)
		}
	})
*/
package segprep
