// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import (
	"fmt"
	"sort"
	"strings"
)

// TaskConfig is the collaborator interface a task configuration supplies:
// a display name used to build the model directory path and the remote
// identifier of its pretrained checkpoint. Both are treated as opaque
// strings beyond path/URL formatting.
type TaskConfig struct {
	// Name is the task name used as the top-level model directory.
	Name string

	// ModelFileID is the cloud-drive identifier of the checkpoint.
	// May be empty when no public identifier has been published yet;
	// fetching such a task reports the gap instead of issuing a request.
	ModelFileID string
}

// DatasetFileID is the cloud-drive identifier of the shared dataset
// archive. All tasks draw from the same archive.
const DatasetFileID = "10q_sGJIbdggqy6HB61FSuIs5g1X7ccDc"

// tasks maps the lowercase task key to its configuration.
// The mosmedplus checkpoint has no published identifier yet; the entry
// stays so the task name resolves, and the model fetch reports the gap.
var tasks = map[string]TaskConfig{
	"covid19": {
		Name:        "Covid19",
		ModelFileID: "1SEj361mYZqAZ2fYJfFquMVxjv3d6RqKm",
	},
	"mosmedplus": {
		Name:        "MosMedPlus",
		ModelFileID: "",
	},
}

// LookupTask resolves a task key (case-insensitive) to its configuration.
func LookupTask(key string) (TaskConfig, error) {
	cfg, ok := tasks[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return TaskConfig{}, fmt.Errorf("unknown task %q (available: %s)", key, strings.Join(TaskNames(), ", "))
	}
	return cfg, nil
}

// TaskNames returns the available task keys, sorted.
func TaskNames() []string {
	names := make([]string, 0, len(tasks))
	for k := range tasks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
