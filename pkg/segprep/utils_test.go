// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import "testing"

func TestHumanBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{338379281, "322.7 MiB"},
		{1073741824, "1.0 GiB"},
	}
	for _, c := range cases {
		if got := humanBytes(c.in); got != c.want {
			t.Errorf("humanBytes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDefaultString(t *testing.T) {
	if got := defaultString("", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	if got := defaultString("set", "fallback"); got != "set" {
		t.Errorf("got %q", got)
	}
}

func TestShareURL(t *testing.T) {
	const id = "10q_sGJIbdggqy6HB61FSuIs5g1X7ccDc"
	want := "https://drive.google.com/drive/folders/" + id
	if got := ShareURL(id); got != want {
		t.Errorf("ShareURL = %q, want %q", got, want)
	}
	// A full link collapses to the same folder URL.
	if got := ShareURL("https://drive.google.com/drive/folders/" + id + "?usp=sharing"); got != want {
		t.Errorf("ShareURL(link) = %q, want %q", got, want)
	}
}

func TestSettingsWithDefaults(t *testing.T) {
	cfg := Settings{}.withDefaults()
	if cfg.OutputRoot != "." {
		t.Errorf("OutputRoot = %q", cfg.OutputRoot)
	}
	if cfg.DatasetsDir != "datasets" || cfg.NetsDir != "nets" {
		t.Errorf("dirs = %q, %q", cfg.DatasetsDir, cfg.NetsDir)
	}
	if cfg.Endpoint != DefaultDriveEndpoint {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.ClipURL != DefaultClipURL {
		t.Errorf("ClipURL = %q", cfg.ClipURL)
	}
	if cfg.ChunkSize <= 0 {
		t.Errorf("ChunkSize = %d", cfg.ChunkSize)
	}

	custom := Settings{OutputRoot: "/data", Endpoint: "http://mirror"}.withDefaults()
	if custom.OutputRoot != "/data" || custom.Endpoint != "http://mirror" {
		t.Errorf("explicit values overridden: %+v", custom)
	}
}
