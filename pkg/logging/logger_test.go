// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := tt.level.toSlogLevel(); got != tt.want {
			t.Errorf("Level(%d).toSlogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "test",
		Quiet:   true,
	})
	logger.Info("settlement recorded", "author", "0xabc", "amount_cro", 0.01)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	filename := "test_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "settlement recorded") {
		t.Errorf("log file missing message, got: %s", data)
	}
	if !strings.Contains(string(data), `"service":"test"`) {
		t.Errorf("log file missing service attribute, got: %s", data)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "filter",
		Quiet:   true,
	})
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	filename := "filter_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if strings.Contains(string(data), "info message") {
		t.Error("info message should be filtered at LevelWarn")
	}
	if !strings.Contains(string(data), "warn message") {
		t.Error("warn message missing from log file")
	}
}

func TestLogger_Exporter(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelInfo,
		Service:  "cli",
		Quiet:    true,
		Exporter: exporter,
	})

	logger.Info("payment sent", "tx_hash", "0xdeadbeef")
	logger.Debug("filtered out")

	// Export runs asynchronously.
	deadline := time.Now().Add(time.Second)
	for len(exporter.Entries()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("exporter got %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Message != "payment sent" {
		t.Errorf("entry.Message = %q", entry.Message)
	}
	if entry.Service != "cli" {
		t.Errorf("entry.Service = %q", entry.Service)
	}
	if entry.Attrs["tx_hash"] != "0xdeadbeef" {
		t.Errorf("entry.Attrs[tx_hash] = %v", entry.Attrs["tx_hash"])
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestLogger_With(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "child",
		Quiet:   true,
	})
	child := logger.With("query_id", "q-123")
	child.Info("answer generated")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	filename := "child_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"query_id":"q-123"`) {
		t.Errorf("child attribute missing, got: %s", data)
	}
}

func TestNopExporter(t *testing.T) {
	var e NopExporter
	if err := e.Export(context.Background(), Entry{}); err != nil {
		t.Errorf("Export() = %v", err)
	}
	if err := e.Flush(context.Background()); err != nil {
		t.Errorf("Flush() = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got := expandPath("~/.cognishare/logs")
	want := filepath.Join(home, ".cognishare/logs")
	if got != want {
		t.Errorf("expandPath() = %q, want %q", got, want)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q", got)
	}
}

func TestArgsToMap(t *testing.T) {
	m := argsToMap([]any{"key1", "value1", "key2", 123, "dangling"})
	if m["key1"] != "value1" || m["key2"] != 123 {
		t.Errorf("argsToMap() = %v", m)
	}
	if _, ok := m["dangling"]; ok {
		t.Error("dangling key should be dropped")
	}
}
