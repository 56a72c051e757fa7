package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestJournalAppends(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "salutobot-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	existing := "Thu Feb 20, 2025 at 11:00:00 GMT: greeted alice\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "greetings.txt"), []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}

	j, err := OpenJournal(tmpDir)
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	j.Record("Thu Feb 20, 2025 at 12:00:00 GMT: greeted bob")
	j.Record("Thu Feb 20, 2025 at 12:00:02 GMT: greeted carol")
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	loaded, err := LoadGreetings(tmpDir)
	if err != nil {
		t.Fatalf("LoadGreetings failed: %v", err)
	}
	expected := []string{
		"Thu Feb 20, 2025 at 11:00:00 GMT: greeted alice",
		"Thu Feb 20, 2025 at 12:00:00 GMT: greeted bob",
		"Thu Feb 20, 2025 at 12:00:02 GMT: greeted carol",
	}
	if len(loaded) != len(expected) {
		t.Fatalf("Expected %d entries, got %d: %v", len(expected), len(loaded), loaded)
	}
	for i := range expected {
		if loaded[i] != expected[i] {
			t.Errorf("Entry %d mismatch: expected %q, got %q", i, expected[i], loaded[i])
		}
	}
}

func TestJournalCreatesFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "salutobot-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	j, err := OpenJournal(tmpDir)
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	j.Record("first")
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// A second Close is a no-op.
	if err := j.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "greetings.txt"))
	if err != nil {
		t.Fatalf("journal not written: %v", err)
	}
	if string(data) != "first\n" {
		t.Errorf("Expected %q, got %q", "first\n", string(data))
	}
}

func TestJournalCompacts(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "salutobot-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	j, err := OpenJournal(tmpDir)
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	for i := 0; i < 2*maxEntries; i++ {
		j.Record(fmt.Sprintf("entry %d", i))
	}
	j.Record("newest")
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(tmpDir, "greetings.txt"))
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != maxEntries+1 {
		t.Errorf("Expected %d lines on disk, got %d", maxEntries+1, len(lines))
	}
	if lines[0] != fmt.Sprintf("entry %d", maxEntries) {
		t.Errorf("Oldest kept entry should be entry %d, got %q", maxEntries, lines[0])
	}
	if lines[len(lines)-1] != "newest" {
		t.Errorf("Newest entry should be last, got %q", lines[len(lines)-1])
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "greetings.txt.tmp")); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestJournalConcurrentRecord(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "salutobot-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	j, err := OpenJournal(tmpDir)
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				j.Record(fmt.Sprintf("%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	loaded, err := LoadGreetings(tmpDir)
	if err != nil {
		t.Fatalf("LoadGreetings failed: %v", err)
	}
	if len(loaded) != 100 {
		t.Errorf("Expected 100 entries, got %d", len(loaded))
	}
}

func TestLoadGreetingsMissing(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "salutobot-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	entries, err := LoadGreetings(tmpDir)
	if err != nil {
		t.Fatalf("LoadGreetings should not fail for missing file: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestFormatGreeting(t *testing.T) {
	ts := time.Date(2025, time.February, 20, 12, 0, 0, 0, time.UTC)
	got := FormatGreeting(ts, "alice")
	expected := "Thu Feb 20, 2025 at 12:00:00 GMT: greeted alice"
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestLast(t *testing.T) {
	entries := []string{"a", "b", "c"}

	if got := Last(entries, 2); len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("Last(2) = %v", got)
	}
	if got := Last(entries, 10); len(got) != 3 {
		t.Errorf("Last(10) should return all entries, got %v", got)
	}
	if got := Last(entries, 0); len(got) != 0 {
		t.Errorf("Last(0) should be empty, got %v", got)
	}
}
