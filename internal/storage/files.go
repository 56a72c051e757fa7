package storage

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	maxEntries  = 500
	journalFile = "greetings.txt"
	backlog     = 256
)

// LoadGreetings reads the greeting journal, oldest entry first.
// A missing journal is not an error.
func LoadGreetings(dataDir string) ([]string, error) {
	lines, err := readLines(filepath.Join(dataDir, journalFile))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	return lines, err
}

// FormatGreeting builds the journal line for a greeting sent to nick at t.
func FormatGreeting(t time.Time, nick string) string {
	return fmt.Sprintf("%s: greeted %s", t.UTC().Format("Mon Jan 02, 2006 at 15:04:05 GMT"), nick)
}

// Last returns at most n of the newest entries, oldest first.
func Last(entries []string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries
}

// Journal appends greeting entries to data_dir/greetings.txt from a
// background writer, so Record never waits on the disk. The file is
// compacted to the newest 500 entries once it holds twice that many.
type Journal struct {
	path    string
	file    *os.File
	lines   int
	entries chan string
	wg      sync.WaitGroup

	closeOnce sync.Once
}

// OpenJournal opens (or creates) the journal in dataDir and starts its
// writer.
func OpenJournal(dataDir string) (*Journal, error) {
	path := filepath.Join(dataDir, journalFile)
	existing, err := readLines(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}

	j := &Journal{
		path:    path,
		file:    file,
		lines:   len(existing),
		entries: make(chan string, backlog),
	}
	j.wg.Add(1)
	go j.run()
	return j, nil
}

// Record queues entry for writing. It blocks only when the writer is more
// than a full backlog behind.
func (j *Journal) Record(entry string) {
	j.entries <- entry
}

// Close flushes pending entries and closes the file.
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		close(j.entries)
		j.wg.Wait()
		err = j.file.Close()
	})
	return err
}

func (j *Journal) run() {
	defer j.wg.Done()
	for entry := range j.entries {
		if err := j.append(entry); err != nil {
			log.Printf("Error writing greeting journal: %v", err)
		}
	}
}

func (j *Journal) append(entry string) error {
	if _, err := j.file.WriteString(entry + "\n"); err != nil {
		return err
	}
	j.lines++
	if j.lines < 2*maxEntries {
		return nil
	}
	return j.compact()
}

// compact rewrites the journal with only the newest maxEntries lines.
func (j *Journal) compact() error {
	if err := j.file.Close(); err != nil {
		return err
	}
	lines, err := readLines(j.path)
	if err != nil {
		return err
	}
	lines = Last(lines, maxEntries)

	tmp := j.path + ".tmp"
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(tmp, []byte(data), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return err
	}

	j.file, err = openAppend(j.path)
	if err != nil {
		return err
	}
	j.lines = len(lines)
	return nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// readLines returns the non-empty lines of path.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines := []string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
