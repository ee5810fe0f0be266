package backend

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseHistoryFile reads history.jsonl and returns deduplicated records,
// newest first. Later entries for the same ID overwrite earlier ones
// (last-write-wins).
func ParseHistoryFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()
	return ParseHistory(f)
}

// ParseHistory is ParseHistoryFile over an arbitrary reader.
func ParseHistory(r io.Reader) ([]Record, error) {
	seen := make(map[string]int) // id → index in result
	var records []Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue // skip malformed lines
		}
		if rec.ID == "" {
			continue
		}
		if idx, ok := seen[rec.ID]; ok {
			records[idx] = rec
		} else {
			seen[rec.ID] = len(records)
			records = append(records, rec)
		}
	}

	// Reverse so newest records are first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, scanner.Err()
}

// TailFile returns the last n lines of a text file. A missing file yields
// no lines and no error.
func TailFile(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	if n <= 0 {
		return nil, nil
	}
	ring := make([]string, 0, n)
	start := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) < n {
			ring = append(ring, scanner.Text())
			continue
		}
		ring[start] = scanner.Text()
		start = (start + 1) % n
	}
	lines := append(ring[start:len(ring):len(ring)], ring[:start]...)
	return lines, scanner.Err()
}

// KeywordStats counts how often each keyword triggered a dispatch. The
// result keeps the order of keywords.
func KeywordStats(keywords []string, records []Record) []KeywordStat {
	idx := make(map[string]int, len(keywords))
	stats := make([]KeywordStat, len(keywords))
	for i, k := range keywords {
		stats[i].Keyword = k
		idx[k] = i
	}
	for _, r := range records {
		i, ok := idx[r.Keyword]
		if !ok {
			continue
		}
		stats[i].Hits++
		if t := r.Time(); t.After(stats[i].Last) {
			stats[i].Last = t
		}
	}
	return stats
}
