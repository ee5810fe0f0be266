package command

import (
	"sort"
	"strings"
)

// Candidate is a completion option with a description.
type Candidate struct {
	Value string // the text to insert
	Desc  string // short description
}

// Completer provides live completion for the command line.
type Completer struct {
	recordIDs  []string
	recordDesc map[string]string
}

// NewCompleter creates a completer.
func NewCompleter() *Completer {
	return &Completer{recordDesc: make(map[string]string)}
}

// SetRecords updates the available history short IDs. desc maps an ID to
// the text shown next to it.
func (c *Completer) SetRecords(ids []string, desc map[string]string) {
	c.recordIDs = ids
	c.recordDesc = desc
}

// command tree with descriptions
type cmdEntry struct {
	subs []subEntry
	desc string
	// takesID means the first argument is a history ID.
	takesID bool
}

type subEntry struct {
	name string
	desc string
}

var commands = map[string]cmdEntry{
	"copy":     {desc: "Copy a code from history", takesID: true},
	"status":   {desc: "Show daemon status"},
	"keywords": {desc: "Show trigger keywords"},
	"history":  {desc: "Show dispatch history"},
	"log":      {desc: "Open the daemon log"},
	"config": {desc: "Configuration", subs: []subEntry{
		{"show", "Show effective config"},
		{"path", "Show config file path"},
		{"reload", "Re-read config file"},
	}},
	"help":    {desc: "Show help"},
	"version": {desc: "Show version"},
}

// Complete returns candidates for the current input. Text that is not a
// command gets no candidates; it is dry-run on enter.
func (c *Completer) Complete(input string) []Candidate {
	parts := strings.Fields(input)
	trailing := strings.HasSuffix(input, " ")

	// No input yet or partial first word — show top-level commands.
	if len(parts) == 0 || (len(parts) == 1 && !trailing) {
		prefix := ""
		if len(parts) == 1 {
			prefix = parts[0]
		}
		return c.topLevelCandidates(prefix)
	}

	cmd := parts[0]
	entry, ok := commands[cmd]
	if !ok {
		return nil
	}

	// First argument.
	if (len(parts) == 1 && trailing) || (len(parts) == 2 && !trailing) {
		prefix := ""
		if len(parts) == 2 {
			prefix = parts[1]
		}
		if entry.takesID {
			return c.recordCandidates(prefix)
		}
		return subCandidates(entry.subs, prefix)
	}

	return nil
}

func (c *Completer) topLevelCandidates(prefix string) []Candidate {
	// Sorted keys.
	keys := make([]string, 0, len(commands))
	for k := range commands {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result []Candidate
	for _, k := range keys {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			result = append(result, Candidate{Value: k, Desc: commands[k].desc})
		}
	}
	return result
}

func subCandidates(subs []subEntry, prefix string) []Candidate {
	var result []Candidate
	for _, s := range subs {
		if prefix == "" || strings.HasPrefix(s.name, prefix) {
			result = append(result, Candidate{Value: s.name, Desc: s.desc})
		}
	}
	return result
}

func (c *Completer) recordCandidates(prefix string) []Candidate {
	var result []Candidate
	for _, id := range c.recordIDs {
		if prefix == "" || strings.HasPrefix(id, prefix) {
			result = append(result, Candidate{Value: id, Desc: c.recordDesc[id]})
		}
	}
	return result
}
