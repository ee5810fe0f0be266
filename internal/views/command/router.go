package command

import "strings"

// RouteKind identifies whether input is a command or text to test.
type RouteKind int

const (
	RouteDryRun  RouteKind = iota // free text → run through the detector
	RouteCommand                  // structured command
)

// Route represents a parsed command input.
type Route struct {
	Kind RouteKind
	Args []string // for commands
	Raw  string   // original input
}

// known top-level commands and their subcommands
var commandTree = map[string][]string{
	"copy":     nil,
	"status":   nil,
	"keywords": nil,
	"history":  nil,
	"log":      nil,
	"config":   {"show", "path", "reload"},
	"help":     nil,
	"version":  nil,
}

// ParseRoute decides whether input is a command or text to dry-run.
func ParseRoute(input string) Route {
	input = strings.TrimSpace(input)
	if input == "" {
		return Route{Kind: RouteDryRun, Raw: input}
	}

	parts := strings.Fields(input)
	cmd := parts[0]

	if _, ok := commandTree[cmd]; ok {
		return Route{Kind: RouteCommand, Args: parts, Raw: input}
	}

	return Route{Kind: RouteDryRun, Args: parts, Raw: input}
}
