package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eventloop/internal/compiler"
	"github.com/roach88/eventloop/internal/ir"
)

// InspectResult describes a loaded graph.
type InspectResult struct {
	Module       string             `json:"module,omitempty"`
	Version      string             `json:"version,omitempty"`
	Description  string             `json:"description,omitempty"`
	InitialEvent string             `json:"initial_event"`
	Hash         string             `json:"graph_hash"`
	Flags        map[string]bool    `json:"flags"`
	SharedData   map[string]any     `json:"shared_data"`
	Events       []EventSummary     `json:"events"`
	Warnings     []compiler.Warning `json:"warnings,omitempty"`
}

// EventSummary is one event as shown by inspect.
type EventSummary struct {
	ID         string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	Timeout    float64  `json:"timeout"`
	Conditions int      `json:"conditions"`
	Actions    int      `json:"actions"`
	NextEvent  string   `json:"next_event,omitempty"`
	OnTimeout  string   `json:"on_timeout,omitempty"`
	Gotos      []string `json:"gotos,omitempty"`
	// DynamicGoto is set when a goto reads its target from shared data.
	DynamicGoto bool `json:"dynamic_goto,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <config.json>",
		Short: "Show the events and transitions of a config",
		Long: `Load a config and print its events with their timeouts, condition and
action counts and every transition they can take: next_event, on_timeout
and goto targets, including gotos nested in inline events and
conditional blocks.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, problems := loadGraph(path)
	if len(problems) > 0 {
		if problems[0].Code == ErrCodeNotFound || onlyReadFailure(problems) {
			return outputValidateError(formatter, problems[0].Code, problems[0].Message, nil)
		}
		return outputValidationErrors(formatter, problems)
	}

	result := inspectGraph(loaded.Graph)
	result.Warnings = loaded.Warnings

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	writeInspect(formatter, result)
	return nil
}

func inspectGraph(g *ir.Graph) InspectResult {
	result := InspectResult{
		Module:       g.ModuleName(),
		Version:      g.Version(),
		Description:  g.Description(),
		InitialEvent: g.InitialEvent(),
		Hash:         g.Hash(),
		Flags:        g.InitialFlags(),
		SharedData:   g.InitialSharedData(),
	}
	for _, ev := range g.Events() {
		gotos, dynamic := eventTransitions(ev)
		result.Events = append(result.Events, EventSummary{
			ID:          ev.ID,
			Name:        ev.Name,
			Timeout:     ev.Timeout.Seconds(),
			Conditions:  len(ev.Conditions),
			Actions:     len(ev.Actions),
			NextEvent:   ev.NextEvent,
			OnTimeout:   ev.OnTimeout,
			Gotos:       gotos,
			DynamicGoto: dynamic,
		})
	}
	return result
}

func writeInspect(formatter *OutputFormatter, r InspectResult) {
	w := formatter.Writer
	name := r.Module
	if name == "" {
		name = "(unnamed)"
	}
	if r.Version != "" {
		name += " " + r.Version
	}
	fmt.Fprintln(w, name)
	if r.Description != "" {
		fmt.Fprintf(w, "  %s\n", r.Description)
	}
	fmt.Fprintf(w, "  initial: %s\n", r.InitialEvent)
	fmt.Fprintf(w, "  hash:    %s\n", r.Hash)
	fmt.Fprintln(w)

	for _, ev := range r.Events {
		marker := " "
		if ev.ID == r.InitialEvent {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s  timeout=%gs conditions=%d actions=%d\n", marker, ev.ID, ev.Timeout, ev.Conditions, ev.Actions)

		var edges []string
		if ev.NextEvent != "" {
			edges = append(edges, "next -> "+ev.NextEvent)
		}
		if ev.OnTimeout != "" {
			edges = append(edges, "on_timeout -> "+ev.OnTimeout)
		}
		for _, target := range ev.Gotos {
			edges = append(edges, "goto -> "+target)
		}
		if ev.DynamicGoto {
			edges = append(edges, "goto -> (shared data)")
		}
		if len(edges) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(edges, ", "))
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w)
		writeWarnings(formatter, r.Warnings)
	}
}
