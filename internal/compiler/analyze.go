package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/eventloop/internal/ir"
)

// Warning kinds.
const (
	WarnCycle       = "cycle"
	WarnUnreachable = "unreachable"
)

// Warning is a static analysis finding. Warnings never fail a load.
//
// Cycles are common and often intentional in automation graphs:
//   - polling loops that route on_timeout back to a recovery event
//   - menus that return to a hub event
//
// The runner's step limit is what bounds them at run time.
type Warning struct {
	Kind    string   `json:"kind"`
	Path    []string `json:"path"`    // cycle path ["a", "b", "a"] or the unreachable event
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// Analyze reports transition cycles and events that cannot be reached from
// the initial event.
//
// Edges are next_event, on_timeout and literal goto targets, including gotos
// nested in inline events and conditional blocks. A goto with from_shared can
// target any event, so when one is present unreachable events are reported
// at info level only.
func Analyze(g *ir.Graph) []Warning {
	graph, dynamic := buildTransitionGraph(g)

	var warnings []Warning
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return append(warnings, unreachable(g, graph, dynamic)...)
}

// transitionGraph maps event id to the ids it may transition to, in
// declaration order. nodes keeps the event declaration order.
type transitionGraph struct {
	nodes []string
	edges map[string][]string
}

func buildTransitionGraph(g *ir.Graph) (transitionGraph, bool) {
	tg := transitionGraph{edges: make(map[string][]string)}
	dynamic := false

	for _, ev := range g.Events() {
		tg.nodes = append(tg.nodes, ev.ID)
		var out []string
		add := func(id string) {
			if id != "" && !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
		ir.WalkActions(ev.Actions, func(a ir.Action) bool {
			if gt, ok := a.(ir.GotoAction); ok {
				add(gt.EventID)
				if gt.FromShared != "" {
					dynamic = true
				}
			}
			return true
		})
		add(ev.NextEvent)
		add(ev.OnTimeout)
		tg.edges[ev.ID] = out
	}
	return tg, dynamic
}

func hasSelfLoop(node string, graph transitionGraph) bool {
	return slices.Contains(graph.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in declaration order so results are deterministic.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph transitionGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// Root node: pop the stack into an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			// Report members in declaration order
			slices.SortFunc(scc, func(a, b string) int {
				return slices.Index(graph.nodes, a) - slices.Index(graph.nodes, b)
			})
			sccs = append(sccs, scc)
		}
	}

	for _, node := range graph.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func cycleSCCToWarning(scc []string, graph transitionGraph) Warning {
	if len(scc) == 1 {
		id := scc[0]
		return Warning{
			Kind:    WarnCycle,
			Path:    []string{id, id},
			Message: fmt.Sprintf("event transitions to itself: %s → %s", id, id),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return Warning{
		Kind:    WarnCycle,
		Path:    path,
		Message: fmt.Sprintf("transition cycle: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns to the start or runs out of unvisited members.
func reconstructCyclePath(scc []string, graph transitionGraph) []string {
	inSCC := make(map[string]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph.edges[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}

// unreachable reports events no transition path from the initial event
// reaches.
func unreachable(g *ir.Graph, graph transitionGraph, dynamic bool) []Warning {
	seen := map[string]bool{g.InitialEvent(): true}
	queue := []string{g.InitialEvent()}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range graph.edges[id] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	level := "warning"
	if dynamic {
		level = "info"
	}

	var warnings []Warning
	for _, id := range graph.nodes {
		if seen[id] {
			continue
		}
		msg := fmt.Sprintf("event %q is not reachable from initial event %q", id, g.InitialEvent())
		if dynamic {
			msg += " (unless targeted by a from_shared goto)"
		}
		warnings = append(warnings, Warning{
			Kind:    WarnUnreachable,
			Path:    []string{id},
			Message: msg,
			Level:   level,
		})
	}
	return warnings
}
