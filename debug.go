package loom

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type GraphInfo struct {
	Target string
	Nodes  []NodeInfo
}

type NodeInfo struct {
	Index        int
	Provider     string
	Param        string
	Cached       bool
	Isolated     bool
	Dependencies []string
	Dependents   []string
}

// Info snapshots the graph for inspection: one entry per node in arena
// order, the target first.
func (g *Graph) Info() GraphInfo {
	nodes := make([]NodeInfo, 0, len(g.arena))

	for idx, n := range g.arena {
		_, isolated := g.isolated[idx]
		nodes = append(
			nodes, NodeInfo{
				Index:        idx,
				Provider:     n.provider.Name(),
				Param:        n.paramName,
				Cached:       n.useCache,
				Isolated:     isolated,
				Dependencies: g.providerNames(g.dag.Dependencies(idx)),
				Dependents:   g.providerNames(g.dag.Dependents(idx)),
			},
		)
	}

	return GraphInfo{Target: g.target.Name(), Nodes: nodes}
}

func (g *Graph) PrintGraph() {
	g.FprintGraph(os.Stdout)
}

func (g *Graph) FprintGraph(w io.Writer) {
	info := g.Info()

	if len(info.Nodes) <= 1 {
		_, _ = fmt.Fprintf(w, "%s (no dependencies)\n", info.Target)
		return
	}

	for _, n := range info.Nodes {
		status := "●"
		if n.Isolated {
			status = "○"
		}

		if len(n.Dependencies) == 0 {
			_, _ = fmt.Fprintf(w, "%s %s\n", status, n.Provider)
		} else {
			_, _ = fmt.Fprintf(w, "%s %s ← %s\n", status, n.Provider, strings.Join(n.Dependencies, ", "))
		}
	}
}

func (g *Graph) SprintGraph() string {
	var sb strings.Builder
	g.FprintGraph(&sb)
	return sb.String()
}

func (g *Graph) PrintGraphDOT() {
	g.FprintGraphDOT(os.Stdout)
}

func (g *Graph) FprintGraphDOT(w io.Writer) {
	info := g.Info()

	_, _ = fmt.Fprintln(w, "digraph dependencies {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, n := range info.Nodes {
		label := escapeLabel(n.Provider)
		style := ""
		switch {
		case n.Index == 0:
			style = ", style=filled, fillcolor=lightblue"
		case n.Isolated:
			style = ", style=dashed"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", dotID(n), label, style)
	}

	_, _ = fmt.Fprintln(w)

	for _, n := range info.Nodes {
		for _, dep := range g.dag.Dependencies(n.Index) {
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", dotID(n), dotID(info.Nodes[dep]))
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (g *Graph) SprintGraphDOT() string {
	var sb strings.Builder
	g.FprintGraphDOT(&sb)
	return sb.String()
}

// dotID keeps nodes with the same provider distinct in DOT output.
func dotID(n NodeInfo) string {
	return fmt.Sprintf("n%d_%s", n.Index, escapeLabel(n.Provider))
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	return s
}
