// Package graph implements the index-arena dependency DAG: nodes are
// integers handed out by AddNode, edges point from a node to the nodes it
// depends on. A DAG is populated by a single goroutine during graph
// construction and is read-only afterwards, so reads need no locking.
package graph

type DAG struct {
	labels []string
	deps   [][]int
}

func New() *DAG {
	return &DAG{}
}

// AddNode registers a node and returns its index. The label is used only
// in diagnostics (cycle paths, debug output).
func (d *DAG) AddNode(label string) int {
	d.labels = append(d.labels, label)
	d.deps = append(d.deps, nil)
	return len(d.labels) - 1
}

// AddEdge records that node depends on dep. Self-edges are legal here;
// they surface as cycles during topological sorting.
func (d *DAG) AddEdge(node, dep int) {
	d.deps[node] = append(d.deps[node], dep)
}

func (d *DAG) Len() int {
	return len(d.labels)
}

func (d *DAG) Label(i int) string {
	return d.labels[i]
}

func (d *DAG) Dependencies(i int) []int {
	return d.deps[i]
}

// Dependents returns the nodes that declare a dependency on i.
func (d *DAG) Dependents(i int) []int {
	var out []int
	for node, deps := range d.deps {
		for _, dep := range deps {
			if dep == i {
				out = append(out, node)
				break
			}
		}
	}
	return out
}
