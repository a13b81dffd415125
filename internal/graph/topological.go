package graph

import "errors"

var ErrCycleDetected = errors.New("cycle detected in graph")

// TopologicalSort returns every node ordered so that each appears after
// all of its dependencies. Kahn's algorithm; ties broken by ascending
// node index so the order is deterministic. Returns ErrCycleDetected when
// the edges cannot be linearized.
func (d *DAG) TopologicalSort() ([]int, error) {
	n := len(d.labels)
	dependents := make([][]int, n)
	inDegree := make([]int, n)

	for node, deps := range d.deps {
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], node)
			inDegree[node]++
		}
	}

	var queue []int
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	sorted := make([]int, 0, n)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		sorted = append(sorted, node)

		for _, dependent := range dependents[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(sorted) != n {
		return nil, ErrCycleDetected
	}

	return sorted, nil
}

// Levels groups nodes by dependency depth: level 0 holds nodes with no
// dependencies, level k holds nodes whose deepest dependency sits at
// level k-1. All nodes within one level are mutually independent and may
// be resolved concurrently.
func (d *DAG) Levels() ([][]int, error) {
	sorted, err := d.TopologicalSort()
	if err != nil {
		return nil, err
	}

	depth := make([]int, len(d.labels))
	maxDepth := 0
	for _, node := range sorted {
		level := 0
		for _, dep := range d.deps[node] {
			if depth[dep]+1 > level {
				level = depth[dep] + 1
			}
		}
		depth[node] = level
		if level > maxDepth {
			maxDepth = level
		}
	}

	levels := make([][]int, maxDepth+1)
	for _, node := range sorted {
		levels[depth[node]] = append(levels[depth[node]], node)
	}

	return levels, nil
}
