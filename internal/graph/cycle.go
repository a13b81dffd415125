package graph

type cycleDetector struct {
	dag     *DAG
	index   int
	stack   []int
	onStack []bool
	indices []int
	lowlink []int
	sccs    [][]int
}

// DetectCycles returns every strongly connected component that forms a
// cycle: components with more than one node, and single nodes with a
// self-edge.
func (d *DAG) DetectCycles() [][]int {
	n := len(d.labels)
	det := &cycleDetector{
		dag:     d,
		onStack: make([]bool, n),
		indices: make([]int, n),
		lowlink: make([]int, n),
	}
	for i := range det.indices {
		det.indices[i] = -1
	}

	for i := 0; i < n; i++ {
		if det.indices[i] == -1 {
			det.strongConnect(i)
		}
	}

	var cycles [][]int
	for _, scc := range det.sccs {
		if len(scc) > 1 {
			cycles = append(cycles, scc)
			continue
		}
		node := scc[0]
		for _, dep := range d.deps[node] {
			if dep == node {
				cycles = append(cycles, scc)
				break
			}
		}
	}

	return cycles
}

func (c *cycleDetector) strongConnect(node int) {
	c.indices[node] = c.index
	c.lowlink[node] = c.index
	c.index++
	c.stack = append(c.stack, node)
	c.onStack[node] = true

	for _, dep := range c.dag.deps[node] {
		if c.indices[dep] == -1 {
			c.strongConnect(dep)
			c.lowlink[node] = min(c.lowlink[node], c.lowlink[dep])
		} else if c.onStack[dep] {
			c.lowlink[node] = min(c.lowlink[node], c.indices[dep])
		}
	}

	if c.lowlink[node] == c.indices[node] {
		var scc []int
		for {
			n := len(c.stack) - 1
			w := c.stack[n]
			c.stack = c.stack[:n]
			c.onStack[w] = false
			scc = append(scc, w)
			if w == node {
				break
			}
		}
		c.sccs = append(c.sccs, scc)
	}
}

// FindCyclePath walks depth-first from start and returns the first cycle
// it closes, including the repeated node at both ends, or nil when no
// cycle is reachable.
func (d *DAG) FindCyclePath(start int) []int {
	visited := make([]bool, len(d.labels))
	inPath := make([]bool, len(d.labels))
	path := make([]int, 0)

	var dfs func(node int) []int
	dfs = func(node int) []int {
		if inPath[node] {
			cyclePath := make([]int, 0)
			found := false
			for _, p := range path {
				if p == node {
					found = true
				}
				if found {
					cyclePath = append(cyclePath, p)
				}
			}
			cyclePath = append(cyclePath, node)
			return cyclePath
		}

		if visited[node] {
			return nil
		}

		visited[node] = true
		path = append(path, node)
		inPath[node] = true

		for _, dep := range d.deps[node] {
			if cycle := dfs(dep); cycle != nil {
				return cycle
			}
		}

		path = path[:len(path)-1]
		inPath[node] = false
		return nil
	}

	return dfs(start)
}

// CyclePath returns one representative cycle as a node path, rooted at
// the lowest-index node of the first cyclic component, or nil when the
// DAG is acyclic.
func (d *DAG) CyclePath() []int {
	cycles := d.DetectCycles()
	if len(cycles) == 0 {
		return nil
	}

	start := cycles[0][0]
	for _, n := range cycles[0] {
		if n < start {
			start = n
		}
	}

	return d.FindCyclePath(start)
}
