package taskflow

import (
	"log/slog"
	"sort"
)

// node mirrors one task inside a TaskGraph, including its CPM state.
type node struct {
	task *Task

	// predecessors and successors are keyed by the other task's ID; the
	// value is the governing edge. An explicit DependencyRelations entry
	// overrides a legacy entry for the same pair.
	predecessors map[string]*Dependency
	successors   map[string]*Dependency

	duration float64

	// CPM results.
	es, ef, ls, lf       float64
	totalFloat, freeFloat float64
	critical             bool
}

func (n *node) inDegree() int  { return len(n.predecessors) }
func (n *node) outDegree() int { return len(n.successors) }

// TaskGraph is the dependency graph for one orchestration call. It is private
// to that call: build it, validate it, run CPM on it, and discard it.
type TaskGraph struct {
	nodes  map[string]*node
	order  []string // task IDs in input order, for deterministic iteration
	logger *slog.Logger
}

// NewTaskGraph builds a graph from tasks. Edges come from two sources in
// order: legacy Dependencies (finish-to-start, zero lag), then explicit
// DependencyRelations, which override the legacy edge for the same pair.
// Edges referencing unknown tasks are logged and skipped, not fatal.
func NewTaskGraph(tasks []Task, logger *slog.Logger) (*TaskGraph, error) {
	if logger == nil {
		logger = nopLogger
	}
	g := &TaskGraph{
		nodes:  make(map[string]*node, len(tasks)),
		logger: logger,
	}

	for i := range tasks {
		t := &tasks[i]
		if t.ID == "" {
			return nil, &ErrValidation{Field: "id", Message: "task has empty id"}
		}
		if _, dup := g.nodes[t.ID]; dup {
			return nil, &ErrValidation{Field: "id", Message: "duplicate task id " + t.ID}
		}
		g.nodes[t.ID] = &node{
			task:         t,
			predecessors: make(map[string]*Dependency),
			successors:   make(map[string]*Dependency),
			duration:     t.Duration(),
		}
		g.order = append(g.order, t.ID)
	}

	// Legacy edges first.
	for _, id := range g.order {
		t := g.nodes[id].task
		for _, predID := range t.Dependencies {
			g.addEdge(&Dependency{
				PredecessorID: predID,
				SuccessorID:   id,
				Type:          FinishToStart,
			})
		}
	}

	// Explicit typed edges second; they override legacy entries for the
	// same predecessor/successor pair.
	for _, id := range g.order {
		t := g.nodes[id].task
		for i := range t.DependencyRelations {
			g.addEdge(&t.DependencyRelations[i])
		}
	}

	return g, nil
}

// addEdge installs one edge, skipping self-loops and unknown endpoints.
func (g *TaskGraph) addEdge(d *Dependency) {
	if d.PredecessorID == d.SuccessorID {
		g.logger.Warn("skipping self-dependency", "task", d.SuccessorID)
		return
	}
	pred, ok := g.nodes[d.PredecessorID]
	if !ok {
		g.logger.Warn("dependency references unknown predecessor",
			"task", d.SuccessorID, "predecessor", d.PredecessorID)
		return
	}
	succ, ok := g.nodes[d.SuccessorID]
	if !ok {
		g.logger.Warn("dependency references unknown successor",
			"task", d.PredecessorID, "successor", d.SuccessorID)
		return
	}
	pred.successors[d.SuccessorID] = d
	succ.predecessors[d.PredecessorID] = d
}

// Len returns the number of tasks in the graph.
func (g *TaskGraph) Len() int { return len(g.nodes) }

// Node returns the node for id, or nil.
func (g *TaskGraph) node(id string) *node { return g.nodes[id] }

// DetectCycle runs a DFS with a recursion stack and returns an ErrCycle
// naming a task on the first back edge found. Traversal order is the input
// task order so the reported task is deterministic.
func (g *TaskGraph) DetectCycle() error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the recursion stack
		black = 2 // fully explored
	)
	color := make(map[string]int, len(g.nodes))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, succID := range g.sortedSuccessors(id) {
			switch color[succID] {
			case gray:
				return &ErrCycle{TaskID: succID}
			case white:
				if err := visit(succID); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, id := range g.order {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopologicalOrder returns task IDs in a Kahn-style topological order.
// Ready nodes are dequeued in lexicographic ID order so the result does not
// depend on map iteration. Assumes DetectCycle has passed.
func (g *TaskGraph) TopologicalOrder() []string {
	remaining := make(map[string]int, len(g.nodes))
	var ready []string
	for _, id := range g.order {
		remaining[id] = g.nodes[id].inDegree()
		if remaining[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, succID := range g.sortedSuccessors(id) {
			remaining[succID]--
			if remaining[succID] == 0 {
				ready = insertSorted(ready, succID)
			}
		}
	}
	return order
}

// sortedSuccessors returns a node's successor IDs in lexicographic order.
func (g *TaskGraph) sortedSuccessors(id string) []string {
	n := g.nodes[id]
	out := make([]string, 0, len(n.successors))
	for succID := range n.successors {
		out = append(out, succID)
	}
	sort.Strings(out)
	return out
}

// sortedPredecessors returns a node's predecessor IDs in lexicographic order.
func (g *TaskGraph) sortedPredecessors(id string) []string {
	n := g.nodes[id]
	out := make([]string, 0, len(n.predecessors))
	for predID := range n.predecessors {
		out = append(out, predID)
	}
	sort.Strings(out)
	return out
}

// insertSorted inserts s into sorted slice xs, keeping it sorted.
func insertSorted(xs []string, s string) []string {
	i := sort.SearchStrings(xs, s)
	xs = append(xs, "")
	copy(xs[i+1:], xs[i:])
	xs[i] = s
	return xs
}

// PruneTransitiveEdges removes redundant finish-to-start zero-lag edges that
// are implied by a longer FS/zero-lag path. Edges with any other type or a
// non-zero lag are never touched: removing them changes CPM semantics.
func (g *TaskGraph) PruneTransitiveEdges() int {
	isPlainFS := func(d *Dependency) bool {
		return d.Type == FinishToStart && d.Lag == 0
	}

	// reachable reports whether target is reachable from start via plain FS
	// edges, excluding the direct edge start->target.
	reachable := func(start, target string) bool {
		stack := []string{}
		seen := map[string]bool{start: true}
		for succID, d := range g.nodes[start].successors {
			if succID == target || !isPlainFS(d) {
				continue
			}
			stack = append(stack, succID)
			seen[succID] = true
		}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if id == target {
				return true
			}
			for succID, d := range g.nodes[id].successors {
				if !isPlainFS(d) || seen[succID] {
					continue
				}
				seen[succID] = true
				stack = append(stack, succID)
			}
		}
		return false
	}

	removed := 0
	for _, id := range g.order {
		for _, succID := range g.sortedSuccessors(id) {
			d := g.nodes[id].successors[succID]
			if !isPlainFS(d) {
				continue
			}
			if reachable(id, succID) {
				delete(g.nodes[id].successors, succID)
				delete(g.nodes[succID].predecessors, id)
				removed++
				g.logger.Debug("pruned transitive dependency", "predecessor", id, "successor", succID)
			}
		}
	}
	return removed
}
