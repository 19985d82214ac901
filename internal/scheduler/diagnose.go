package scheduler

import "slices"

// Diagnosis summarizes why pending tasks may be stuck.
type Diagnosis struct {
	Pending    int
	Executable int
	// Cycles lists groups of pending tasks that depend on each other,
	// each in scheduling order.
	Cycles [][]string
	// Dangling maps a task to dependencies that are neither pending nor
	// completed.
	Dangling map[string][]string
}

// Deadlocked reports whether tasks are pending but none can run.
func (d Diagnosis) Deadlocked() bool {
	return d.Pending > 0 && d.Executable == 0
}

// Diagnose inspects the dependency graph of the pending tasks.
func (s *Scheduler) Diagnose() Diagnosis {
	d := Diagnosis{
		Pending:  len(s.pending),
		Dangling: make(map[string][]string),
	}

	index := make(map[string]int, len(s.pending))
	for i, e := range s.pending {
		index[e.task.Name] = i
	}
	for _, e := range s.pending {
		if s.IsExecutable(e.task) {
			d.Executable++
		}
		for _, dep := range e.task.Dependencies {
			if _, done := s.completed[dep]; done {
				continue
			}
			if _, ok := index[dep]; !ok {
				d.Dangling[e.task.Name] = append(d.Dangling[e.task.Name], dep)
			}
		}
	}

	d.Cycles = s.cycles(index)
	return d
}

// cycles finds strongly connected components of the pending dependency
// graph that contain a cycle.
func (s *Scheduler) cycles(index map[string]int) [][]string {
	n := len(s.pending)
	var (
		counter int
		order   = make([]int, n)
		low     = make([]int, n)
		visited = make([]bool, n)
		onStack = make([]bool, n)
		stack   []int
		out     [][]string
	)

	edges := func(v int) []int {
		var to []int
		for _, dep := range s.pending[v].task.Dependencies {
			if w, ok := index[dep]; ok {
				to = append(to, w)
			}
		}
		return to
	}

	var visit func(v int)
	visit = func(v int) {
		visited[v] = true
		order[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		selfLoop := false
		for _, w := range edges(v) {
			if w == v {
				selfLoop = true
			}
			if !visited[w] {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], order[w])
			}
		}

		if low[v] != order[v] {
			return
		}
		var members []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			members = append(members, w)
			if w == v {
				break
			}
		}
		if len(members) > 1 || selfLoop {
			slices.Sort(members)
			names := make([]string, len(members))
			for i, m := range members {
				names[i] = s.pending[m].task.Name
			}
			out = append(out, names)
		}
	}

	for v := 0; v < n; v++ {
		if !visited[v] {
			visit(v)
		}
	}
	slices.SortFunc(out, func(a, b []string) int {
		return index[a[0]] - index[b[0]]
	})
	return out
}
