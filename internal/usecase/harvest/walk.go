package harvest

import "slices"

// frame is a pending collection and the ancestors above it.
type frame struct {
	pid  string
	path []string
}

// walkState is the explicit depth-first work-list and visited set of a collection walk.
type walkState struct {
	stack   []frame
	visited map[string]struct{}
}

func newWalkState(root string) *walkState {
	st := &walkState{visited: map[string]struct{}{root: {}}}
	st.stack = append(st.stack, frame{pid: root})
	return st
}

// visit marks pid as seen. It returns false when pid was already visited.
func (st *walkState) visit(pid string) bool {
	if _, ok := st.visited[pid]; ok {
		return false
	}
	st.visited[pid] = struct{}{}
	return true
}

func (st *walkState) seen(pid string) bool {
	_, ok := st.visited[pid]
	return ok
}

// push schedules collections so that they pop in the given order.
func (st *walkState) push(path []string, pids ...string) {
	for i := len(pids) - 1; i >= 0; i-- {
		st.stack = append(st.stack, frame{pid: pids[i], path: slices.Clone(path)})
	}
}

func (st *walkState) pop() (frame, bool) {
	if len(st.stack) == 0 {
		return frame{}, false
	}
	f := st.stack[len(st.stack)-1]
	st.stack = st.stack[:len(st.stack)-1]
	return f, true
}

// childPath is the inCollections value of objects directly under f.
func (f frame) childPath() []string {
	out := make([]string, 0, len(f.path)+1)
	out = append(out, f.path...)
	return append(out, f.pid)
}
