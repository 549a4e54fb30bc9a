package modgraph

import (
	"container/heap"
	"fmt"
)

// DependencyEdge is a "From depends on To" relation.
type DependencyEdge struct {
	From ModuleType
	To   ModuleType
}

// DependencyEdges lists every edge among descriptors in discovery order.
func DependencyEdges(descriptors []*ModuleDescriptor) []DependencyEdge {
	var edges []DependencyEdge
	for _, d := range descriptors {
		for _, dep := range d.dependencies {
			edges = append(edges, DependencyEdge{From: d.moduleType, To: dep.moduleType})
		}
	}
	return edges
}

// BuildAndSort orders descriptors so that every module comes after its
// dependencies. Modules that become ready at the same time keep their
// relative input order, which makes the result deterministic.
//
// The root is the one exception to input order: it is held back while any
// other module is ready, so it lands as late as the graph allows. A root with
// no dependencies next to an unrelated plugin P therefore sorts as [P, root]
// even though the root was discovered first. Pass the zero ModuleType to
// sort purely by input order.
//
// A cycle fails with *CircularDependencyError; no partial order is returned.
func BuildAndSort(descriptors []*ModuleDescriptor, root ModuleType) ([]*ModuleDescriptor, error) {
	position := make(map[*ModuleDescriptor]int, len(descriptors))
	seen := make(map[string]struct{}, len(descriptors))
	for i, d := range descriptors {
		if _, dup := seen[d.moduleType.name]; dup {
			return nil, &DuplicateModuleError{Type: d.moduleType, Reason: "appears more than once in the module set"}
		}
		seen[d.moduleType.name] = struct{}{}
		position[d] = i
	}

	var rootNode *ModuleDescriptor
	if !root.IsZero() {
		for _, d := range descriptors {
			if d.moduleType.Equal(root) {
				rootNode = d
				break
			}
		}
		if rootNode == nil {
			return nil, fmt.Errorf("%w: %s", ErrRootModuleNotFound, root)
		}
	}

	inDegree := make(map[*ModuleDescriptor]int, len(descriptors))
	dependents := make(map[*ModuleDescriptor][]*ModuleDescriptor, len(descriptors))
	for _, d := range descriptors {
		for _, dep := range d.dependencies {
			if _, ok := position[dep]; !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrModuleDependencyMissing, d.moduleType, dep.moduleType)
			}
			inDegree[d]++
			dependents[dep] = append(dependents[dep], d)
		}
	}

	ready := &readyQueue{position: position}
	rootReady := false
	push := func(d *ModuleDescriptor) {
		if d == rootNode {
			rootReady = true
			return
		}
		heap.Push(ready, d)
	}
	for _, d := range descriptors {
		if inDegree[d] == 0 {
			push(d)
		}
	}

	sorted := make([]*ModuleDescriptor, 0, len(descriptors))
	for ready.Len() > 0 || rootReady {
		var next *ModuleDescriptor
		if ready.Len() > 0 {
			next = heap.Pop(ready).(*ModuleDescriptor)
		} else {
			next, rootReady = rootNode, false
		}
		sorted = append(sorted, next)
		for _, dependent := range dependents[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				push(dependent)
			}
		}
	}

	if len(sorted) < len(descriptors) {
		remaining := make(map[*ModuleDescriptor]bool)
		for _, d := range descriptors {
			if inDegree[d] > 0 {
				remaining[d] = true
			}
		}
		return nil, &CircularDependencyError{Path: findCycle(descriptors, remaining)}
	}
	return sorted, nil
}

// findCycle walks dependency edges within the remaining sub-graph, in
// discovery order, until it revisits a module on the current path. Every
// remaining module has a remaining dependency, so the walk always closes.
func findCycle(descriptors []*ModuleDescriptor, remaining map[*ModuleDescriptor]bool) []ModuleType {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[*ModuleDescriptor]int, len(remaining))
	var path []*ModuleDescriptor
	var cycle []ModuleType

	var visit func(d *ModuleDescriptor) bool
	visit = func(d *ModuleDescriptor) bool {
		state[d] = onPath
		path = append(path, d)
		for _, dep := range d.dependencies {
			if !remaining[dep] {
				continue
			}
			switch state[dep] {
			case onPath:
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				for _, p := range path[start:] {
					cycle = append(cycle, p.moduleType)
				}
				cycle = append(cycle, dep.moduleType)
				return true
			case unvisited:
				if visit(dep) {
					return true
				}
			}
		}
		state[d] = done
		path = path[:len(path)-1]
		return false
	}

	for _, d := range descriptors {
		if remaining[d] && state[d] == unvisited {
			if visit(d) {
				return cycle
			}
		}
	}
	return cycle
}

// readyQueue is a min-heap of descriptors keyed by input position.
type readyQueue struct {
	items    []*ModuleDescriptor
	position map[*ModuleDescriptor]int
}

func (q *readyQueue) Len() int { return len(q.items) }

func (q *readyQueue) Less(i, j int) bool {
	return q.position[q.items[i]] < q.position[q.items[j]]
}

func (q *readyQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *readyQueue) Push(x any) { q.items = append(q.items, x.(*ModuleDescriptor)) }

func (q *readyQueue) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items = q.items[:n-1]
	return item
}
