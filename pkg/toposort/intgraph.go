// Package toposort provides topological sorting for directed acyclic graphs.
package toposort

import (
	"slices"
	"sort"
)

// IntGraph represents a directed acyclic graph using integer IDs.
// It is optimized for performance and memory usage.
type IntGraph struct {
	// Nodes is an adjacency list where nodes[u] contains a list of v for edges u -> v.
	nodes [][]int
	// InDegree stores the number of incoming edges for each node.
	inDegree []int
	// NodeCount tracks the number of active nodes.
	nodeCount int
}

// NewIntGraph creates a new IntGraph.
func NewIntGraph() *IntGraph {
	return &IntGraph{
		nodes:     make([][]int, 0),
		inDegree:  make([]int, 0),
		nodeCount: 0,
	}
}

// EnsureCapacity ensures the graph can hold at least `n` nodes.
func (graph *IntGraph) EnsureCapacity(nodeCapacity int) {
	if nodeCapacity > len(graph.nodes) {
		newNodes := make([][]int, nodeCapacity)
		copy(newNodes, graph.nodes)
		graph.nodes = newNodes

		newInDegree := make([]int, nodeCapacity)
		copy(newInDegree, graph.inDegree)
		graph.inDegree = newInDegree
	}
}

// AddNode adds a node with the given ID.
// Returns true if the node was added (newly tracked capacity), false otherwise.
func (graph *IntGraph) AddNode(id int) bool {
	if id >= len(graph.nodes) {
		graph.EnsureCapacity(id + 1)
		graph.nodeCount = id + 1

		return true
	}

	return false
}

// AddEdge adds a directed edge from src to dst.
// Returns true if the edge was added, false if it already existed.
func (graph *IntGraph) AddEdge(src, dst int) bool {
	graph.EnsureCapacity(max(src, dst) + 1)

	// Check if edge already exists.
	if slices.Contains(graph.nodes[src], dst) {
		return false
	}

	graph.nodes[src] = append(graph.nodes[src], dst)
	graph.inDegree[dst]++

	return true
}

// RemoveEdge removes the edge from src to dst.
func (graph *IntGraph) RemoveEdge(src, dst int) bool {
	if src >= len(graph.nodes) || dst >= len(graph.nodes) {
		return false
	}

	for idx, neighbor := range graph.nodes[src] {
		if neighbor == dst {
			// Remove dst from src's adjacency list.
			graph.nodes[src] = append(graph.nodes[src][:idx], graph.nodes[src][idx+1:]...)
			graph.inDegree[dst]--

			return true
		}
	}

	return false
}

// TopoSort performs topological sort using Kahn's algorithm.
// Returns sorted node IDs and a boolean indicating success (true) or cycle detected (false).
func (graph *IntGraph) TopoSort() ([]int, bool) {
	nodeCount := len(graph.nodes)
	if nodeCount == 0 {
		return []int{}, true
	}

	// Sort against a copy of in-degrees so the graph itself stays reusable.
	inDegree := make([]int, nodeCount)
	copy(inDegree, graph.inDegree)

	queue := make([]int, 0)

	for idx := range nodeCount {
		if inDegree[idx] == 0 {
			queue = append(queue, idx)
		}
	}

	// Sort initial queue for deterministic output.
	sort.Ints(queue)

	result := make([]int, 0, nodeCount)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		result = append(result, cur)

		for _, neighbor := range graph.nodes[cur] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				// Keep the queue sorted so ties resolve in id order, for deterministic output.
				insertSorted(&queue, neighbor)
			}
		}
	}

	// Fewer nodes processed than active nodes means a cycle withheld some from the queue.
	if len(result) != graph.activeNodeCount() {
		return result, false
	}

	return result, true
}

// FindCycle returns a cycle in the graph containing the start node.
// Returns empty slice if no cycle found.
//
//nolint:gocognit // BFS cycle detection with path reconstruction is inherently complex.
func (graph *IntGraph) FindCycle(start int) []int {
	if start >= len(graph.nodes) {
		return []int{}
	}

	pathMap := make(map[int]int) // Node to parent mapping.

	// BFS traversal.
	bfsQueue := []int{start}
	pathMap[start] = -1 // Root sentinel.

	for len(bfsQueue) > 0 {
		cur := bfsQueue[0]
		bfsQueue = bfsQueue[1:]

		for _, neighbor := range graph.nodes[cur] {
			if neighbor == start {
				// Found cycle: cur -> start.
				cycle := []int{start}
				curr := cur

				for curr != start && curr != -1 {
					cycle = append(cycle, curr)
					curr = pathMap[curr]
				}

				cycle = append(cycle, start)

				// Reverse to get start -> ... -> cur -> start.
				for left, right := 0, len(cycle)-1; left < right; left, right = left+1, right-1 {
					cycle[left], cycle[right] = cycle[right], cycle[left]
				}

				return cycle
			}

			if _, visited := pathMap[neighbor]; !visited {
				pathMap[neighbor] = cur
				bfsQueue = append(bfsQueue, neighbor)
			}
		}
	}

	return []int{}
}

// activeNodeCount returns counts of nodes involved in the graph.
// Since we blindly iterate 0..len(g.nodes), all are considered active.
func (graph *IntGraph) activeNodeCount() int {
	return len(graph.nodes)
}

// insertSorted inserts val into sorted slice s.
func insertSorted(sortedSlice *[]int, val int) {
	idx := sort.SearchInts(*sortedSlice, val)
	*sortedSlice = append(*sortedSlice, 0)
	copy((*sortedSlice)[idx+1:], (*sortedSlice)[idx:])
	(*sortedSlice)[idx] = val
}
