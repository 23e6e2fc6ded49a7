// Package graph answers proximity queries over the friendship graph.
package graph

import (
	"context"
	"sort"

	"github.com/dan-solli/socialgraph/pkg/store"
)

// Unreachable is the degree reported when no path exists between two users.
// It also covers a start user with no edges at all; the two cases are not
// distinguished.
const Unreachable = -1

// Engine computes friends, friends-of-friends, and degree-of-separation
// queries. It holds no state of its own; each query reads the connection
// store it was constructed with.
type Engine struct {
	connections store.ConnectionStore
}

// NewEngine creates a query engine over the given connection store.
func NewEngine(connections store.ConnectionStore) *Engine {
	return &Engine{connections: connections}
}

// DirectFriends returns the ids directly connected to id.
func (e *Engine) DirectFriends(ctx context.Context, id int64) ([]int64, error) {
	return e.connections.Neighbors(ctx, id)
}

// FriendsOfFriends returns the ids exactly two hops from id: the union of
// each direct friend's neighbors, excluding id itself and every direct
// friend. The adjacency index is built once and reused for both hops.
func (e *Engine) FriendsOfFriends(ctx context.Context, id int64) ([]int64, error) {
	adjacency, err := e.buildAdjacency(ctx)
	if err != nil {
		return nil, err
	}

	direct := make(map[int64]bool)
	for _, friend := range adjacency[id] {
		direct[friend] = true
	}

	second := make(map[int64]bool)
	for friend := range direct {
		for _, candidate := range adjacency[friend] {
			if candidate == id || direct[candidate] {
				continue
			}
			second[candidate] = true
		}
	}

	results := make([]int64, 0, len(second))
	for candidate := range second {
		results = append(results, candidate)
	}
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })

	return results, nil
}

// DegreeOfSeparation returns the shortest-path hop count between from and to,
// or Unreachable when no path exists. A user's degree to itself is 0.
//
// BFS explores the frontier level by level, so the first time the target is
// dequeued its depth is the shortest distance in this unweighted graph.
func (e *Engine) DegreeOfSeparation(ctx context.Context, from, to int64) (int, error) {
	if from == to {
		return 0, nil
	}

	adjacency, err := e.buildAdjacency(ctx)
	if err != nil {
		return 0, err
	}

	if len(adjacency[from]) == 0 {
		return Unreachable, nil
	}

	type queueItem struct {
		id    int64
		depth int
	}
	queue := []queueItem{{from, 0}}
	visited := map[int64]bool{from: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.id == to {
			return current.depth, nil
		}

		for _, neighbor := range adjacency[current.id] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, queueItem{neighbor, current.depth + 1})
			}
		}
	}

	return Unreachable, nil
}

// buildAdjacency loads the full edge set in one read and expands it into a
// symmetric adjacency map. One read per query keeps the whole traversal on a
// consistent snapshot of the graph.
func (e *Engine) buildAdjacency(ctx context.Context) (map[int64][]int64, error) {
	conns, err := e.connections.AllConnections(ctx)
	if err != nil {
		return nil, err
	}

	adjacency := make(map[int64][]int64, len(conns))
	for _, conn := range conns {
		adjacency[conn.LowID] = append(adjacency[conn.LowID], conn.HighID)
		adjacency[conn.HighID] = append(adjacency[conn.HighID], conn.LowID)
	}

	return adjacency, nil
}
