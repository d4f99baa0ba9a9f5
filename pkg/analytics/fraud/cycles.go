package fraud

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"casefile-hq/quaestor/pkg/analytics"
)

// nodeColor is the DFS marking per account node.
type nodeColor int

const (
	colorUnvisited nodeColor = iota
	colorInProgress
	colorDone
)

// checkCycles builds the directed fund-flow graph and reports every simple
// cycle found by a three-color depth-first search. Cycle length is bounded
// by MaxCycleLength hops to keep the search tractable on dense graphs. The
// score contribution is applied once regardless of how many cycles exist.
func (d *Detector) checkCycles(transactions []analytics.Transaction) ([]analytics.Finding, bool) {
	adjacency := make(map[string][]string)
	edgeSeen := make(map[string]bool)
	nodes := make([]string, 0)

	addNode := func(account string) {
		if _, ok := adjacency[account]; !ok {
			adjacency[account] = nil
			nodes = append(nodes, account)
		}
	}

	for _, tx := range transactions {
		addNode(tx.From)
		addNode(tx.To)
		key := tx.From + "\x00" + tx.To
		if !edgeSeen[key] && tx.From != tx.To {
			edgeSeen[key] = true
			adjacency[tx.From] = append(adjacency[tx.From], tx.To)
		}
	}

	// Deterministic traversal order.
	sort.Strings(nodes)
	for _, node := range nodes {
		sort.Strings(adjacency[node])
	}

	colors := make(map[string]nodeColor, len(nodes))
	var path []string
	cycles := [][]string{}
	cycleSeen := make(map[string]bool)

	var dfs func(node string)
	dfs = func(node string) {
		colors[node] = colorInProgress
		path = append(path, node)

		for _, next := range adjacency[node] {
			switch colors[next] {
			case colorInProgress:
				// Back edge: the cycle is the path suffix starting at next.
				start := -1
				for i, account := range path {
					if account == next {
						start = i
						break
					}
				}
				if start >= 0 {
					cycle := append([]string(nil), path[start:]...)
					if len(cycle) <= d.config.MaxCycleLength {
						canonical := canonicalCycle(cycle)
						if !cycleSeen[canonical] {
							cycleSeen[canonical] = true
							cycles = append(cycles, cycle)
						}
					}
				}
			case colorUnvisited:
				if len(path) < d.config.MaxCycleLength {
					dfs(next)
				}
			}
		}

		path = path[:len(path)-1]
		colors[node] = colorDone
	}

	for _, node := range nodes {
		if colors[node] == colorUnvisited {
			dfs(node)
		}
	}

	if len(cycles) == 0 {
		return nil, false
	}

	findings := make([]analytics.Finding, 0, len(cycles))
	for _, cycle := range cycles {
		chain := strings.Join(append(append([]string(nil), cycle...), cycle[0]), " -> ")
		related := make([]any, 0, len(cycle))
		for _, account := range cycle {
			related = append(related, account)
		}

		findings = append(findings, analytics.Finding{
			ID:       uuid.New().String(),
			Severity: analytics.SeverityCritical,
			Category: CategoryCycle,
			Description: fmt.Sprintf("circular transfer chain across %d accounts indicates layering: %s",
				len(cycle), chain),
			EvidenceRefs:   []string{chain},
			RelatedRecords: analytics.CapRelated(related),
		})
	}

	return findings, true
}

// canonicalCycle rotates a cycle so its lexicographically smallest account
// comes first, giving a stable identity independent of DFS entry point.
func canonicalCycle(cycle []string) string {
	min := 0
	for i, account := range cycle {
		if account < cycle[min] {
			min = i
		}
	}
	rotated := append(append([]string(nil), cycle[min:]...), cycle[:min]...)
	return strings.Join(rotated, "\x00")
}
