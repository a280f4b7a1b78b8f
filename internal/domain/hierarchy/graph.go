// Package hierarchy models the manager tree as an id -> manager id map and
// guards it against cycles.
package hierarchy

import "sort"

// Edge is one employee row reduced to its manager pointer. ManagerID is empty
// for top-level employees.
type Edge struct {
	EmployeeID string
	ManagerID  string
}

type Graph struct {
	parent map[string]string
}

func NewGraph(edges []Edge) *Graph {
	g := &Graph{parent: make(map[string]string, len(edges))}
	for _, edge := range edges {
		g.parent[edge.EmployeeID] = edge.ManagerID
	}
	return g
}

func (g *Graph) Size() int {
	return len(g.parent)
}

func (g *Graph) Contains(id string) bool {
	_, ok := g.parent[id]
	return ok
}

func (g *Graph) Manager(id string) (string, bool) {
	managerID, ok := g.parent[id]
	if !ok || managerID == "" {
		return "", false
	}
	return managerID, true
}

// DirectReports returns the ids whose manager is id, sorted.
func (g *Graph) DirectReports(id string) []string {
	var out []string
	for employeeID, managerID := range g.parent {
		if managerID == id {
			out = append(out, employeeID)
		}
	}
	sort.Strings(out)
	return out
}

// Ancestors walks up from id and returns the chain of managers, nearest
// first. ok is false if the walk did not reach a root within Size() steps.
func (g *Graph) Ancestors(id string) (chain []string, ok bool) {
	current := id
	for steps := 0; steps <= g.Size(); steps++ {
		managerID, has := g.Manager(current)
		if !has {
			return chain, true
		}
		chain = append(chain, managerID)
		current = managerID
	}
	return chain, false
}

type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictSelfManagement
	VerdictCycle
	VerdictCorrupt
)

// Check evaluates the edge subjectID -> proposedManagerID against the current
// graph. An empty proposedManagerID detaches the subject and is always OK.
func (g *Graph) Check(subjectID, proposedManagerID string) Verdict {
	if proposedManagerID == "" {
		return VerdictOK
	}
	if proposedManagerID == subjectID {
		return VerdictSelfManagement
	}
	current := proposedManagerID
	// The bound counts the proposed manager itself plus every ancestor, so a
	// healthy chain always ends before it is exhausted.
	for steps := 0; steps <= g.Size(); steps++ {
		if current == subjectID {
			return VerdictCycle
		}
		managerID, has := g.Manager(current)
		if !has {
			return VerdictOK
		}
		current = managerID
	}
	return VerdictCorrupt
}

func (g *Graph) WouldCreateCycle(subjectID, proposedManagerID string) bool {
	return g.Check(subjectID, proposedManagerID) != VerdictOK
}
