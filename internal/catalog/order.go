package catalog

import (
	"sort"

	"github.com/yourbasic/graph"
)

// CreationOrder returns the table names ordered so that every referenced table
// comes before the tables that reference it. The tables of a foreign key cycle
// are returned in the map and kept together, sorted by name, ahead of any table
// that references one of them.
// Self references and references to tables outside the catalog are ignored.
func (c *Catalog) CreationOrder() ([]string, map[string]bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := c.order
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	// Edge from the referenced table to the dependent one
	deps := graph.New(len(names))
	for i, name := range names {
		for _, ref := range c.tables[name].ReferencedTables() {
			if j, ok := index[ref]; ok && j != i {
				deps.Add(j, i)
			}
		}
	}

	if order, ok := graph.TopSort(deps); ok {
		ordered := make([]string, len(order))
		for i, v := range order {
			ordered[i] = names[v]
		}
		return ordered, map[string]bool{}
	}

	// Collapse every cycle into a single vertex and sort the resulting DAG
	components := graph.StrongComponents(deps)
	component := make([]int, len(names))
	circular := make(map[string]bool)
	for ci, members := range components {
		for _, v := range members {
			component[v] = ci
			if len(members) > 1 {
				circular[names[v]] = true
			}
		}
	}

	condensed := graph.New(len(components))
	for v := range names {
		deps.Visit(v, func(w int, _ int64) bool {
			if component[v] != component[w] {
				condensed.Add(component[v], component[w])
			}
			return false
		})
	}

	order, _ := graph.TopSort(condensed)
	ordered := make([]string, 0, len(names))
	for _, ci := range order {
		members := make([]string, 0, len(components[ci]))
		for _, v := range components[ci] {
			members = append(members, names[v])
		}
		sort.Strings(members)
		ordered = append(ordered, members...)
	}

	return ordered, circular
}
