package metadata

import "sort"

// OrgNode is one node of the organisation tree built for display.
type OrgNode struct {
	ID       string     `json:"id"`
	Name     string     `json:"text"`
	Children []*OrgNode `json:"children"`
}

// RootOrgUnits returns the ids of every root of the organisation forest:
// units without a parent, plus units whose parent id does not resolve in the
// graph. Orphan parent references do not fail the tree; the unit simply
// becomes an extra root.
func (ix *Index) RootOrgUnits() []string {
	var roots []string
	for id, ou := range ix.orgUnits {
		if ou.Parent == nil || ou.Parent.ID == "" {
			roots = append(roots, id)
			continue
		}
		if _, ok := ix.orgUnits[ou.Parent.ID]; !ok {
			roots = append(roots, id)
		}
	}
	return roots
}

// OrganisationTree builds the full hierarchy from every root down, children
// sorted by name at each level.
func (ix *Index) OrganisationTree() []*OrgNode {
	roots := ix.RootOrgUnits()
	sort.Slice(roots, func(i, j int) bool {
		return ix.orgUnits[roots[i]].Name < ix.orgUnits[roots[j]].Name
	})

	tree := make([]*OrgNode, 0, len(roots))
	for _, id := range roots {
		if node := ix.buildOrgNode(id); node != nil {
			tree = append(tree, node)
		}
	}
	return tree
}

func (ix *Index) buildOrgNode(id string) *OrgNode {
	ou, ok := ix.orgUnits[id]
	if !ok {
		return nil
	}

	node := &OrgNode{ID: id, Name: ou.Name, Children: []*OrgNode{}}

	childIDs := append([]string(nil), ix.orgChildren[id]...)
	sort.Slice(childIDs, func(i, j int) bool {
		return ix.orgUnits[childIDs[i]].Name < ix.orgUnits[childIDs[j]].Name
	})
	for _, childID := range childIDs {
		if child := ix.buildOrgNode(childID); child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node
}
