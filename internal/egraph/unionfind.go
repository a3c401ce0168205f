package egraph

// unionFind tracks the canonical representative of every id.
type unionFind struct {
	parents []ID
}

func (u *unionFind) makeSet() ID {
	id := ID(len(u.parents))
	u.parents = append(u.parents, id)
	return id
}

func (u *unionFind) size() int {
	return len(u.parents)
}

// find returns the root of id, halving the path as it goes.
func (u *unionFind) find(id ID) ID {
	for u.parents[id] != id {
		u.parents[id] = u.parents[u.parents[id]]
		id = u.parents[id]
	}
	return id
}

// link makes root the parent of child. Both must be roots.
func (u *unionFind) link(root, child ID) {
	u.parents[child] = root
}
