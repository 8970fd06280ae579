package thread

// Cache holds a thread as an id-indexed arena plus a parent -> children index,
// so a single insert, edit or delete touches only the affected entries rather
// than rebuilding the tree. It is meant to live in one client session and is
// not safe for concurrent use.
type Cache[T Item] struct {
	nodes    map[string]T
	parentOf map[string]string
	children map[string][]string
	roots    []string
}

func NewCache[T Item]() *Cache[T] {
	return &Cache[T]{
		nodes:    make(map[string]T),
		parentOf: make(map[string]string),
		children: make(map[string][]string),
	}
}

// Load replaces the cache content with items, linking them the same way
// BuildForest does.
func (c *Cache[T]) Load(items []T) {
	c.nodes = make(map[string]T, len(items))
	c.parentOf = make(map[string]string, len(items))
	c.children = make(map[string][]string)
	c.roots = nil

	order := make([]string, 0, len(items))
	for _, item := range items {
		id := item.NodeID()
		if _, ok := c.nodes[id]; ok {
			continue
		}
		c.nodes[id] = item
		order = append(order, id)
	}
	for _, id := range order {
		c.link(c.nodes[id])
	}
}

// Insert adds a new node under its parent, or as a root when the parent is
// not cached. Inserting an id that is already cached behaves like Update.
func (c *Cache[T]) Insert(item T) {
	if _, ok := c.nodes[item.NodeID()]; ok {
		c.Update(item)
		return
	}
	c.nodes[item.NodeID()] = item
	c.link(item)
}

// Update swaps the stored value of an existing node and keeps its already
// loaded children. It reports false when the id is not cached.
func (c *Cache[T]) Update(item T) bool {
	id := item.NodeID()
	if _, ok := c.nodes[id]; !ok {
		return false
	}
	c.nodes[id] = item
	return true
}

// Remove deletes the node and its whole subtree and returns the removed ids,
// the node itself first.
func (c *Cache[T]) Remove(id string) []string {
	if _, ok := c.nodes[id]; !ok {
		return nil
	}
	parentID, linked := c.parentOf[id]

	removed := []string{}
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		removed = append(removed, cur)
		kids := c.children[cur]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
		delete(c.children, cur)
		delete(c.parentOf, cur)
		delete(c.nodes, cur)
	}

	if linked {
		c.children[parentID] = without(c.children[parentID], id)
	} else {
		c.roots = without(c.roots, id)
	}
	return removed
}

func (c *Cache[T]) Get(id string) (T, bool) {
	item, ok := c.nodes[id]
	return item, ok
}

func (c *Cache[T]) Contains(id string) bool {
	_, ok := c.nodes[id]
	return ok
}

// Children returns the cached direct children of id in insertion order.
func (c *Cache[T]) Children(id string) []T {
	ids := c.children[id]
	out := make([]T, 0, len(ids))
	for _, childID := range ids {
		out = append(out, c.nodes[childID])
	}
	return out
}

// Depth is 0 for roots and grows by one per linked ancestor. It returns -1
// for ids that are not cached.
func (c *Cache[T]) Depth(id string) int {
	if _, ok := c.nodes[id]; !ok {
		return -1
	}
	depth := 0
	for depth < len(c.nodes) {
		parentID, ok := c.parentOf[id]
		if !ok {
			break
		}
		depth++
		id = parentID
	}
	return depth
}

func (c *Cache[T]) Len() int {
	return len(c.nodes)
}

// Forest materialises the cached thread as trees.
func (c *Cache[T]) Forest() []*Tree[T] {
	var build func(id string) *Tree[T]
	build = func(id string) *Tree[T] {
		node := &Tree[T]{Value: c.nodes[id], Children: []*Tree[T]{}}
		for _, childID := range c.children[id] {
			node.Children = append(node.Children, build(childID))
		}
		return node
	}

	forest := make([]*Tree[T], 0, len(c.roots))
	for _, id := range c.roots {
		forest = append(forest, build(id))
	}
	return forest
}

func (c *Cache[T]) link(item T) {
	id := item.NodeID()
	parentID := item.ParentNodeID()
	if _, ok := c.nodes[parentID]; ok && parentID != id {
		c.parentOf[id] = parentID
		c.children[parentID] = append(c.children[parentID], id)
		return
	}
	c.roots = append(c.roots, id)
}

func without(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
