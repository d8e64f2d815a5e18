package scene

import (
	"fmt"
	"sort"
)

// Snapshot is a complete, self-contained copy of a graph's state. The undo
// journal stores one per chunk and the scenefile store persists one per
// save.
type Snapshot struct {
	Nodes       []NodeRecord
	Connections []Connection
}

// NodeRecord captures one node and its attributes. ChildIndex is the
// node's position among its parent's children; reparenting can leave
// sibling order diverging from creation order, so it is recorded
// explicitly.
type NodeRecord struct {
	Name       string
	Type       NodeType
	Parent     string
	ChildIndex int
	Attrs      []AttrRecord
}

// AttrRecord captures one attribute's full state.
type AttrRecord struct {
	Name       string
	Type       AttrType
	Value      Value
	Default    Value
	Locked     bool
	Keyable    bool
	ChannelBox bool
	Custom     bool
}

// Connection captures one incoming plug assignment.
type Connection struct {
	SrcNode string
	SrcAttr string
	DstNode string
	DstAttr string
}

// Snapshot copies the graph's entire state in creation order.
func (m *Memory) Snapshot() *Snapshot {
	snap := &Snapshot{}
	for _, name := range m.order {
		n := m.nodes[name]
		rec := NodeRecord{Name: n.name, Type: n.typ, Parent: n.parent}
		if n.parent != "" {
			for i, child := range m.nodes[n.parent].children {
				if child == n.name {
					rec.ChildIndex = i
					break
				}
			}
		}
		for _, attrName := range n.attrOrder {
			a := n.attrs[attrName]
			rec.Attrs = append(rec.Attrs, AttrRecord{
				Name:       a.name,
				Type:       a.typ,
				Value:      a.value,
				Default:    a.def,
				Locked:     a.locked,
				Keyable:    a.keyable,
				ChannelBox: a.channelBox,
				Custom:     a.custom,
			})
			if a.incoming != nil {
				snap.Connections = append(snap.Connections, Connection{
					SrcNode: a.incoming.Node,
					SrcAttr: a.incoming.Attr,
					DstNode: n.name,
					DstAttr: a.name,
				})
			}
		}
		snap.Nodes = append(snap.Nodes, rec)
	}
	return snap
}

// FromSnapshot builds a graph holding exactly the snapshot's state.
func FromSnapshot(snap *Snapshot) (*Memory, error) {
	m := New()
	if err := m.restore(snap); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) restore(snap *Snapshot) error {
	m.nodes = make(map[string]*node, len(snap.Nodes))
	m.order = m.order[:0]

	for _, rec := range snap.Nodes {
		if _, exists := m.nodes[rec.Name]; exists {
			return fmt.Errorf("restore: duplicate node %s", rec.Name)
		}
		n := &node{
			name:   rec.Name,
			typ:    rec.Type,
			parent: rec.Parent,
			attrs:  make(map[string]*attr, len(rec.Attrs)),
		}
		for _, ar := range rec.Attrs {
			n.attrs[ar.Name] = &attr{
				name:       ar.Name,
				typ:        ar.Type,
				value:      ar.Value,
				def:        ar.Default,
				locked:     ar.Locked,
				keyable:    ar.Keyable,
				channelBox: ar.ChannelBox,
				custom:     ar.Custom,
			}
			n.attrOrder = append(n.attrOrder, ar.Name)
		}
		m.nodes[rec.Name] = n
		m.order = append(m.order, rec.Name)
	}

	childIndex := make(map[string]int, len(snap.Nodes))
	for _, rec := range snap.Nodes {
		childIndex[rec.Name] = rec.ChildIndex
		if rec.Parent == "" {
			continue
		}
		p, ok := m.nodes[rec.Parent]
		if !ok {
			return fmt.Errorf("restore: node %s references missing parent %s", rec.Name, rec.Parent)
		}
		p.children = append(p.children, rec.Name)
	}
	for _, n := range m.nodes {
		sort.SliceStable(n.children, func(i, j int) bool {
			return childIndex[n.children[i]] < childIndex[n.children[j]]
		})
	}

	for _, conn := range snap.Connections {
		dst, ok := m.nodes[conn.DstNode]
		if !ok {
			return fmt.Errorf("restore: connection targets missing node %s", conn.DstNode)
		}
		a, ok := dst.attrs[conn.DstAttr]
		if !ok {
			return fmt.Errorf("restore: connection targets missing attribute %s.%s", conn.DstNode, conn.DstAttr)
		}
		if _, ok := m.nodes[conn.SrcNode]; !ok {
			return fmt.Errorf("restore: connection sources missing node %s", conn.SrcNode)
		}
		a.incoming = &Plug{Node: conn.SrcNode, Attr: conn.SrcAttr}
	}
	return nil
}
