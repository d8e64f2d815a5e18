package scene

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownNode is returned when an operation references a node that does
// not exist in the graph.
var ErrUnknownNode = errors.New("unknown node")

// ErrUnknownAttr is returned when an operation references an attribute the
// node does not carry.
var ErrUnknownAttr = errors.New("unknown attribute")

type attr struct {
	name       string
	typ        AttrType
	value      Value
	def        Value
	locked     bool
	keyable    bool
	channelBox bool
	custom     bool
	incoming   *Plug
}

type node struct {
	name      string
	typ       NodeType
	parent    string
	children  []string
	attrs     map[string]*attr
	attrOrder []string
}

// Memory is the in-memory scene-graph host.
type Memory struct {
	nodes map[string]*node
	order []string

	chunkDepth int
	chunkName  string
	chunkPre   *Snapshot
	undoStack  []undoEntry
}

// New returns an empty scene graph.
func New() *Memory {
	return &Memory{nodes: make(map[string]*node)}
}

// CreateNode adds a node of the given type at the graph root. When the
// requested name is taken a numeric suffix is appended, so the returned name
// is the one the node actually carries.
func (m *Memory) CreateNode(typ NodeType, name string) (string, error) {
	if name == "" {
		return "", errors.New("create node: empty name")
	}
	unique := name
	for i := 1; ; i++ {
		if _, taken := m.nodes[unique]; !taken {
			break
		}
		unique = name + strconv.Itoa(i)
	}

	n := &node{name: unique, typ: typ, attrs: make(map[string]*attr)}
	switch typ {
	case NurbsCurve:
		n.addBuiltin("degree", FloatValue(1), false)
		n.addBuiltin("cvs", StringValue("[]"), false)
	default:
		n.addBuiltin("translate", VectorValue(0, 0, 0), true)
		n.addBuiltin("rotate", VectorValue(0, 0, 0), true)
		n.addBuiltin("scale", VectorValue(1, 1, 1), true)
		n.addBuiltin("visibility", BoolValue(true), false)
	}
	n.addBuiltin("overrideEnabled", BoolValue(false), false)
	n.addBuiltin("overrideRGBColors", BoolValue(false), false)
	n.addBuiltin("overrideColor", FloatValue(0), false)
	n.addBuiltin("overrideColorRGB", VectorValue(0, 0, 0), false)

	m.nodes[unique] = n
	m.order = append(m.order, unique)
	return unique, nil
}

func (n *node) addBuiltin(name string, def Value, keyable bool) {
	n.attrs[name] = &attr{
		name:       name,
		typ:        def.Type,
		value:      def,
		def:        def,
		keyable:    keyable,
		channelBox: true,
	}
	n.attrOrder = append(n.attrOrder, name)
}

// Exists reports whether a node with the given name is in the graph.
func (m *Memory) Exists(name string) bool {
	_, ok := m.nodes[name]
	return ok
}

// TypeOf returns the node type.
func (m *Memory) TypeOf(name string) (NodeType, error) {
	n, ok := m.nodes[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return n.typ, nil
}

// Delete removes the named nodes and their descendants. Names that are
// already gone are skipped, so deleting a parent followed by its child is
// not an error.
func (m *Memory) Delete(names ...string) error {
	doomed := make(map[string]bool)
	for _, name := range names {
		n, ok := m.nodes[name]
		if !ok {
			continue
		}
		doomed[name] = true
		for _, desc := range m.descendants(n) {
			doomed[desc] = true
		}
	}
	if len(doomed) == 0 {
		return nil
	}

	for name := range doomed {
		n := m.nodes[name]
		if n.parent != "" && !doomed[n.parent] {
			if p, ok := m.nodes[n.parent]; ok {
				p.children = removeString(p.children, name)
			}
		}
		delete(m.nodes, name)
	}
	m.order = filterStrings(m.order, func(s string) bool { return !doomed[s] })

	// Sever incoming connections whose source node no longer exists.
	for _, name := range m.order {
		n := m.nodes[name]
		for _, a := range n.attrs {
			if a.incoming != nil && doomed[a.incoming.Node] {
				a.incoming = nil
			}
		}
	}
	return nil
}

// Parent moves child under parent. An empty parent moves the child to the
// graph root. Parenting a node under its own descendant is rejected.
func (m *Memory) Parent(child, parent string) error {
	c, ok := m.nodes[child]
	if !ok {
		return fmt.Errorf("parent: %w: %s", ErrUnknownNode, child)
	}
	if parent != "" {
		p, ok := m.nodes[parent]
		if !ok {
			return fmt.Errorf("parent: %w: %s", ErrUnknownNode, parent)
		}
		if child == parent {
			return fmt.Errorf("parent: cannot parent %s to itself", child)
		}
		for _, desc := range m.descendants(c) {
			if desc == parent {
				return fmt.Errorf("parent: %s is a descendant of %s", parent, child)
			}
		}
		if c.parent != "" {
			if old, ok := m.nodes[c.parent]; ok {
				old.children = removeString(old.children, child)
			}
		}
		c.parent = parent
		p.children = append(p.children, child)
		return nil
	}
	if c.parent != "" {
		if old, ok := m.nodes[c.parent]; ok {
			old.children = removeString(old.children, child)
		}
	}
	c.parent = ""
	return nil
}

// ParentOf returns the parent node name, or an empty string for root nodes.
func (m *Memory) ParentOf(name string) (string, error) {
	n, ok := m.nodes[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return n.parent, nil
}

// Children returns direct children in creation order.
func (m *Memory) Children(name string) ([]string, error) {
	n, ok := m.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	out := make([]string, len(n.children))
	copy(out, n.children)
	return out, nil
}

// Descendants returns every node below the given one, depth-first with
// parents before their children.
func (m *Memory) Descendants(name string) ([]string, error) {
	n, ok := m.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return m.descendants(n), nil
}

func (m *Memory) descendants(n *node) []string {
	var out []string
	var walk func(*node)
	walk = func(cur *node) {
		for _, childName := range cur.children {
			child, ok := m.nodes[childName]
			if !ok {
				continue
			}
			out = append(out, childName)
			walk(child)
		}
	}
	walk(n)
	return out
}

// Nodes returns every node name in creation order.
func (m *Memory) Nodes() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// AddAttr declares a custom attribute on a node with the given default.
func (m *Memory) AddAttr(nodeName, attrName string, typ AttrType, def Value) error {
	n, ok := m.nodes[nodeName]
	if !ok {
		return fmt.Errorf("add attr: %w: %s", ErrUnknownNode, nodeName)
	}
	if def.Type != typ {
		return fmt.Errorf("add attr: default for %s.%s is %s, want %s", nodeName, attrName, def.Type, typ)
	}
	if _, exists := n.attrs[attrName]; exists {
		return fmt.Errorf("add attr: %s.%s already exists", nodeName, attrName)
	}
	n.attrs[attrName] = &attr{
		name:   attrName,
		typ:    typ,
		value:  def,
		def:    def,
		custom: true,
	}
	n.attrOrder = append(n.attrOrder, attrName)
	return nil
}

// HasAttr reports whether the node carries the attribute.
func (m *Memory) HasAttr(nodeName, attrName string) bool {
	n, ok := m.nodes[nodeName]
	if !ok {
		return false
	}
	_, ok = n.attrs[attrName]
	return ok
}

func (m *Memory) attr(nodeName, attrName string) (*attr, error) {
	n, ok := m.nodes[nodeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, nodeName)
	}
	a, ok := n.attrs[attrName]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttr, nodeName, attrName)
	}
	return a, nil
}

// GetAttr returns the current value of an attribute.
func (m *Memory) GetAttr(nodeName, attrName string) (Value, error) {
	a, err := m.attr(nodeName, attrName)
	if err != nil {
		return Value{}, err
	}
	return a.value, nil
}

// SetAttr writes a value. Locked and connection-driven attributes refuse
// writes, matching host behavior.
func (m *Memory) SetAttr(nodeName, attrName string, value Value) error {
	a, err := m.attr(nodeName, attrName)
	if err != nil {
		return err
	}
	if value.Type != a.typ {
		return fmt.Errorf("set attr: %s.%s is %s, got %s", nodeName, attrName, a.typ, value.Type)
	}
	if a.locked {
		return fmt.Errorf("set attr: %s.%s is locked", nodeName, attrName)
	}
	if a.incoming != nil {
		return fmt.Errorf("set attr: %s.%s is connection-driven", nodeName, attrName)
	}
	a.value = value
	return nil
}

// AttrNames returns the node's attributes in definition order.
func (m *Memory) AttrNames(nodeName string) ([]string, error) {
	n, ok := m.nodes[nodeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, nodeName)
	}
	out := make([]string, len(n.attrOrder))
	copy(out, n.attrOrder)
	return out, nil
}

// DefaultOf returns the attribute's default value.
func (m *Memory) DefaultOf(nodeName, attrName string) (Value, error) {
	a, err := m.attr(nodeName, attrName)
	if err != nil {
		return Value{}, err
	}
	return a.def, nil
}

// Flags returns the attribute's editing flags.
func (m *Memory) Flags(nodeName, attrName string) (AttrFlags, error) {
	a, err := m.attr(nodeName, attrName)
	if err != nil {
		return AttrFlags{}, err
	}
	return AttrFlags{Locked: a.locked, Keyable: a.keyable, ChannelBox: a.channelBox}, nil
}

// SetFlags replaces the attribute's editing flags. Flag writes are allowed
// on locked attributes; that is how locks are released.
func (m *Memory) SetFlags(nodeName, attrName string, flags AttrFlags) error {
	a, err := m.attr(nodeName, attrName)
	if err != nil {
		return err
	}
	a.locked = flags.Locked
	a.keyable = flags.Keyable
	a.channelBox = flags.ChannelBox
	return nil
}

// Connect drives dstNode.dstAttr from srcNode.srcAttr. The destination plug
// must be free; sources may fan out.
func (m *Memory) Connect(srcNode, srcAttr, dstNode, dstAttr string) error {
	src, err := m.attr(srcNode, srcAttr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	dst, err := m.attr(dstNode, dstAttr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if src.typ != dst.typ {
		return fmt.Errorf("connect: %s.%s (%s) and %s.%s (%s) differ in type",
			srcNode, srcAttr, src.typ, dstNode, dstAttr, dst.typ)
	}
	if dst.incoming != nil {
		return fmt.Errorf("connect: %s.%s already driven by %s.%s",
			dstNode, dstAttr, dst.incoming.Node, dst.incoming.Attr)
	}
	dst.incoming = &Plug{Node: srcNode, Attr: srcAttr}
	return nil
}

// ConnectionSource returns the plug driving node.attr, if any.
func (m *Memory) ConnectionSource(nodeName, attrName string) (Plug, bool) {
	a, err := m.attr(nodeName, attrName)
	if err != nil || a.incoming == nil {
		return Plug{}, false
	}
	return *a.incoming, true
}

// Disconnect severs the incoming connection on node.attr.
func (m *Memory) Disconnect(nodeName, attrName string) error {
	a, err := m.attr(nodeName, attrName)
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	if a.incoming == nil {
		return fmt.Errorf("disconnect: %s.%s has no incoming connection", nodeName, attrName)
	}
	a.incoming = nil
	return nil
}

func removeString(list []string, target string) []string {
	return filterStrings(list, func(s string) bool { return s != target })
}

func filterStrings(list []string, keep func(string) bool) []string {
	out := list[:0]
	for _, s := range list {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
