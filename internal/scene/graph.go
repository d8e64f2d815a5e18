package scene

// NodeType identifies what kind of node a scene entry is. Transform-like
// types carry the standard translate/rotate/scale/visibility attributes;
// nurbsCurve shapes carry curve geometry attributes instead.
type NodeType string

const (
	Transform        NodeType = "transform"
	Joint            NodeType = "joint"
	NurbsCurve       NodeType = "nurbsCurve"
	ParentConstraint NodeType = "parentConstraint"
	OrientConstraint NodeType = "orientConstraint"
	PointConstraint  NodeType = "pointConstraint"
)

// Plug addresses one attribute on one node, the endpoint of a connection.
type Plug struct {
	Node string
	Attr string
}

// AttrFlags holds the per-attribute editing state a rigger can customize on
// a built rig. These flags survive rebuilds through the attributes codec.
type AttrFlags struct {
	Locked     bool
	Keyable    bool
	ChannelBox bool
}

// Graph is the contract the rig core requires from a scene-graph host.
// The in-memory Memory type is the reference implementation; tests and the
// CLI both run against it.
type Graph interface {
	// Node lifecycle and hierarchy.
	CreateNode(typ NodeType, name string) (string, error)
	Delete(names ...string) error
	Exists(name string) bool
	Parent(child, parent string) error
	ParentOf(name string) (string, error)
	Children(name string) ([]string, error)
	Descendants(name string) ([]string, error)
	Nodes() []string
	TypeOf(name string) (NodeType, error)

	// Attributes.
	AddAttr(node, attr string, typ AttrType, def Value) error
	HasAttr(node, attr string) bool
	GetAttr(node, attr string) (Value, error)
	SetAttr(node, attr string, value Value) error
	AttrNames(node string) ([]string, error)
	DefaultOf(node, attr string) (Value, error)
	Flags(node, attr string) (AttrFlags, error)
	SetFlags(node, attr string, flags AttrFlags) error

	// Connections. A plug accepts at most one incoming connection; a source
	// plug may fan out to any number of destinations.
	Connect(srcNode, srcAttr, dstNode, dstAttr string) error
	ConnectionSource(node, attr string) (Plug, bool)
	Disconnect(node, attr string) error

	// Undo. Every mutation performed inside fn is journaled as one entry;
	// nested calls fold into the outermost chunk. The chunk closes as a
	// single entry even when fn returns an error.
	Undoable(name string, fn func() error) error
	Undo() (string, bool)
}
