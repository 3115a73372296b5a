package layout

// WidgetType identifies the widget class of a node
type WidgetType string

// Supported widget types
const (
	TypeContainer WidgetType = "container"
	TypeLabel     WidgetType = "label"
	TypeButton    WidgetType = "button"
	TypeImage     WidgetType = "image"
	TypeBar       WidgetType = "bar"
	TypeSlider    WidgetType = "slider"
	TypeParticle  WidgetType = "particle"
)

// Event identifies an input event on a node
type Event int

// Input events
const (
	EventClick Event = iota
	EventPress
	EventRelease
	EventChange
)

// String returns the string representation of Event
func (e Event) String() string {
	switch e {
	case EventClick:
		return "click"
	case EventPress:
		return "press"
	case EventRelease:
		return "release"
	case EventChange:
		return "change"
	default:
		return "unknown"
	}
}

// Color is a 24-bit RGB colour
type Color uint32

// Node is one element of the retained scene graph. Fields hold resolved
// values; styling resolves percentages and presets at build time against the
// parent's dimensions.
type Node struct {
	Type WidgetType
	ID   string

	// Resolved geometry. Zero width/height means content-fit.
	Width  int
	Height int

	// Flex settings (containers and root)
	Flex       string
	Justify    string
	AlignItems string
	Scrollable bool

	// Absolute anchor
	Align   string
	OffsetX int
	OffsetY int

	// Visual style
	BgColor     Color
	BgOpacity   uint8
	HasBgColor  bool
	Pad         int
	Radius      int
	Gap         int
	BorderW     int
	BorderColor Color
	TextColor   Color
	HasTextCol  bool
	FontSize    int
	ShadowW     int
	ShadowColor Color
	Opacity     uint8
	Hidden      bool

	// Text widgets
	Text     string
	LongMode string

	// Bar and slider
	Min       int
	Max       int
	Value     int
	IndicCol  Color
	HasIndic  bool

	// Image
	Pixels []byte
	ImgW   int
	ImgH   int

	// Rotation and translation driven by animations (centi-degrees, px)
	Rotation   int
	TranslateX int
	TranslateY int

	parent   *Node
	Children []*Node

	actions  map[Event]string
	anim     *animState
	particle *particleState
	onDelete []func()
}

func newNode(t WidgetType) *Node {
	return &Node{
		Type:    t,
		Opacity: 255,
		Max:     100,
	}
}

// Parent returns the node's parent, nil for the root
func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) addChild(child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
}

// addDeleteHook registers a cleanup function run when the node is destroyed
func (n *Node) addDeleteHook(fn func()) {
	n.onDelete = append(n.onDelete, fn)
}

// destroy runs deletion hooks depth-first and detaches children
func (n *Node) destroy() {
	for _, child := range n.Children {
		child.destroy()
	}
	n.Children = nil
	for _, fn := range n.onDelete {
		fn()
	}
	n.onDelete = nil
	n.parent = nil
}

// actionURI returns the bound URI for an event
func (n *Node) actionURI(e Event) (string, bool) {
	if n.actions == nil {
		return "", false
	}
	uri, ok := n.actions[e]
	return uri, ok
}

func (n *Node) bindAction(e Event, uri string) {
	if n.actions == nil {
		n.actions = make(map[Event]string)
	}
	n.actions[e] = uri
}

// firstLabelChild returns the node itself if it is a label, else its first
// label child. Buttons carry their caption as an inline child label.
func (n *Node) firstLabelChild() *Node {
	if n.Type == TypeLabel {
		return n
	}
	for _, child := range n.Children {
		if child.Type == TypeLabel {
			return child
		}
	}
	if len(n.Children) > 0 {
		return n.Children[0]
	}
	return nil
}
