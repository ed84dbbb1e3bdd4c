package pose

import (
	"fmt"
	"image/color"
)

// Dimensions is the canvas size the pose coordinates refer to.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Depth  int `json:"depth"`
}

// Component is a named, ordered set of points with drawable connections.
// Limbs hold indices local to the component.
type Component struct {
	Name        string
	Points      []string
	Limbs       [][2]int
	Colors      []color.RGBA
	PointFormat []string
}

// Header describes the layout of a pose body.
type Header struct {
	Version    float32
	Dimensions Dimensions
	Components []*Component
}

// validate checks point names are unique and limbs stay within the component.
func (c *Component) validate() error {
	seen := make(map[string]struct{}, len(c.Points))
	for _, name := range c.Points {
		if _, ok := seen[name]; ok {
			return fmt.Errorf("component %s: duplicate point %q", c.Name, name)
		}
		seen[name] = struct{}{}
	}
	for _, l := range c.Limbs {
		if l[0] < 0 || l[0] >= len(c.Points) || l[1] < 0 || l[1] >= len(c.Points) {
			return fmt.Errorf("component %s: limb %v out of range", c.Name, l)
		}
	}
	return nil
}

// Clone returns a deep copy of the component.
func (c *Component) Clone() *Component {
	out := &Component{
		Name:        c.Name,
		Points:      append([]string(nil), c.Points...),
		Limbs:       append([][2]int(nil), c.Limbs...),
		Colors:      append([]color.RGBA(nil), c.Colors...),
		PointFormat: append([]string(nil), c.PointFormat...),
	}
	return out
}

// Clone returns a deep copy of the header.
func (h *Header) Clone() *Header {
	out := &Header{
		Version:    h.Version,
		Dimensions: h.Dimensions,
		Components: make([]*Component, len(h.Components)),
	}
	for i, c := range h.Components {
		out.Components[i] = c.Clone()
	}
	return out
}

// ComponentNames returns the component names in header order.
func (h *Header) ComponentNames() []string {
	names := make([]string, len(h.Components))
	for i, c := range h.Components {
		names[i] = c.Name
	}
	return names
}

// ComponentIndex returns the position of the named component, or -1.
func (h *Header) ComponentIndex(name string) int {
	for i, c := range h.Components {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Component returns the named component or nil.
func (h *Header) Component(name string) *Component {
	if i := h.ComponentIndex(name); i >= 0 {
		return h.Components[i]
	}
	return nil
}

// StartIndex returns the absolute index of the first point of the named
// component: the sum of point counts of all components before it.
func (h *Header) StartIndex(name string) (int, error) {
	start := 0
	for _, c := range h.Components {
		if c.Name == name {
			return start, nil
		}
		start += len(c.Points)
	}
	return 0, fmt.Errorf("%w: %s", ErrComponentNotFound, name)
}

// PointIndex returns the absolute index of a point within a component.
func (h *Header) PointIndex(component, point string) (int, error) {
	start, err := h.StartIndex(component)
	if err != nil {
		return 0, err
	}
	for i, name := range h.Component(component).Points {
		if name == point {
			return start + i, nil
		}
	}
	return 0, fmt.Errorf("%w: point %s in %s", ErrComponentNotFound, point, component)
}

// TotalPoints returns the sum of point counts across components.
func (h *Header) TotalPoints() int {
	total := 0
	for _, c := range h.Components {
		total += len(c.Points)
	}
	return total
}

// Dims returns the widest point format across components.
func (h *Header) Dims() int {
	dims := 0
	for _, c := range h.Components {
		if len(c.PointFormat) > dims {
			dims = len(c.PointFormat)
		}
	}
	return dims
}
