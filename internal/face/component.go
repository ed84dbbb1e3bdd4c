// Package face defines the facial pose component and converts face mesh
// detections into its 62-point landmark schema.
package face

import (
	"fmt"
	"image/color"

	"github.com/ayusman/islpose/internal/pose"
)

// ComponentName is the header name of the facial component.
const ComponentName = "FACE"

// NumPoints is the number of points in the facial component.
const NumPoints = 62

// Group identifies one facial feature group. Groups are stored in the
// component in declaration order.
type Group int

// Feature groups in component order.
const (
	LeftEye Group = iota
	RightEye
	LeftEyebrow
	RightEyebrow
	MouthOuter
	MouthInner
	NumGroups
)

// GroupSpec describes where a group sits inside the component and how it is
// connected. Closed groups join their last point back to the first.
type GroupSpec struct {
	Name   string
	Start  int
	Len    int
	Closed bool
}

var groupSpecs = [NumGroups]GroupSpec{
	LeftEye:      {Name: "left_eye", Start: 0, Len: 8, Closed: true},
	RightEye:     {Name: "right_eye", Start: 8, Len: 8, Closed: true},
	LeftEyebrow:  {Name: "left_eyebrow", Start: 16, Len: 5},
	RightEyebrow: {Name: "right_eyebrow", Start: 21, Len: 5},
	MouthOuter:   {Name: "mouth_outer", Start: 26, Len: 18, Closed: true},
	MouthInner:   {Name: "mouth_inner", Start: 44, Len: 18, Closed: true},
}

// Spec returns the layout of the group.
func (g Group) Spec() GroupSpec {
	return groupSpecs[g]
}

// String returns the group name.
func (g Group) String() string {
	if g < 0 || g >= NumGroups {
		return fmt.Sprintf("Group(%d)", int(g))
	}
	return groupSpecs[g].Name
}

// Groups returns all groups in component order.
func Groups() []Group {
	return []Group{LeftEye, RightEye, LeftEyebrow, RightEyebrow, MouthOuter, MouthInner}
}

// Edges returns the local connections of the group, including the closing
// edge for closed groups.
func (g Group) Edges() [][2]int {
	s := g.Spec()
	edges := make([][2]int, 0, s.Len)
	for i := s.Start; i < s.Start+s.Len-1; i++ {
		edges = append(edges, [2]int{i, i + 1})
	}
	if s.Closed {
		edges = append(edges, [2]int{s.Start + s.Len - 1, s.Start})
	}
	return edges
}

// Component builds a new FACE component with point names, limbs, white
// colors and an x,y,z point format.
func Component() *pose.Component {
	c := &pose.Component{
		Name:        ComponentName,
		Points:      make([]string, 0, NumPoints),
		Colors:      make([]color.RGBA, 0, NumPoints),
		PointFormat: []string{"x", "y", "z"},
	}

	for _, g := range Groups() {
		s := g.Spec()
		for i := 1; i <= s.Len; i++ {
			c.Points = append(c.Points, fmt.Sprintf("%s_%d", s.Name, i))
			c.Colors = append(c.Colors, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
		c.Limbs = append(c.Limbs, g.Edges()...)
	}

	return c
}
