// Package detector provides face mesh detection interfaces and types used to
// extract facial landmarks from images.
package detector

// NumMeshLandmarks is the number of landmarks in a MediaPipe face mesh
// without iris refinement. Refined meshes carry 478.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const NumMeshLandmarks = 468

// Point3D represents a 3D point in space with x, y, z coordinates.
// Face mesh coordinates are normalized to the image: x and y in [0,1],
// z relative to the face center.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceMesh represents the landmarks of a single detected face.
type FaceMesh struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// Point returns the landmark at index i and whether it exists.
func (m *FaceMesh) Point(i int) (Point3D, bool) {
	if m == nil || i < 0 || i >= len(m.Points) {
		return Point3D{}, false
	}
	return m.Points[i], true
}

// Scale returns a copy of the mesh with x and y multiplied by the image width
// and height, converting normalized coordinates to pixels.
func (m *FaceMesh) Scale(width, height float64) *FaceMesh {
	if m == nil {
		return nil
	}

	scaled := &FaceMesh{
		Points: make([]Point3D, len(m.Points)),
		Score:  m.Score,
	}
	for i, p := range m.Points {
		scaled.Points[i] = Point3D{X: p.X * width, Y: p.Y * height, Z: p.Z * width}
	}
	return scaled
}
