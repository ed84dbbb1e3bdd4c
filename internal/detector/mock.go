package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	faces []FaceMesh
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []FaceMesh) {
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]FaceMesh, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// SyntheticFaceMesh returns a deterministic full-size face mesh laid out on a
// grid inside the unit square. Landmark i sits at column i%26, row i/26, so
// any index can be checked without a real detector.
func SyntheticFaceMesh() FaceMesh {
	mesh := FaceMesh{
		Points: make([]Point3D, NumMeshLandmarks),
		Score:  0.98,
	}
	for i := range mesh.Points {
		mesh.Points[i] = SyntheticPoint(i)
	}
	return mesh
}

// SyntheticPoint returns the location SyntheticFaceMesh assigns to index i.
func SyntheticPoint(i int) Point3D {
	return Point3D{
		X: 0.25 + float64(i%26)*0.02,
		Y: 0.20 + float64(i/26)*0.03,
		Z: -0.001 * float64(i%7),
	}
}
