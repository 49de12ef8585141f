// Package pose provides body-pose frames shown while the camera is on during
// a workout. The only implementation today is a randomized mock.
package pose

import (
	"sync"

	"github.com/brianvoe/gofakeit/v6"
)

// Keypoint is a normalized body landmark. X and Y are in [0,1].
type Keypoint struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Frame is one pose estimate.
type Frame struct {
	Keypoints []Keypoint `json:"keypoints"`
	FormScore int        `json:"formScore"`
	Feedback  string     `json:"feedback"`
}

// Source produces pose frames.
type Source interface {
	Next() Frame
}

// standing is a neutral upright pose.
var standing = []Keypoint{
	{Name: "nose", X: 0.50, Y: 0.15, Score: 0.95},
	{Name: "leftShoulder", X: 0.48, Y: 0.22, Score: 0.92},
	{Name: "rightShoulder", X: 0.52, Y: 0.22, Score: 0.91},
	{Name: "leftElbow", X: 0.42, Y: 0.38, Score: 0.88},
	{Name: "rightElbow", X: 0.58, Y: 0.38, Score: 0.87},
	{Name: "leftWrist", X: 0.40, Y: 0.52, Score: 0.85},
	{Name: "rightWrist", X: 0.60, Y: 0.52, Score: 0.84},
	{Name: "leftHip", X: 0.48, Y: 0.55, Score: 0.90},
	{Name: "rightHip", X: 0.52, Y: 0.55, Score: 0.89},
	{Name: "leftKnee", X: 0.47, Y: 0.75, Score: 0.82},
	{Name: "rightKnee", X: 0.53, Y: 0.75, Score: 0.81},
	{Name: "leftAnkle", X: 0.46, Y: 0.95, Score: 0.78},
	{Name: "rightAnkle", X: 0.54, Y: 0.95, Score: 0.77},
}

const (
	jitter        = 0.01
	minFormScore  = 85
	maxFormScore  = 99
	defaultCueing = "Keep your core tight!"
)

// MockSource jitters a standing pose and scores it randomly.
type MockSource struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewMockSource returns a MockSource. A seed of 0 picks a random seed.
func NewMockSource(seed int64) *MockSource {
	return &MockSource{faker: gofakeit.New(seed)}
}

// Next returns a new frame.
func (m *MockSource) Next() Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	kps := make([]Keypoint, len(standing))
	for i, kp := range standing {
		kps[i] = Keypoint{
			Name:  kp.Name,
			X:     kp.X + m.faker.Float64Range(-jitter, jitter),
			Y:     kp.Y + m.faker.Float64Range(-jitter, jitter),
			Score: kp.Score,
		}
	}
	return Frame{
		Keypoints: kps,
		FormScore: m.faker.IntRange(minFormScore, maxFormScore),
		Feedback:  defaultCueing,
	}
}
