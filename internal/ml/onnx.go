package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// FeatureCount is the width of the classifier input vector. It must match
// the feature list the strategies assemble and the exported model's input.
const FeatureCount = 17

var ortInit sync.Once

func initializeORT(libraryPath string) error {
	var err error
	ortInit.Do(func() {
		if libraryPath == "" {
			switch runtime.GOOS {
			case "windows":
				libraryPath = "onnxruntime.dll"
			case "darwin":
				libraryPath = "libonnxruntime.dylib"
			default:
				libraryPath = "/usr/lib/libonnxruntime.so"
			}
		}
		ort.SetSharedLibraryPath(libraryPath)
		err = ort.InitializeEnvironment()
	})
	return err
}

// Model wraps an ONNX classifier session with fixed input/output tensors.
type Model struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

var _ Predictor = (*Model)(nil)

// NewModel loads an exported classifier from modelPath. libraryPath points at
// the onnxruntime shared library; empty selects a platform default.
func NewModel(modelPath, libraryPath string) (*Model, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if err := initializeORT(libraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	inputShape := ort.NewShape(1, FeatureCount)
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, FeatureCount))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, 2)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"probabilities"},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &Model{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

// Predict runs one inference and returns the positive-class probability.
func (m *Model) Predict(features []float32) (float32, error) {
	if len(features) != FeatureCount {
		return 0, fmt.Errorf("expected %d features, got %d", FeatureCount, len(features))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.input.GetData(), features)
	if err := m.session.Run(); err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}

	// Output layout is [p(negative), p(positive)].
	out := m.output.GetData()
	if len(out) < 2 {
		return 0, fmt.Errorf("unexpected output width %d", len(out))
	}
	return out[1], nil
}

// Close releases the session and its tensors.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
}

// DefaultThreshold is used when no tuned threshold sidecar is available.
const DefaultThreshold = 0.5

// LoadThreshold reads the tuned decision threshold from its JSON sidecar.
// A missing or unreadable sidecar yields the fallback.
func LoadThreshold(path string, fallback float64) float64 {
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	var sidecar struct {
		Threshold float64 `json:"threshold"`
	}
	if err := json.Unmarshal(data, &sidecar); err != nil || sidecar.Threshold <= 0 {
		return fallback
	}
	return sidecar.Threshold
}
