package estimator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"

	"poseai/internal/pose"
)

// moveNetParts is the COCO keypoint order emitted by MoveNet.
var moveNetParts = [17]pose.BodyPart{
	pose.Nose, pose.LeftEye, pose.RightEye, pose.LeftEar, pose.RightEar,
	pose.LeftShoulder, pose.RightShoulder, pose.LeftElbow, pose.RightElbow,
	pose.LeftWrist, pose.RightWrist, pose.LeftHip, pose.RightHip,
	pose.LeftKnee, pose.RightKnee, pose.LeftAnkle, pose.RightAnkle,
}

// MoveNetParams configures the local MoveNet single-pose model.
type MoveNetParams struct {
	// LibraryPath is the onnxruntime shared library. Empty uses the
	// platform default search path.
	LibraryPath string
	ModelPath   string
	// InputSize is the square input edge: 192 for Lightning, 256 for Thunder.
	InputSize  int
	InputName  string
	OutputName string
}

// MoveNet runs MoveNet through onnxruntime. The session binds fixed input
// and output tensors, so calls are serialised.
type MoveNet struct {
	params  MoveNetParams
	session *ort.AdvancedSession
	input   *ort.Tensor[int32]
	output  *ort.Tensor[float32]
	mu      sync.Mutex
}

var ortInit sync.Once
var ortInitErr error

func NewMoveNet(p MoveNetParams) (*MoveNet, error) {
	if p.InputSize <= 0 {
		p.InputSize = 192
	}

	ortInit.Do(func() {
		if p.LibraryPath != "" {
			ort.SetSharedLibraryPath(p.LibraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", ortInitErr)
	}

	size := int64(p.InputSize)
	input, err := ort.NewEmptyTensor[int32](ort.NewShape(1, size, size, 3))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, int64(len(moveNetParts)), 3))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(p.ModelPath,
		[]string{p.InputName}, []string{p.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session for %s: %w", p.ModelPath, err)
	}

	slog.Info("MoveNet model loaded", "model", p.ModelPath, "input_size", p.InputSize)
	return &MoveNet{params: p, session: session, input: input, output: output}, nil
}

func (m *MoveNet) Estimate(ctx context.Context, frame Frame) ([]pose.Keypoint, error) {
	img, err := frame.Image()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fillInput(m.input.GetData(), img, m.params.InputSize)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("movenet inference: %w", err)
	}
	b := img.Bounds()
	return decodeMoveNet(m.output.GetData(), b.Dx(), b.Dy()), nil
}

func (m *MoveNet) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.session.Destroy(), m.input.Destroy(), m.output.Destroy())
}

// fillInput stretches img to size x size and writes it as NHWC int32 RGB.
func fillInput(dst []int32, img image.Image, size int) {
	resized := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := resized.PixOffset(x, y)
			dst[i] = int32(resized.Pix[off])
			dst[i+1] = int32(resized.Pix[off+1])
			dst[i+2] = int32(resized.Pix[off+2])
			i += 3
		}
	}
}

// decodeMoveNet converts [y, x, score] rows in normalized coordinates to
// pixel keypoints. The input was stretched, so scaling by the original
// dimensions undoes it.
func decodeMoveNet(out []float32, width, height int) []pose.Keypoint {
	kps := make([]pose.Keypoint, 0, len(moveNetParts))
	for i, part := range moveNetParts {
		if 3*i+2 >= len(out) {
			break
		}
		kps = append(kps, pose.Keypoint{
			Name:  part,
			X:     float64(out[3*i+1]) * float64(width),
			Y:     float64(out[3*i]) * float64(height),
			Score: float64(out[3*i+2]),
		})
	}
	// a frame where nothing clears the threshold holds no body
	for _, kp := range kps {
		if kp.Visible() {
			return kps
		}
	}
	return []pose.Keypoint{}
}
