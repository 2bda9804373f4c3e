package clip

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// The two ONNX exports of the CLIP towers, expected inside the model dir
// alongside the runtime shared library.
const (
	imageModelFile = "visual.onnx"
	textModelFile  = "textual.onnx"
	runtimeLibFile = "libonnxruntime.so"
)

// contextLength is CLIP's fixed text sequence length.
const contextLength = 77

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// towers holds the image and text encoder sessions. ONNX Runtime sessions
// are not safe for concurrent Run calls, so both are mutex-guarded.
type towers struct {
	mu       sync.Mutex
	image    *ort.DynamicAdvancedSession
	text     *ort.DynamicAdvancedSession
	embedDim int64
}

func newTowers(modelDir string) (*towers, error) {
	if err := initORT(filepath.Join(modelDir, runtimeLibFile)); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	imagePath := filepath.Join(modelDir, imageModelFile)
	_, imageOut, err := ort.GetInputOutputInfo(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read image model info: %w", err)
	}
	if len(imageOut) == 0 || len(imageOut[0].Dimensions) != 2 {
		return nil, fmt.Errorf("image model: expected a 2D embedding output")
	}
	embedDim := imageOut[0].Dimensions[1]

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	imageSession, err := ort.NewDynamicAdvancedSession(
		imagePath,
		[]string{"pixel_values"},
		[]string{imageOut[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("create image session: %w", err)
	}

	textPath := filepath.Join(modelDir, textModelFile)
	_, textOut, err := ort.GetInputOutputInfo(textPath)
	if err != nil {
		imageSession.Destroy()
		return nil, fmt.Errorf("read text model info: %w", err)
	}
	if len(textOut) == 0 {
		imageSession.Destroy()
		return nil, fmt.Errorf("text model has no outputs")
	}
	textSession, err := ort.NewDynamicAdvancedSession(
		textPath,
		[]string{"input_ids", "attention_mask"},
		[]string{textOut[0].Name},
		opts,
	)
	if err != nil {
		imageSession.Destroy()
		return nil, fmt.Errorf("create text session: %w", err)
	}

	return &towers{image: imageSession, text: textSession, embedDim: embedDim}, nil
}

// embedImage runs the image tower on one preprocessed [1,3,H,W] tensor.
func (t *towers) embedImage(pixels []float32) ([]float32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	in, err := ort.NewTensor(ort.NewShape(1, 3, imageSize, imageSize), pixels)
	if err != nil {
		return nil, fmt.Errorf("create pixel tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, t.embedDim))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := t.image.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("image inference: %w", err)
	}

	src := out.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

// embedText runs the text tower on a batch of tokenized phrases. inputIDs
// and attentionMask are flat [batch * contextLength] slices. Returns one
// embedding per phrase.
func (t *towers) embedText(inputIDs, attentionMask []int64, batch int64) ([][]float32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	shape := ort.NewShape(batch, contextLength)
	tIDs, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("create input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(batch, t.embedDim))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := t.text.Run([]ort.Value{tIDs, tMask}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("text inference: %w", err)
	}

	flat := out.GetData()
	dim := int(t.embedDim)
	embeddings := make([][]float32, batch)
	for i := range embeddings {
		vec := make([]float32, dim)
		copy(vec, flat[i*dim:(i+1)*dim])
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (t *towers) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.image != nil {
		t.image.Destroy()
		t.image = nil
	}
	if t.text != nil {
		t.text.Destroy()
		t.text = nil
	}
}
