package processors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"faceswap/internal/logging"
)

// Built-in processor names.
const (
	FaceSwapper        = "face_swapper"
	FaceEnhancer       = "face_enhancer"
	FrameEnhancer      = "frame_enhancer"
	FrameColorizer     = "frame_colorizer"
	LipSyncer          = "lip_syncer"
	AgeModifier        = "age_modifier"
	ExpressionRestorer = "expression_restorer"
	FaceEditor         = "face_editor"
	BackgroundRemover  = "background_remover"
	FaceDebugger       = "face_debugger"
)

const modelExt = ".onnx"

// faceAnalysisModels back face detection, landmarking and recognition for
// every processor operating on faces.
var faceAnalysisModels = []string{"yoloface_8n", "2dfan4", "arcface_w600k_r50"}

type builtinSpec struct {
	name           string
	defaultModel   string
	faceAnalysis   bool
	requiresSource bool
}

var builtinSpecs = []builtinSpec{
	{name: FaceSwapper, defaultModel: "inswapper_128", faceAnalysis: true, requiresSource: true},
	{name: FaceEnhancer, defaultModel: "gfpgan_1.4", faceAnalysis: true},
	{name: FrameEnhancer, defaultModel: "real_esrgan_x2"},
	{name: FrameColorizer, defaultModel: "ddcolor"},
	{name: LipSyncer, defaultModel: "wav2lip_gan_96", faceAnalysis: true, requiresSource: true},
	{name: AgeModifier, defaultModel: "styleganex_age", faceAnalysis: true},
	{name: ExpressionRestorer, defaultModel: "live_portrait", faceAnalysis: true},
	{name: FaceEditor, defaultModel: "live_portrait", faceAnalysis: true},
	{name: BackgroundRemover, defaultModel: "rmbg_1.4"},
	{name: FaceDebugger},
}

// RegisterBuiltins adds every built-in processor to r.
func RegisterBuiltins(r *Registry) error {
	for _, spec := range builtinSpecs {
		if err := r.Register(spec.name, func(env Env) (Processor, error) {
			return newModelProcessor(spec, env), nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultRegistry returns a registry populated with the built-ins.
func NewDefaultRegistry(env Env) (*Registry, error) {
	r := NewRegistry(env)
	if err := RegisterBuiltins(r); err != nil {
		return nil, err
	}
	return r, nil
}

// modelSet is the resolved list of model files a processor reads.
type modelSet struct {
	model string
	files []string
}

type modelProcessor struct {
	spec      builtinSpec
	modelsDir string
	options   map[string]any
	logger    *slog.Logger

	mu     sync.Mutex
	models *modelSet
}

func newModelProcessor(spec builtinSpec, env Env) *modelProcessor {
	return &modelProcessor{
		spec:      spec,
		modelsDir: env.ModelsDir,
		options:   env.Options[spec.name],
		logger:    env.Logger.With(logging.Processor(spec.name)),
	}
}

func (p *modelProcessor) Name() string { return p.spec.name }

func (p *modelProcessor) modelName(opts map[string]any) string {
	for _, source := range []map[string]any{opts, p.options} {
		if value, ok := source["model"].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return p.spec.defaultModel
}

func (p *modelProcessor) requiredFiles(model string) []string {
	if p.spec.defaultModel == "" {
		return nil
	}
	var files []string
	if p.spec.faceAnalysis {
		for _, name := range faceAnalysisModels {
			files = append(files, filepath.Join(p.modelsDir, name+modelExt))
		}
	}
	return append(files, filepath.Join(p.modelsDir, model+modelExt))
}

// PreCheck verifies every model file is present and readable.
func (p *modelProcessor) PreCheck(ctx context.Context) Health {
	return p.PreCheckFrame(ctx, nil)
}

// PreCheckFrame checks the model files for the model frame selects.
func (p *modelProcessor) PreCheckFrame(_ context.Context, frame *Frame) Health {
	files := p.requiredFiles(p.modelName(frame.OptionsFor(p.spec.name)))
	if len(files) > 0 && strings.TrimSpace(p.modelsDir) == "" {
		return Unhealthy(p.spec.name, "models directory not configured")
	}
	var missing []string
	for _, path := range files {
		if err := unix.Access(path, unix.R_OK); err != nil {
			missing = append(missing, filepath.Base(path))
		}
	}
	if len(missing) > 0 {
		return Unhealthy(p.spec.name, fmt.Sprintf("missing model files: %s", strings.Join(missing, ", ")))
	}
	return Healthy(p.spec.name)
}

// loadModels resolves the model set once until the pool is cleared.
func (p *modelProcessor) loadModels(opts map[string]any) (*modelSet, error) {
	model := p.modelName(opts)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.models != nil && p.models.model == model {
		return p.models, nil
	}
	files := p.requiredFiles(model)
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", filepath.Base(path), err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("model %s is a directory", filepath.Base(path))
		}
	}
	p.models = &modelSet{model: model, files: files}
	p.logger.Debug("model set loaded", logging.String("model", model), logging.Int("files", len(files)))
	return p.models, nil
}

func (p *modelProcessor) Process(ctx context.Context, frame *Frame) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(frame.MediaPath) == "" {
		return nil, fmt.Errorf("no media to process")
	}
	if p.spec.requiresSource && len(frame.SourcePaths) == 0 {
		return nil, fmt.Errorf("%s requires at least one source path", p.spec.name)
	}
	opts := frame.OptionsFor(p.spec.name)
	models, err := p.loadModels(opts)
	if err != nil {
		return nil, err
	}

	applied := map[string]any{"model": models.model}
	if p.spec.requiresSource {
		applied["sources"] = len(frame.SourcePaths)
	}
	for key, value := range p.options {
		if _, ok := applied[key]; !ok {
			applied[key] = value
		}
	}
	for key, value := range opts {
		applied[key] = value
	}
	if p.spec.defaultModel == "" {
		delete(applied, "model")
	}
	if frame.Data == nil {
		frame.Data = map[string]any{}
	}
	frame.Data[p.spec.name] = applied
	frame.Trail = append(frame.Trail, p.spec.name)
	return frame, nil
}

// ClearInferencePool drops the cached model set. Safe when nothing loaded.
func (p *modelProcessor) ClearInferencePool() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.models = nil
}

// RequiredModels lists the model files a built-in needs with its configured
// model, relative to the models directory. Unknown names return nil.
func RequiredModels(name string, options map[string]any) []string {
	key := normalizeName(name)
	for _, spec := range builtinSpecs {
		if spec.name != key {
			continue
		}
		p := &modelProcessor{spec: spec, options: options}
		files := p.requiredFiles(p.modelName(nil))
		for i, file := range files {
			files[i] = filepath.Base(file)
		}
		return files
	}
	return nil
}
