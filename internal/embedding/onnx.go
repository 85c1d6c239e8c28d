//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// modelTensors holds the pre-allocated input and output tensors bound to one
// ONNX session. Binding them once at session creation avoids per-note tensor
// allocation; Embed overwrites the input data in place before each Run.
type modelTensors struct {
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

func newModelTensors(maxTokens, dimensions int) (*modelTensors, error) {
	mt := &modelTensors{}
	seqShape := ort.NewShape(1, int64(maxTokens))
	var err error
	if mt.inputIDs, err = ort.NewTensor(seqShape, make([]int64, maxTokens)); err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	if mt.attentionMask, err = ort.NewTensor(seqShape, make([]int64, maxTokens)); err != nil {
		mt.destroy()
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	if mt.tokenTypeIDs, err = ort.NewTensor(seqShape, make([]int64, maxTokens)); err != nil {
		mt.destroy()
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	if mt.output, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions)); err != nil {
		mt.destroy()
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	return mt, nil
}

func (mt *modelTensors) destroy() {
	for _, t := range []ort.ArbitraryTensor{mt.inputIDs, mt.attentionMask, mt.tokenTypeIDs, mt.output} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	mt.inputIDs, mt.attentionMask, mt.tokenTypeIDs, mt.output = nil, nil, nil, nil
}

// ONNXProvider runs a sentence-embedding model through ONNX Runtime. It needs
// CGO and the onnxruntime shared library at run time. Inference is serialized
// on a mutex because the session owns a single set of bound tensors.
type ONNXProvider struct {
	session    *ort.AdvancedSession
	tensors    *modelTensors
	tokenizer  Tokenizer
	cache      *textCache
	dimensions int
	maxTokens  int
	mu         sync.Mutex
}

// NewONNXProvider loads the model at cfg.ModelPath, initializing the ONNX
// environment on first use.
func NewONNXProvider(cfg EngineConfig) (*ONNXProvider, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	tensors, err := newModelTensors(cfg.MaxTokens, cfg.Dimensions)
	if err != nil {
		return nil, err
	}
	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{tensors.inputIDs, tensors.attentionMask, tensors.tokenTypeIDs},
		[]ort.ArbitraryTensor{tensors.output},
		nil,
	)
	if err != nil {
		tensors.destroy()
		return nil, fmt.Errorf("open session %s: %w", cfg.ModelPath, err)
	}

	return &ONNXProvider{
		session:    session,
		tensors:    tensors,
		tokenizer:  &WordHashTokenizer{},
		cache:      newTextCache(cfg.CacheSize),
		dimensions: cfg.Dimensions,
		maxTokens:  cfg.MaxTokens,
	}, nil
}

// Embed returns the normalized vector for text, serving repeats from the
// content-hash cache.
func (p *ONNXProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := p.cache.get(text); ok {
		return vec, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := p.tokenizer.Tokenize(text, p.maxTokens)
	copy(p.tensors.inputIDs.GetData(), inputIDs)
	copy(p.tensors.attentionMask.GetData(), attentionMask)
	copy(p.tensors.tokenTypeIDs.GetData(), tokenTypeIDs)

	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	vec := make([]float32, p.dimensions)
	copy(vec, p.tensors.output.GetData()[:p.dimensions])
	NormalizeL2Slice(vec)
	p.cache.put(text, vec)
	return vec, nil
}

// EmbedBatch embeds each text in order; the first failure aborts the batch.
func (p *ONNXProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Dimensions returns the vector dimension.
func (p *ONNXProvider) Dimensions() int { return p.dimensions }

// Close destroys the session and its tensors.
func (p *ONNXProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.session != nil {
		err = p.session.Destroy()
		p.session = nil
	}
	if p.tensors != nil {
		p.tensors.destroy()
		p.tensors = nil
	}
	return err
}
