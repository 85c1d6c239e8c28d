//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errNoCGO = errors.New("onnx provider requires CGO; rebuild with CGO_ENABLED=1 and the onnxruntime library")

// ONNXProvider is unavailable without CGO; see onnx.go for the real one.
type ONNXProvider struct{}

// NewONNXProvider always fails in CGO-less builds. The engine surfaces the
// error and the hybrid scorer runs on the lexical signal alone.
func NewONNXProvider(EngineConfig) (*ONNXProvider, error) {
	return nil, errNoCGO
}

func (*ONNXProvider) Embed(context.Context, string) ([]float32, error) { return nil, errNoCGO }

func (*ONNXProvider) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errNoCGO
}

func (*ONNXProvider) Dimensions() int { return 0 }

func (*ONNXProvider) Close() error { return nil }
