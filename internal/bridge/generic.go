package bridge

import (
	"fmt"
)

// GenericFramework is the identifier of the built-in adapter.
const GenericFramework = "generic"

// Symbol names and signatures looked up by GenericAdapter.
const (
	ModelFnSymbol     = "ModelFn"
	TransformFnSymbol = "TransformFn"
)

type (
	// ModelFn loads the model from the model directory.
	ModelFn = func(modelDir string) (any, error)
	// TransformFn turns a request body into a response body and content type.
	TransformFn = func(model any, body, contentType, accept string) ([]byte, string, error)
)

type genericTransformer struct {
	modelDir  string
	load      ModelFn
	transform TransformFn
	model     any
}

// GenericAdapter builds a Transformer from a module exporting TransformFn and,
// optionally, ModelFn.
func GenericAdapter(mod Module, modelDir string) (Transformer, error) {
	t := &genericTransformer{modelDir: modelDir}
	sym, err := mod.Lookup(TransformFnSymbol)
	if err != nil {
		return nil, fmt.Errorf("generic adapter: %w", err)
	}
	switch fn := sym.(type) {
	case TransformFn:
		t.transform = fn
	case *TransformFn:
		t.transform = *fn
	default:
		return nil, fmt.Errorf("generic adapter: %s has type %T", TransformFnSymbol, sym)
	}
	if sym, err := mod.Lookup(ModelFnSymbol); err == nil {
		switch load := sym.(type) {
		case ModelFn:
			t.load = load
		case *ModelFn:
			t.load = *load
		default:
			return nil, fmt.Errorf("generic adapter: %s has type %T", ModelFnSymbol, sym)
		}
	}
	if t.transform == nil {
		return nil, fmt.Errorf("generic adapter: %s is nil", TransformFnSymbol)
	}
	return t, nil
}

func (t *genericTransformer) Initialize() error {
	if t.load == nil {
		return nil
	}
	m, err := t.load(t.modelDir)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	t.model = m
	return nil
}

func (t *genericTransformer) Model() any { return t.model }

func (t *genericTransformer) Transform(model any, body, contentType, accept string) (Response, error) {
	out, ct, err := t.transform(model, body, contentType, accept)
	if err != nil {
		return Response{}, err
	}
	if ct == "" {
		ct = accept
	}
	return Response{Body: out, ContentType: ct}, nil
}
