// Package mock provides test doubles for pdfask interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/m-mizutani/pdfask"
)

var _ pdfask.LLMClient = &LLMClientMock{}

// LLMClientMock is a mock implementation of pdfask.LLMClient.
//
//	client := &mock.LLMClientMock{
//		GenerateFunc: func(ctx context.Context, input ...pdfask.Input) (*pdfask.Response, error) {
//			return &pdfask.Response{Texts: []string{"OK"}}, nil
//		},
//	}
type LLMClientMock struct {
	// GenerateFunc mocks the Generate method.
	GenerateFunc func(ctx context.Context, input ...pdfask.Input) (*pdfask.Response, error)

	calls struct {
		Generate []GenerateCall
	}
	lockGenerate sync.RWMutex
}

// GenerateCall records one call of Generate.
type GenerateCall struct {
	Ctx   context.Context
	Input []pdfask.Input
}

// Generate calls GenerateFunc.
func (m *LLMClientMock) Generate(ctx context.Context, input ...pdfask.Input) (*pdfask.Response, error) {
	if m.GenerateFunc == nil {
		panic("LLMClientMock.GenerateFunc: method is nil but LLMClient.Generate was just called")
	}
	m.lockGenerate.Lock()
	m.calls.Generate = append(m.calls.Generate, GenerateCall{Ctx: ctx, Input: input})
	m.lockGenerate.Unlock()
	return m.GenerateFunc(ctx, input...)
}

// GenerateCalls gets all the calls that were made to Generate.
func (m *LLMClientMock) GenerateCalls() []GenerateCall {
	m.lockGenerate.RLock()
	defer m.lockGenerate.RUnlock()
	return append([]GenerateCall(nil), m.calls.Generate...)
}

// Reply returns a mock that always answers with texts.
func Reply(texts ...string) *LLMClientMock {
	return &LLMClientMock{
		GenerateFunc: func(ctx context.Context, input ...pdfask.Input) (*pdfask.Response, error) {
			return &pdfask.Response{Texts: texts}, nil
		},
	}
}

// Fail returns a mock that always fails with err.
func Fail(err error) *LLMClientMock {
	return &LLMClientMock{
		GenerateFunc: func(ctx context.Context, input ...pdfask.Input) (*pdfask.Response, error) {
			return nil, err
		},
	}
}
