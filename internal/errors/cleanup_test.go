package errors

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/rs/zerolog"
)

type mockCloser struct {
	closeErr error
	closed   bool
}

func (m *mockCloser) Close() error {
	m.closed = true
	return m.closeErr
}

func TestDeferClose(t *testing.T) {
	tests := []struct {
		name       string
		closer     io.Closer
		wantLogged bool
	}{
		{
			name:       "nil closer",
			closer:     nil,
			wantLogged: false,
		},
		{
			name:       "successful close",
			closer:     &mockCloser{},
			wantLogged: false,
		},
		{
			name:       "close with error",
			closer:     &mockCloser{closeErr: errors.New("link busy")},
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)

			DeferClose(logger, tt.closer, "close link")

			if tt.closer != nil && !tt.closer.(*mockCloser).closed {
				t.Error("Close() was not called")
			}

			if logged := buf.Len() > 0; logged != tt.wantLogged {
				t.Errorf("logged = %v, want %v", logged, tt.wantLogged)
			}
		})
	}
}

func TestIsStartupFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrInstrumentationSourceMissing, true},
		{fmt.Errorf("resolve pid 42: %w", ErrTargetUnresolved), true},
		{fmt.Errorf("attach: %w", ErrNoProbesAttached), true},
		{ErrTargetUnspecified, true},
		{errors.New("symbol not found"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsStartupFailure(tt.err); got != tt.want {
			t.Errorf("IsStartupFailure(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
