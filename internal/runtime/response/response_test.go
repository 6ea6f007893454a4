package response

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drblury/kafkaflow/internal/runtime/headers"
)

func TestEnsureResponseWrapsRawValues(t *testing.T) {
	for _, v := range []any{1, "text", []byte("b"), nil, map[string]any{"a": 1}} {
		resp := EnsureResponse(v)
		assert.Equal(t, v, resp.Body)
		assert.NotNil(t, resp.Headers)
		assert.Empty(t, resp.Headers)
	}
}

func TestEnsureResponseIsIdentity(t *testing.T) {
	original := New(1, Headers{"some": 1})
	resp := EnsureResponse(original)

	assert.Same(t, original, resp)
	assert.Equal(t, 1, resp.Body)
	assert.Equal(t, Headers{"some": 1}, resp.Headers)
}

func TestEnsureResponseNilPointer(t *testing.T) {
	var nilResp *Response
	resp := EnsureResponse(nilResp)
	assert.NotSame(t, nilResp, resp)
	assert.Equal(t, nilResp, resp.Body)
}

func TestAddHeaders(t *testing.T) {
	tests := []struct {
		name   string
		opts   []HeaderOption
		update Headers
		want   Headers
	}{
		{
			name:   "override by default",
			update: Headers{"some": 2},
			want:   Headers{"some": 2},
		},
		{
			name:   "keep existing without override",
			opts:   []HeaderOption{WithoutOverride()},
			update: Headers{"some": 2},
			want:   Headers{"some": 1},
		},
		{
			name:   "new keys are added without override",
			opts:   []HeaderOption{WithoutOverride()},
			update: Headers{"some": 2, "other": 3},
			want:   Headers{"some": 1, "other": 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := New(1, Headers{"some": 1})
			resp.AddHeaders(tt.update, tt.opts...)
			assert.Equal(t, tt.want, resp.Headers)
		})
	}
}

func TestAddHeadersOnZeroValue(t *testing.T) {
	var resp Response
	resp.AddHeaders(Headers{"k": "v"})
	assert.Equal(t, Headers{"k": "v"}, resp.Headers)
}

func TestTextHeaders(t *testing.T) {
	resp := New(nil, Headers{"n": 1, "s": "x", "b": []byte("y"), "skip": nil, "f": true})
	assert.Equal(t, headers.Headers{"n": "1", "s": "x", "b": "y", "f": "true"}, resp.TextHeaders())
}
