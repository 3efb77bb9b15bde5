package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeekModel(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{"string model", `{"model":"smart","stream":true}`, "smart", true},
		{"nested model ignored", `{"meta":{"model":"smart"}}`, "", false},
		{"numeric model", `{"model":7}`, "", false},
		{"array body", `[{"model":"smart"}]`, "", false},
		{"invalid json", `{"model":`, "", false},
		{"empty", ``, "", false},
		{"duplicate model keys", `{"model":"plain","model":"smart"}`, "", false},
		{"escaped duplicate key", `{"model":"smart","mod\u0065l":"plain"}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PeekModel([]byte(tt.body))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewriteModel(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		model   string
		want    string
		wantErr error
	}{
		{
			name:  "keys come out sorted",
			body:  `{"model":"smart","b":1,"a":2}`,
			model: "claude-sonnet-4",
			want:  `{"a":2,"b":1,"model":"claude-sonnet-4"}`,
		},
		{
			name:  "numbers keep their precision",
			body:  `{"model":"smart","seed":12345678901234567890,"temperature":0.70}`,
			model: "gemini-2.5-pro",
			want:  `{"model":"gemini-2.5-pro","seed":12345678901234567890,"temperature":0.70}`,
		},
		{
			name:  "html is not escaped",
			body:  `{"model":"smart","prompt":"<a> & <b>"}`,
			model: "gpt-5",
			want:  `{"model":"gpt-5","prompt":"<a> & <b>"}`,
		},
		{
			name:    "missing model",
			body:    `{"messages":[]}`,
			model:   "gpt-5",
			wantErr: ErrNoModelField,
		},
		{
			name:    "non string model",
			body:    `{"model":null}`,
			model:   "gpt-5",
			wantErr: ErrNoModelField,
		},
		{
			name:    "null body",
			body:    `null`,
			model:   "gpt-5",
			wantErr: ErrNotJSONObject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RewriteModel([]byte(tt.body), tt.model)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestRewriteModel_RejectsMalformedBodies(t *testing.T) {
	for _, body := range []string{
		`[1,2,3]`,
		`{"model":"smart"} {"model":"other"}`,
		`{"model":"smart"`,
		``,
	} {
		t.Run(body, func(t *testing.T) {
			_, err := RewriteModel([]byte(body), "x")
			assert.Error(t, err)
		})
	}
}

func TestRewriteModel_Deterministic(t *testing.T) {
	body := []byte(`{"z":{"y":1,"x":2},"model":"smart","a":[3,2,1]}`)

	first, err := RewriteModel(body, "qwen3-coder")
	require.NoError(t, err)
	second, err := RewriteModel(body, "qwen3-coder")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, `{"a":[3,2,1],"model":"qwen3-coder","z":{"x":2,"y":1}}`, string(first))
}
