package fallback

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

var (
	ErrNotJSONObject = errors.New("body is not a JSON object")
	ErrNoModelField  = errors.New("body has no string model field")
)

// PeekModel returns the top-level string "model" of a JSON object body without
// decoding the rest of the payload
func PeekModel(body []byte) (string, bool) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return "", false
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return "", false
	}
	var model gjson.Result
	count := 0
	parsed.ForEach(func(key, value gjson.Result) bool {
		if key.String() == "model" {
			model = value
			count++
		}
		return count < 2
	})
	// duplicate keys are ambiguous, decoders disagree on which one wins
	if count != 1 || model.Type != gjson.String {
		return "", false
	}
	return model.String(), true
}

// RewriteModel sets the top-level "model" to model. Every other key is kept and the
// output uses sorted keys so the same input always produces the same bytes.
func RewriteModel(body []byte, model string) ([]byte, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	if _, ok := obj["model"].(string); !ok {
		return nil, ErrNoModelField
	}
	obj["model"] = model
	return encodeObject(obj)
}

// decodeObject keeps numbers as json.Number so large integers and exact decimals
// survive the round trip untouched
func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if obj == nil {
		return nil, ErrNotJSONObject
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode body: trailing data after object")
	}
	return obj, nil
}

func encodeObject(obj map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
