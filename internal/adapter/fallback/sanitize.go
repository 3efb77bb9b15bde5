package fallback

import (
	"github.com/thushan/switchback/internal/core/constants"
)

var reasoningBlockTypes = map[string]struct{}{
	"thinking":          {},
	"redacted_thinking": {},
}

// SanitizeThinking strips reasoning blocks from every message of a chat payload.
// A message left with no content gets a single placeholder text block so the
// conversation keeps its shape. changed is false when nothing was removed, in
// which case the returned body is nil.
func SanitizeThinking(body []byte) (sanitized []byte, changed bool, err error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, false, err
	}

	if messages, ok := obj["messages"].([]any); ok {
		for _, m := range messages {
			msg, ok := m.(map[string]any)
			if !ok {
				continue
			}
			if content, removed := stripBlocks(msg["content"], isReasoningBlock, placeholderTextBlock); removed {
				msg["content"] = content
				changed = true
			}
		}
	}

	// gemini style payloads carry reasoning as parts flagged with thought
	if contents, ok := obj["contents"].([]any); ok {
		for _, c := range contents {
			entry, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if parts, removed := stripBlocks(entry["parts"], isThoughtPart, placeholderPart); removed {
				entry["parts"] = parts
				changed = true
			}
			if dropSignatures(entry["parts"]) {
				changed = true
			}
		}
	}

	if !changed {
		return nil, false, nil
	}

	out, err := encodeObject(obj)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func stripBlocks(raw any, drop func(map[string]any) bool, placeholder func() map[string]any) ([]any, bool) {
	blocks, ok := raw.([]any)
	if !ok {
		return nil, false
	}

	kept := make([]any, 0, len(blocks))
	for _, b := range blocks {
		if block, ok := b.(map[string]any); ok && drop(block) {
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == len(blocks) {
		return nil, false
	}
	if len(kept) == 0 {
		kept = append(kept, placeholder())
	}
	return kept, true
}

func isReasoningBlock(block map[string]any) bool {
	t, _ := block["type"].(string)
	_, ok := reasoningBlockTypes[t]
	return ok
}

func isThoughtPart(part map[string]any) bool {
	thought, _ := part["thought"].(bool)
	return thought
}

// dropSignatures removes thought signatures attached to function call parts
func dropSignatures(raw any) bool {
	parts, ok := raw.([]any)
	if !ok {
		return false
	}
	dropped := false
	for _, p := range parts {
		part, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"thoughtSignature", "thought_signature"} {
			if _, ok := part[key]; ok {
				delete(part, key)
				dropped = true
			}
		}
	}
	return dropped
}

func placeholderTextBlock() map[string]any {
	return map[string]any{"type": "text", "text": constants.SanitizedPlaceholder}
}

func placeholderPart() map[string]any {
	return map[string]any{"text": constants.SanitizedPlaceholder}
}
