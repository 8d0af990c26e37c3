package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/schema"
)

// FormatOptions tunes Format. A nil IsError derives the flag from the payload.
type FormatOptions struct {
	IsError *bool
}

// Format renders a tool payload as a content block.
// Text content is always present: strings verbatim, anything else as indented JSON.
// Payloads that normalize to a JSON object are also returned as structured content,
// and an "error" key in such an object marks the result as an error.
func Format(payload any, opts FormatOptions) *mcp.CallToolResult {
	text, normalized := normalize(payload)

	res := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
	if obj, ok := normalized.(map[string]any); ok {
		res.StructuredContent = obj
		_, res.IsError = obj["error"]
	}
	if opts.IsError != nil {
		res.IsError = *opts.IsError
	}
	return res
}

// FormatError builds the in-band {error: message} payload shared by validation
// and execution failures. Validation failures also list their issues.
func FormatError(err error) *mcp.CallToolResult {
	payload := map[string]any{"error": err.Error()}

	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		payload["issues"] = ve.Issues
	}
	return Format(payload, FormatOptions{})
}

// normalize returns the text form of payload and its JSON-decoded shape.
// Values that cannot be encoded fall back to their fmt representation.
func normalize(payload any) (string, any) {
	if s, ok := payload.(string); ok {
		return s, s
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload), nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw), nil
	}
	pretty, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return string(raw), decoded
	}
	return string(pretty), decoded
}
