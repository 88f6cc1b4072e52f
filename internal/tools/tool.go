package tools

import (
	"context"
	"encoding/json"

	"plutus/pkg/errors"
)

// Tool represents a callable capability exposed to the agent.
type Tool interface {
	// Name returns the unique tool identifier.
	Name() string
	// Description returns a short human-readable summary.
	Description() string
	// Parameters returns the JSON-schema object describing the arguments.
	Parameters() map[string]interface{}
	// Execute performs the tool's action and returns text for the model.
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (string, error)

// FunctionTool is a simple Tool implementation backed by a handler function.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]interface{}
	handler     HandlerFunc
}

// New creates a new function-backed Tool.
func New(name, description string, parameters map[string]interface{}, handler HandlerFunc) Tool {
	if parameters == nil {
		parameters = ObjectSchema(nil)
	}
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		handler:     handler,
	}
}

// Name returns the tool identifier.
func (t *FunctionTool) Name() string { return t.name }

// Description returns a human description of the tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the argument schema.
func (t *FunctionTool) Parameters() map[string]interface{} { return t.parameters }

// Execute runs the underlying handler.
func (t *FunctionTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	if t.handler == nil {
		return "", errors.New("tool handler is not defined")
	}
	return t.handler(ctx, args)
}

// ObjectSchema builds a JSON-schema object with the given properties.
func ObjectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringParam describes one string property in a schema.
func StringParam(description string, enum ...string) map[string]interface{} {
	p := map[string]interface{}{
		"type":        "string",
		"description": description,
	}
	if len(enum) > 0 {
		p["enum"] = enum
	}
	return p
}

// IntParam describes one integer property in a schema.
func IntParam(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// decodeArgs unmarshals raw tool-call arguments into dest. An empty payload
// leaves dest at its zero value.
func decodeArgs(args json.RawMessage, dest interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, dest); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "malformed tool arguments")
	}
	return nil
}

// toJSON renders a tool result for the model.
func toJSON(v interface{}) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encode tool result")
	}
	return string(out), nil
}
