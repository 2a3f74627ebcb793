// Copyright 2026 Oxbow Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tools exposes the conversational data surface: schema discovery,
// query execution, and datasource synchronization, each as a JSON-described
// tool an assistant runtime can invoke.
package tools

import (
	"context"
	"fmt"
)

// Tool is one invocable capability. Each tool encapsulates a single operation
// against a conversation's embedded database.
type Tool interface {
	// Name returns the tool's unique identifier.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// InputSchema returns the JSON Schema for tool parameters.
	InputSchema() *JSONSchema

	// Execute runs the tool with given parameters.
	Execute(ctx context.Context, params map[string]interface{}) (*Result, error)
}

// Result is the outcome of a tool execution.
type Result struct {
	// Success indicates if the tool executed successfully.
	Success bool

	// Data contains the result payload (shape varies by tool).
	Data interface{}

	// Error contains structured error information if execution failed.
	Error *Error
}

// Error is a structured tool execution error.
type Error struct {
	// Code is a machine-readable error code.
	Code string

	// Message is a human-readable error message.
	Message string

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// JSONSchema describes tool parameters, following the JSON Schema spec.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Default     interface{}            `json:"default,omitempty"`
}

// failure builds an error result without a Go-level error; tool failures are
// data, not panics, so the runtime can surface them to the conversation.
func failure(code, message string, retryable bool) *Result {
	return &Result{
		Success: false,
		Error:   &Error{Code: code, Message: message, Retryable: retryable},
	}
}

// stringParam extracts a required string parameter.
func stringParam(params map[string]interface{}, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %s must be a non-empty string", key)
	}
	return s, nil
}

// optionalString extracts an optional string parameter.
func optionalString(params map[string]interface{}, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// stringSliceParam extracts an optional []string parameter from a JSON array.
func stringSliceParam(params map[string]interface{}, key string) ([]string, error) {
	v, ok := params[key]
	if !ok {
		return nil, nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("parameter %s must be an array of strings", key)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %s must be an array of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// boolParam extracts an optional bool parameter with a default.
func boolParam(params map[string]interface{}, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
