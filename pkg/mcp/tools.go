package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/dimlens/pkg/breakdown"
	"github.com/Sumatoshi-tech/dimlens/pkg/heatmap"
	"github.com/Sumatoshi-tech/dimlens/pkg/report"
)

// Tool name constants.
const (
	ToolNameCompare       = "dimlens_compare"
	ToolNameFilterOptions = "dimlens_filter_options"
)

// MaxPayloadBytes is the maximum allowed size of an inline payload (8 MB).
const MaxPayloadBytes = 8 << 20

// Sentinel errors for tool input validation.
var (
	// ErrEmptyPayload indicates the payload parameter is empty.
	ErrEmptyPayload = errors.New("payload parameter is required and must not be empty")
	// ErrPayloadTooLarge indicates the payload exceeds the size limit.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	// ErrNegativeTop indicates a negative contributor limit.
	ErrNegativeTop = errors.New("top must not be negative")
)

// CompareInput is the input schema for the dimlens_compare tool.
type CompareInput struct {
	Payload     string   `json:"payload"                jsonschema:"breakdown payload as a JSON document with current and baseline windows"`
	ColumnOrder []string `json:"column_order,omitempty" jsonschema:"columns to list first; the rest follow alphabetically"`
	Top         int      `json:"top,omitempty"          jsonschema:"number of top contributors to return (default: server setting)"`
	Align       bool     `json:"align,omitempty"        jsonschema:"zero-fill values missing from one of the windows"`
	Strict      bool     `json:"strict,omitempty"       jsonschema:"validate the payload against the breakdown schema first"`
}

// FilterOptionsInput is the input schema for the dimlens_filter_options tool.
type FilterOptionsInput struct {
	Payload string `json:"payload" jsonschema:"breakdown payload as a JSON document; only the current window is read"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleCompare(
	_ context.Context, _ *mcpsdk.CallToolRequest, input CompareInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Top < 0 {
		return errorResult(ErrNegativeTop)
	}

	payload, err := decodePayload(input.Payload, input.Strict)
	if err != nil {
		return errorResult(err)
	}

	opts := s.defaults
	if len(input.ColumnOrder) > 0 {
		opts.ColumnOrder = input.ColumnOrder
	}

	if input.Top > 0 {
		opts.TopContributors = input.Top
	}

	opts.Align = opts.Align || input.Align

	return jsonResult(report.Build(payload, opts))
}

func handleFilterOptions(
	_ context.Context, _ *mcpsdk.CallToolRequest, input FilterOptionsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	payload, err := decodePayload(input.Payload, false)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(heatmap.ExtractFilterOptions(payload.Current.Breakdown))
}

func decodePayload(raw string, strict bool) (breakdown.Payload, error) {
	if raw == "" {
		return breakdown.Payload{}, ErrEmptyPayload
	}

	if len(raw) > MaxPayloadBytes {
		return breakdown.Payload{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(raw), MaxPayloadBytes)
	}

	data := []byte(raw)

	if strict {
		err := breakdown.ValidateJSON(data)
		if err != nil {
			return breakdown.Payload{}, err
		}
	}

	return breakdown.DecodeBytes(data, breakdown.FormatJSON)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
