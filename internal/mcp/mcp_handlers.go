package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/datalens/core"
	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

// forecastView is the forecast_file response.
type forecastView struct {
	AnalysisID     string                 `json:"analysis_id"`
	Detection      schema.Detection       `json:"detection"`
	Forecast       *schema.ForecastResult `json:"forecast"`
	ForecastReason string                 `json:"forecast_reason,omitempty"`
}

// optionsFrom reads and validates the shared analysis arguments.
func optionsFrom(request mcp.CallToolRequest) (schema.AnalyzeOptions, error) {
	return contract.NormalizeOptions(schema.AnalyzeOptions{
		Frequency: schema.Frequency(request.GetString("frequency", "")),
		Horizon:   request.GetInt("horizon", 0),
		Target:    request.GetString("target", ""),
		DateCol:   request.GetString("date_col", ""),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) analyze(ctx context.Context, request mcp.CallToolRequest) (*schema.AnalysisRecord, *mcp.CallToolResult) {
	path := request.GetString("path", "")
	if path == "" {
		return nil, mcp.NewToolResultError("path is required")
	}
	opts, err := optionsFrom(request)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err))
	}
	rec, err := core.AnalyzeFile(ctx, h.mgr, path, opts, h.baseCfg.CacheTTL)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err))
	}
	return rec, nil
}

func (h *toolHandler) handleAnalyzeFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, errResult := h.analyze(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(rec)
}

func (h *toolHandler) handleGetAnalysis(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("analysis_id", "")
	if id == "" {
		return mcp.NewToolResultError("analysis_id is required"), nil
	}
	rec, ok := h.mgr.GetRecordStore().Get(id)
	if !ok {
		return mcp.NewToolResultError("Analysis not found or expired."), nil
	}
	return jsonResult(rec)
}

func (h *toolHandler) handleForecastFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, errResult := h.analyze(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(forecastView{
		AnalysisID:     rec.AnalysisID,
		Detection:      rec.Detection,
		Forecast:       rec.Forecast,
		ForecastReason: rec.ForecastReason,
	})
}
