// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the datalens MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Datalens Analysis Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: analyze_file ---
	s.AddTool(mcp.NewTool("analyze_file",
		mcp.WithDescription("Profile a CSV or XLSX file: summary, column profiles, charts, forecast and insights."),
		mcp.WithString("path", mcp.Description("Path to the CSV or XLSX file."), mcp.Required()),
		mcp.WithString("frequency", mcp.Description("Forecast frequency (D, W, M). Tries D, W, M in order when omitted."), mcp.Enum("D", "W", "M")),
		mcp.WithNumber("horizon", mcp.Description("Number of periods to forecast (0-365). Defaults per frequency.")),
		mcp.WithString("target", mcp.Description("Numeric column to forecast. Auto-detected when omitted.")),
		mcp.WithString("date_col", mcp.Description("Date column to forecast by. Auto-detected when omitted.")),
	), h.handleAnalyzeFile)

	// --- 2. Tool: get_analysis ---
	s.AddTool(mcp.NewTool("get_analysis",
		mcp.WithDescription("Fetch a previous analysis by id while it is still retained."),
		mcp.WithString("analysis_id", mcp.Description("The id returned by analyze_file."), mcp.Required()),
	), h.handleGetAnalysis)

	// --- 3. Tool: forecast_file ---
	s.AddTool(mcp.NewTool("forecast_file",
		mcp.WithDescription("Forecast the detected target of a file and return only the forecast and backtest metrics."),
		mcp.WithString("path", mcp.Description("Path to the CSV or XLSX file."), mcp.Required()),
		mcp.WithString("frequency", mcp.Description("Forecast frequency (D, W, M)."), mcp.Enum("D", "W", "M")),
		mcp.WithNumber("horizon", mcp.Description("Number of periods to forecast (0-365).")),
	), h.handleForecastFile)

	return s
}

// StartMCPServer starts the datalens MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
