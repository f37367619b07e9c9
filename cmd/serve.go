package cmd

import (
	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP service.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the datalens HTTP service",
	Long: `Serve analyses over HTTP.

Routes:
  POST /analyze              multipart field 'file', query frequency/horizon/target/date_col
  GET  /analysis/:id         fetch a stored analysis
  GET  /download-report      query analysis_id and format (pdf, xlsx, html)
  GET  /health               liveness and number of stored analyses
  GET  /metrics              Prometheus metrics

Stored analyses expire after --record-ttl and are swept on the --sweep schedule.

Examples:
  datalens serve --listen :8000
  DATALENS_LOG_FORMAT=json datalens serve --cors-origins https://app.example.com`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := server.StartServer(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run server", err)
		}
	},
}
