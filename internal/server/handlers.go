package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangsam/datalens/core"
	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/internal/report"
	"github.com/huangsam/datalens/schema"
	"github.com/sirupsen/logrus"
)

// Response messages.
const (
	msgNotFound      = "Analysis not found or expired."
	msgEmptyFile     = "Empty file"
	msgNoRows        = "No rows parsed from file."
	msgMissingFile   = "Missing upload field 'file'."
	msgTooLarge      = "File too large."
	msgBadFormat     = "Unsupported report format."
	msgAnalyzeFailed = "Analysis failed."
	msgReportFailed  = "Report generation failed."
)

// analyzeQuery holds the query parameters of POST /analyze.
type analyzeQuery struct {
	Frequency string `form:"frequency"`
	Horizon   int    `form:"horizon"`
	Target    string `form:"target"`
	DateCol   string `form:"date_col"`
}

func sendError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// handleAnalyze accepts a multipart upload and returns the full record.
func (s *Server) handleAnalyze(c *gin.Context) {
	start := time.Now()

	var q analyzeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		sendError(c, http.StatusBadRequest, "horizon must be an integer")
		return
	}
	opts, err := contract.NormalizeOptions(schema.AnalyzeOptions{
		Frequency: schema.Frequency(q.Frequency),
		Horizon:   q.Horizon,
		Target:    q.Target,
		DateCol:   q.DateCol,
	})
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, contract.MaxUploadBytes)
	name, data, err := readUpload(c)
	if err != nil {
		if isTooLarge(err) {
			sendError(c, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		sendError(c, http.StatusBadRequest, msgMissingFile)
		return
	}

	rec, err := core.AnalyzeBytes(c.Request.Context(), s.mgr, name, data, opts, s.cfg.CacheTTL)
	if err != nil {
		if contract.IsInputError(err) {
			s.metrics.RecordAnalysis(outcomeInputError, nil, time.Since(start))
			detail := err.Error()
			switch {
			case errors.Is(err, contract.ErrEmptyInput):
				detail = msgEmptyFile
			case errors.Is(err, contract.ErrNoRows):
				detail = msgNoRows
			}
			s.log.WithError(err).WithField("file", name).Warn("Rejected upload")
			sendError(c, http.StatusBadRequest, detail)
			return
		}
		s.metrics.RecordAnalysis(outcomeError, nil, time.Since(start))
		s.log.WithError(err).WithField("file", name).Error("Analysis failed")
		sendError(c, http.StatusInternalServerError, msgAnalyzeFailed)
		return
	}

	s.metrics.RecordAnalysis(outcomeOK, rec, time.Since(start))
	s.log.WithFields(logrus.Fields{
		"analysis_id": rec.AnalysisID,
		"file":        name,
		"rows":        rec.Summary.Rows,
		"cached":      rec.Cached,
	}).Info("Analysis complete")
	c.JSON(http.StatusOK, rec)
}

func readUpload(c *gin.Context) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

// handleGetAnalysis returns a stored record by id.
func (s *Server) handleGetAnalysis(c *gin.Context) {
	rec, ok := s.mgr.GetRecordStore().Get(c.Param("id"))
	if !ok {
		sendError(c, http.StatusNotFound, msgNotFound)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleDownloadReport renders a stored record as an attachment.
func (s *Server) handleDownloadReport(c *gin.Context) {
	format := schema.ReportFormat(strings.ToLower(c.DefaultQuery("format", string(schema.PDFReport))))
	if _, ok := schema.ValidReportFormats[format]; !ok {
		sendError(c, http.StatusBadRequest, msgBadFormat)
		return
	}
	id := c.Query("analysis_id")
	rec, ok := s.mgr.GetRecordStore().Get(id)
	if !ok {
		sendError(c, http.StatusNotFound, msgNotFound)
		return
	}

	data, err := report.Render(c.Request.Context(), rec, format)
	if err != nil {
		s.log.WithError(err).WithField("analysis_id", id).Error("Failed to render report")
		sendError(c, http.StatusInternalServerError, msgReportFailed)
		return
	}
	s.metrics.RecordReport(format)

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.FileName(rec.AnalysisID, format)))
	c.Data(http.StatusOK, report.ContentType(format), data)
}

// handleHealth reports liveness and the number of live records.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"count":  s.mgr.GetRecordStore().Len(),
	})
}
