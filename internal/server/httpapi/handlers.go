package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/usertheme/internal/common"
	"github.com/dmitrijs2005/usertheme/internal/server/metrics"
	"github.com/dmitrijs2005/usertheme/internal/validator"
	"github.com/gin-gonic/gin"
)

type submitRequest struct {
	CSS    json.RawMessage `json:"css"`
	Source json.RawMessage `json:"source"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Version string `json:"version"`
	Hash    string `json:"hash"`
	CSSURL  string `json:"cssUrl"`
}

type failureResponse struct {
	Success bool                  `json:"success"`
	Errors  []validator.Violation `json:"errors"`
}

type setCurrentRequest struct {
	Version json.RawMessage `json:"version"`
}

// rawString decodes a JSON string. Absent, null and non-string values
// report false.
func rawString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

func failure(msg string) failureResponse {
	return failureResponse{Errors: []validator.Violation{{Kind: validator.KindOther, Message: msg}}}
}

// bodyLimit bounds the raw request. JSON escaping can grow a stylesheet, so
// the limit is generous; the decoded size is checked separately.
func (s *Server) bodyLimit() int64 {
	return int64(s.maxCSSBytes)*6 + 4096
}

func (s *Server) decodeBody(c *gin.Context, dst any) (status int, ok bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.bodyLimit())
	data, err := c.GetRawData()
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return http.StatusRequestEntityTooLarge, false
		}
		return http.StatusBadRequest, false
	}
	if json.Unmarshal(data, dst) != nil {
		return http.StatusBadRequest, false
	}
	return 0, true
}

func (s *Server) submit(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	var req submitRequest
	if status, ok := s.decodeBody(c, &req); !ok && status == http.StatusRequestEntityTooLarge {
		c.JSON(status, failure(fmt.Sprintf("stylesheet too large (> %d bytes)", s.maxCSSBytes)))
		return
	}

	source, _ := rawString(req.Source)
	if source != common.SourceUpload && source != common.SourceAI {
		c.JSON(http.StatusBadRequest, failure("source must be upload or ai"))
		return
	}

	css, _ := rawString(req.CSS)
	if len(css) > s.maxCSSBytes {
		c.JSON(http.StatusRequestEntityTooLarge, failure(fmt.Sprintf("stylesheet too large (> %d bytes)", s.maxCSSBytes)))
		return
	}

	result := validator.Validate(css)
	metrics.Validations.WithLabelValues("submit", metrics.Outcome(result.Valid)).Inc()
	if !result.Valid {
		s.logger.Info(ctx, "theme rejected", "user_id", uid, "violations", len(result.Errors))
		c.JSON(http.StatusBadRequest, failureResponse{Errors: result.Errors})
		return
	}

	res, err := s.themes.Submit(ctx, uid, css)
	if err != nil {
		s.logger.Error(ctx, "submit failed", "user_id", uid, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": common.ErrorInternal.Error()})
		return
	}
	metrics.Submissions.WithLabelValues(source).Inc()

	c.JSON(http.StatusOK, submitResponse{
		Success: true,
		Version: res.Version,
		Hash:    res.Hash,
		CSSURL:  common.ContentURL(res.Version),
	})
}

func (s *Server) readVersion(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	version := c.Param("version")

	if !common.OwnedBy(version, uid) {
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	rec, err := s.themes.Read(ctx, uid, version)
	if errors.Is(err, common.ErrorNotFound) {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	if err != nil {
		s.logger.Error(ctx, "read failed", "user_id", uid, "version", version, "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/css; charset=utf-8", []byte(rec.CSS))
}

func (s *Server) validate(c *gin.Context) {
	var req submitRequest
	if status, ok := s.decodeBody(c, &req); !ok && status == http.StatusRequestEntityTooLarge {
		c.JSON(status, failure(fmt.Sprintf("stylesheet too large (> %d bytes)", s.maxCSSBytes)))
		return
	}
	css, _ := rawString(req.CSS)

	result := validator.Validate(css)
	metrics.Validations.WithLabelValues("validate", metrics.Outcome(result.Valid)).Inc()

	status := http.StatusOK
	if !result.Valid {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

func (s *Server) listVersions(c *gin.Context) {
	ctx := c.Request.Context()

	versions, err := s.themes.ListVersions(ctx, userID(c))
	if err != nil {
		s.logger.Error(ctx, "list versions failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": common.ErrorInternal.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (s *Server) setCurrent(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	var req setCurrentRequest
	if _, ok := s.decodeBody(c, &req); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "version must be a string or null"})
		return
	}

	var version *string
	if string(req.Version) != "null" {
		v, ok := rawString(req.Version)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "version must be a string or null"})
			return
		}
		version = &v
	}

	err := s.themes.SetCurrent(ctx, uid, version)
	if errors.Is(err, common.ErrorNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "version not found"})
		return
	}
	if err != nil {
		s.logger.Error(ctx, "set current failed", "user_id", uid, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": common.ErrorInternal.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "version": version})
}

func (s *Server) userInfo(c *gin.Context) {
	ctx := c.Request.Context()

	info, err := s.themes.Info(ctx, userID(c))
	if err != nil {
		s.logger.Error(ctx, "user info failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": common.ErrorInternal.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}
