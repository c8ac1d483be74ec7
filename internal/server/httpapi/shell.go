package httpapi

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"regexp"

	"github.com/dmitrijs2005/usertheme/internal/common"
	"github.com/dmitrijs2005/usertheme/internal/server/metrics"
	"github.com/dmitrijs2005/usertheme/internal/server/models"
	"github.com/dmitrijs2005/usertheme/internal/validator"
	"github.com/gin-gonic/gin"
)

const shellTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>User themes</title>
<link id="{{.OfficialStyleID}}" rel="stylesheet" href="{{.OfficialThemeURL}}">
{{- if .Theme}}
<style id="{{.Theme.StyleID}}" data-managed-by="{{.ManagedBy}}" data-version="{{.Theme.Version}}">{{.Theme.CSS}}</style>
{{- end}}
</head>
<body{{if .Theme}} class="{{.BodyClass}}"{{end}}>
<main>
<h1>User themes</h1>
</main>
</body>
</html>
`

var styleCloseTag = regexp.MustCompile(`(?i)</style`)

type shellTheme struct {
	Version string
	StyleID string
	CSS     template.CSS
}

type shellData struct {
	OfficialStyleID  string
	OfficialThemeURL string
	ManagedBy        string
	BodyClass        string
	Theme            *shellTheme
}

// Shell outcomes, also used as metric labels.
const (
	shellInlined  = "inlined"
	shellNone     = "none"
	shellTimeout  = "timeout"
	shellRejected = "rejected"
)

type currentResult struct {
	rec *models.Record
	err error
}

// currentWithin races the store against the fetch timeout. Losing the race
// or failing renders the shell without a theme.
func (s *Server) currentWithin(ctx context.Context, uid string) (*models.Record, string) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	ch := make(chan currentResult, 1)
	go func() {
		rec, err := s.themes.Current(ctx, uid)
		ch <- currentResult{rec: rec, err: err}
	}()

	select {
	case <-ctx.Done():
		s.logger.Warn(ctx, "current theme lookup timed out", "user_id", uid, "timeout", s.fetchTimeout)
		return nil, shellTimeout
	case r := <-ch:
		if r.err != nil {
			s.logger.Error(ctx, "current theme lookup failed", "user_id", uid, "error", r.err)
			return nil, shellNone
		}
		if r.rec == nil {
			return nil, shellNone
		}
		return r.rec, shellInlined
	}
}

func (s *Server) shellData(ctx context.Context, uid string) (shellData, string) {
	data := shellData{
		OfficialStyleID:  common.OfficialStyleID,
		OfficialThemeURL: s.officialThemeURL,
		ManagedBy:        common.ManagedByValue,
		BodyClass:        common.ThemeBodyClass,
	}

	rec, outcome := s.currentWithin(ctx, uid)
	if rec == nil {
		return data, outcome
	}

	result := validator.Validate(rec.CSS)
	metrics.Validations.WithLabelValues("render", metrics.Outcome(result.Valid)).Inc()
	if !result.Valid {
		s.logger.Error(ctx, "stored theme failed validation", "user_id", uid, "version", rec.Version, "violations", result.Errors)
		return data, shellRejected
	}

	data.Theme = &shellTheme{
		Version: rec.Version,
		StyleID: common.StyleID(rec.Version),
		CSS:     template.CSS(styleCloseTag.ReplaceAllString(rec.CSS, `<\/style`)),
	}
	return data, shellInlined
}

func (s *Server) pageShell(c *gin.Context) {
	ctx := c.Request.Context()

	data, outcome := s.shellData(ctx, userID(c))
	metrics.ShellRenders.WithLabelValues(outcome).Inc()

	var buf bytes.Buffer
	if err := s.shell.Execute(&buf, data); err != nil {
		s.logger.Error(ctx, "render shell failed", "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
