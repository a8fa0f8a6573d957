package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/KaramelBytes/unstructiq-cli/internal/api"
	"github.com/KaramelBytes/unstructiq-cli/internal/charts"
	"github.com/KaramelBytes/unstructiq-cli/internal/files"
	"github.com/KaramelBytes/unstructiq-cli/internal/render"
	"github.com/KaramelBytes/unstructiq-cli/internal/session"
	"github.com/KaramelBytes/unstructiq-cli/internal/utils"
)

type pageData struct {
	Phase    session.Phase
	Accept   string
	MaxSize  string
	Busy     bool
	Notice   string
	Stage    string
	FileName string
	FileSize string
	FileKind string
	Prompt   string
	Upload   *api.UploadResult

	CanUpload  bool
	CanProcess bool
	CanExport  bool

	Results   template.HTML
	Health    string
	HealthErr string
}

func (s *Server) handleIndex(c *gin.Context) {
	v := viewOf(c)
	st := v.sess.State()
	busy := v.sess.Busy()
	data := pageData{
		Phase:     st.Phase(),
		Accept:    files.AcceptHint(),
		MaxSize:   utils.FormatDecimalSize(files.MaxAdvertisedSize),
		Busy:      busy,
		Notice:    v.sess.Notice(),
		Stage:     v.sess.StageLabel(),
		Prompt:    session.PromptOf(st),
		Upload:    session.UploadOf(st),
		HealthErr: v.healthError(),
	}
	if f := session.FileOf(st); f != nil {
		data.FileName = f.Name()
		data.FileSize = utils.FormatSize(f.Size())
		data.FileKind = string(f.Kind())
	}
	switch st.(type) {
	case session.FileSelected:
		data.CanUpload = !busy
	case session.Uploaded, session.Processed:
		data.CanUpload, data.CanProcess, data.CanExport = !busy, !busy, true
	}
	if h := v.sess.LastHealth(); len(h) > 0 {
		data.Health = string(utils.IndentJSON(h))
	}
	if built, _ := v.sync(); built != nil {
		frag, err := render.HTMLFragment(built, render.Options{Images: render.ImageFunc(func(i int) (string, error) {
			return "/charts/" + strconv.Itoa(i), nil
		})})
		if err != nil {
			s.log.WithError(err).Error("render results")
			c.String(http.StatusInternalServerError, "failed to render results")
			return
		}
		data.Results = frag
	}
	s.renderTemplate(c, "index.html", data)
}

// renderTemplate executes into a buffer first so a failed render never sends
// a partial page.
func (s *Server) renderTemplate(c *gin.Context, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.WithError(err).WithField("template", name).Error("template render failed")
		c.String(http.StatusInternalServerError, "template rendering failed")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func back(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleSelect(c *gin.Context) {
	v := viewOf(c)
	fh, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "missing file")
		return
	}
	src, err := fh.Open()
	if err != nil {
		c.String(http.StatusBadRequest, "cannot read file")
		return
	}
	defer src.Close()
	f, err := files.FromReader(fh.Filename, src, selectMemoryLimit)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if err := v.sess.Select(f); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if prompt := c.PostForm("prompt"); prompt != "" {
		_ = v.sess.SetPrompt(prompt)
	}
	v.sync()
	back(c)
}

func (s *Server) handlePrompt(c *gin.Context) {
	if err := viewOf(c).sess.SetPrompt(c.PostForm("prompt")); err != nil {
		c.String(http.StatusConflict, err.Error())
		return
	}
	back(c)
}

func (s *Server) handleRemove(c *gin.Context) {
	v := viewOf(c)
	v.sess.Remove()
	v.sync()
	back(c)
}

// Issued calls are not cancelled when the browser goes away.
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (s *Server) handleUpload(c *gin.Context) {
	v := viewOf(c)
	if _, err := v.sess.Upload(detached(c)); err != nil {
		s.logAction(c, "upload", err)
	}
	v.sync()
	back(c)
}

func (s *Server) handleProcess(c *gin.Context) {
	v := viewOf(c)
	if _, err := v.sess.Process(detached(c)); err != nil {
		s.logAction(c, "process", err)
	}
	v.sync()
	back(c)
}

func (s *Server) logAction(c *gin.Context, action string, err error) {
	entry := s.log.WithError(err).WithField("action", action)
	var te *session.TransitionError
	switch {
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrDiscarded), errors.As(err, &te):
		entry.Debug("action ignored")
	default:
		entry.Info("action failed")
	}
}

func (s *Server) handleDismiss(c *gin.Context) {
	viewOf(c).sess.DismissNotice()
	back(c)
}

func (s *Server) handleHealth(c *gin.Context) {
	v := viewOf(c)
	if _, err := v.sess.Health(c.Request.Context()); err != nil {
		v.setHealthErr("Health check failed: " + err.Error())
	} else {
		v.setHealthErr("")
	}
	back(c)
}

func (s *Server) handleExport(c *gin.Context) {
	v := viewOf(c)
	format := c.Param("format")
	if format != "csv" && format != "json" {
		c.String(http.StatusNotFound, "unknown export format")
		return
	}
	blob, err := v.sess.Export(c.Request.Context(), format)
	if err != nil {
		var te *session.TransitionError
		if errors.As(err, &te) {
			c.String(http.StatusConflict, err.Error())
			return
		}
		// the session raised a notice; show it
		back(c)
		return
	}
	name := blob.Filename
	if name == "" {
		op := api.OpExportCSV
		if format == "json" {
			op = api.OpExportJSON
		}
		name = api.ExportFilename(op, session.JobIDOf(v.sess.State()))
	}
	ct := blob.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, ct, blob.Data)
}

func (s *Server) handleStage(c *gin.Context) {
	v := viewOf(c)
	c.JSON(http.StatusOK, gin.H{
		"stage": v.sess.StageLabel(),
		"busy":  v.sess.Busy(),
		"phase": v.sess.State().Phase().String(),
	})
}

func (s *Server) handleChart(c *gin.Context) {
	v := viewOf(c)
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.String(http.StatusBadRequest, "bad chart index")
		return
	}
	_, g := v.sync()
	if g == nil {
		c.String(http.StatusNotFound, "no charts")
		return
	}
	canvas, err := g.Canvas(i)
	if err != nil {
		s.log.WithError(err).WithField("chart", i).Debug("chart unavailable")
		c.String(http.StatusNotFound, "chart unavailable")
		return
	}
	b, err := canvas.Bytes()
	if err != nil {
		c.String(http.StatusGone, "chart released")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, charts.FormatPNG.ContentType(), b)
}
