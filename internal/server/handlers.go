package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	docgen "github.com/alnah/go-docgen"
	"github.com/alnah/go-docgen/internal/snapshot"
)

// generateRequest is the wire form of a render request.
type generateRequest struct {
	Dependencies []docgen.Dependency `json:"dependencies"`
	Layout       string              `json:"layout"`
	Data         json.RawMessage     `json:"data"`
	FileFormat   string              `json:"fileFormat"`
	PDFOptions   *docgen.PDFOptions  `json:"pdfOptions"`
}

type errorResponse struct {
	Error string   `json:"error"`
	Kind  string   `json:"kind,omitempty"`
	Stack []string `json:"stack,omitempty"`
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        float64 `json:"uptime,omitempty"`
	BrowserUptime float64 `json:"browserUptime,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)

	var body generateRequest
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		if maxErr := (*http.MaxBytesError)(nil); errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		s.fail(c, &docgen.Error{Kind: docgen.KindValidation, Op: "decode", Err: err})
		return
	}

	req, err := toRenderRequest(body)
	if err != nil {
		s.fail(c, err)
		return
	}
	req.RequestID = GetRequestID(c)

	if raw, ok := c.Get(gin.BodyBytesKey); ok {
		if payload, ok := raw.([]byte); ok {
			s.saveSnapshot(payload, req.RequestID)
		}
	}

	art, err := s.renderer.Render(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, art.ContentType(), art.Body)
}

func toRenderRequest(body generateRequest) (docgen.RenderRequest, error) {
	format := docgen.FormatPDF
	if strings.TrimSpace(body.FileFormat) != "" {
		f, err := docgen.ParseOutputFormat(body.FileFormat)
		if err != nil {
			return docgen.RenderRequest{}, err
		}
		format = f
	}

	layout, err := docgen.DecodeLayout(body.Layout)
	if err != nil {
		return docgen.RenderRequest{}, err
	}

	data, err := docgen.DecodeData(body.Data)
	if err != nil {
		return docgen.RenderRequest{}, err
	}

	return docgen.RenderRequest{
		Dependencies: body.Dependencies,
		Layout:       layout,
		Data:         data,
		Format:       format,
		PDF:          body.PDFOptions,
	}, nil
}

// saveSnapshot persists the payload off the request path. Failures are
// logged only.
func (s *Server) saveSnapshot(payload []byte, requestID string) {
	if s.snapshots == nil {
		return
	}
	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		id, err := s.snapshots.Save(payload)
		if err != nil {
			s.logger.Warn("saving request snapshot", zap.String("request_id", requestID), zap.Error(err))
			return
		}
		s.logger.Debug("request snapshot saved", zap.String("request_id", requestID), zap.String("snapshot_id", id))
	}()
}

// fail writes err as JSON with the status its kind maps to. Outside
// production the wrapped error chain is included.
func (s *Server) fail(c *gin.Context, err error) {
	kind := docgen.KindOf(err)
	resp := errorResponse{Error: err.Error(), Kind: kind.String()}
	if !s.cfg.Production {
		resp.Stack = errorChain(err)
	}
	_ = c.Error(err)
	c.JSON(kind.HTTPStatus(), resp)
}

func errorChain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		err = errors.Unwrap(err)
	}
	return chain
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if _, err := s.browser.EnsureReady(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, healthResponse{Status: "unhealthy", Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, healthResponse{
		Status:        "healthy",
		Uptime:        time.Since(s.started).Seconds(),
		BrowserUptime: s.browser.Uptime().Seconds(),
	})
}

func (s *Server) handleListSnapshots(c *gin.Context) {
	metas, err := s.snapshots.List()
	if err != nil {
		s.fail(c, err)
		return
	}
	if metas == nil {
		metas = []snapshot.Meta{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": metas})
}

func (s *Server) handleGetSnapshot(c *gin.Context) {
	payload, err := s.snapshots.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}
