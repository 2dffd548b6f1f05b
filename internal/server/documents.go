package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
	"github.com/Prasann123/Tradition-RAG/internal/ingest"
	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
)

const defaultListLimit = 20

// Ingestor is the document side of the API.
type Ingestor interface {
	SubmitFile(ctx context.Context, path string, req ingest.Request) (string, error)
	Status(ctx context.Context, id string) (ingest.JobStatus, error)
	IngestText(ctx context.Context, text string, req ingest.Request) (string, error)
	IngestURL(ctx context.Context, url string, req ingest.Request) (string, error)
	ListDocuments(ctx context.Context, limit int) ([]retrieval.Document, error)
	ListTopics(ctx context.Context, limit int) ([]ingest.DocumentTopics, error)
}

type DocumentsHandler struct {
	Ingest         Ingestor
	UploadDir      string
	MaxUploadBytes int64
	Logger         *log.Logger
}

func (h *DocumentsHandler) Register(g *echo.Group) {
	g.POST("/upload-file", h.uploadFile)
	g.GET("/upload-status/:job_id", h.uploadStatus)
	g.POST("/upload-text", h.uploadText)
	g.GET("/list_documents", h.listDocuments)
	g.GET("/list_topics", h.listTopics)
	g.POST("/scrape-website", h.scrapeWebsite)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// secureFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func secureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Trim(unsafeFilename.ReplaceAllString(name, "_"), "._")
	if name == "" {
		return "upload"
	}
	return name
}

func (h *DocumentsHandler) uploadFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No file part")
	}
	if fh.Filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No file selected")
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", h.MaxUploadBytes))
	}
	var req ingest.Request
	if err := bindForm(c, &req); err != nil {
		return err
	}

	name := secureFilename(fh.Filename)
	dir := h.UploadDir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+"_"+name)
	if err := saveUpload(fh, path); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	req.Source = name

	id, err := h.Ingest.SubmitFile(c.Request().Context(), path, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"message": "File upload started.", "job_id": id})
}

func saveUpload(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return err
	}
	return dst.Close()
}

// bindForm reads the ingestion settings from multipart form values.
func bindForm(c echo.Context, req *ingest.Request) error {
	req.VectorDB = c.FormValue("vectordb")
	req.CollectionName = c.FormValue("collection_name")
	req.ParserType = c.FormValue("parser_type")
	for field, dst := range map[string]*int{"chunk_size": &req.ChunkSize, "chunk_overlap": &req.ChunkOverlap} {
		v := strings.TrimSpace(c.FormValue(field))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be an integer", field))
		}
		*dst = n
	}
	return nil
}

func (h *DocumentsHandler) uploadStatus(c echo.Context) error {
	st, err := h.Ingest.Status(c.Request().Context(), c.Param("job_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *DocumentsHandler) uploadText(c echo.Context) error {
	var req struct {
		Text   *string        `json:"text"`
		Config ingest.Request `json:"config"`
	}
	if err := c.Bind(&req); err != nil || req.Text == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No text provided")
	}
	answer, err := h.Ingest.IngestText(c.Request().Context(), *req.Text, req.Config)
	if err != nil {
		return configOr500(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

func (h *DocumentsHandler) scrapeWebsite(c echo.Context) error {
	var req struct {
		URL    string         `json:"url"`
		Config ingest.Request `json:"config"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No URL provided")
	}
	answer, err := h.Ingest.IngestURL(c.Request().Context(), strings.TrimSpace(req.URL), req.Config)
	if err != nil {
		return configOr500(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

func (h *DocumentsHandler) listDocuments(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}
	docs, err := h.Ingest.ListDocuments(c.Request().Context(), limit)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Printf("list documents: %v", err)
		}
		docs = []retrieval.Document{}
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": docs})
}

func (h *DocumentsHandler) listTopics(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}
	topics, err := h.Ingest.ListTopics(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"topics": topics})
}

func limitParam(c echo.Context) (int, error) {
	raw := strings.TrimSpace(c.QueryParam("limit"))
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
	}
	return n, nil
}

func configOr500(err error) error {
	var ce *core.ConfigError
	if errors.As(err, &ce) {
		return echo.NewHTTPError(http.StatusBadRequest, ce.Message)
	}
	return err
}
