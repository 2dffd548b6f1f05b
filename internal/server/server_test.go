package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Prasann123/Tradition-RAG/config"
	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
	"github.com/Prasann123/Tradition-RAG/internal/agent/telemetry"
	"github.com/Prasann123/Tradition-RAG/internal/ingest"
	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
	"github.com/Prasann123/Tradition-RAG/internal/runtime"
	"github.com/Prasann123/Tradition-RAG/internal/travel"
)

type stubInvoker struct {
	res   core.InvokeResult
	err   error
	query string
	cfg   core.RequestConfig
}

func (s *stubInvoker) Invoke(_ context.Context, query string, cfg core.RequestConfig) (core.InvokeResult, error) {
	s.query, s.cfg = query, cfg
	return s.res, s.err
}

type stubPlanner struct {
	res travel.Result
	err error
	got travel.Query
}

func (s *stubPlanner) Plan(_ context.Context, q travel.Query) (travel.Result, error) {
	s.got = q
	return s.res, s.err
}

type stubIngestor struct {
	path      string
	content   []byte
	req       ingest.Request
	text      string
	url       string
	limit     int
	status    ingest.JobStatus
	answerErr error
}

func (s *stubIngestor) SubmitFile(_ context.Context, path string, req ingest.Request) (string, error) {
	s.path, s.req = path, req
	s.content, _ = os.ReadFile(path)
	_ = os.Remove(path)
	return "job-1", nil
}

func (s *stubIngestor) Status(context.Context, string) (ingest.JobStatus, error) {
	return s.status, nil
}

func (s *stubIngestor) IngestText(_ context.Context, text string, req ingest.Request) (string, error) {
	s.text, s.req = text, req
	return "Successfully ingested 1 text chunks into milvus.", s.answerErr
}

func (s *stubIngestor) IngestURL(_ context.Context, url string, req ingest.Request) (string, error) {
	s.url = url
	return "Could not extract content from this website", s.answerErr
}

func (s *stubIngestor) ListDocuments(_ context.Context, limit int) ([]retrieval.Document, error) {
	s.limit = limit
	return []retrieval.Document{{ID: "1", Content: "chunk", Metadata: map[string]any{"source": "a.txt"}}}, nil
}

func (s *stubIngestor) ListTopics(_ context.Context, limit int) ([]ingest.DocumentTopics, error) {
	s.limit = limit
	return []ingest.DocumentTopics{{Source: "a.txt", Topics: []string{"chunk"}}}, nil
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func expectHTTPError(t *testing.T, err error, code int, msg string) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if he.Code != code {
		t.Fatalf("expected status %d, got %d", code, he.Code)
	}
	if msg != "" && he.Message != msg {
		t.Fatalf("expected message %q, got %v", msg, he.Message)
	}
}

func TestInvokeAgentRequiresQuery(t *testing.T) {
	e := echo.New()
	h := &AgentHandler{Agent: &stubInvoker{}}
	rec := httptest.NewRecorder()
	err := h.invoke(e.NewContext(jsonRequest(http.MethodPost, "/api/invoke_agent", `{"query":"  "}`), rec))
	expectHTTPError(t, err, http.StatusBadRequest, "Query is required")
}

func TestInvokeAgentSuccess(t *testing.T) {
	e := echo.New()
	inv := &stubInvoker{res: core.InvokeResult{FinalAnswer: "Paris", IsValid: core.ValidityValid, AnswerSource: core.AnswerSourceGeneral}}
	h := &AgentHandler{Agent: inv}
	rec := httptest.NewRecorder()
	body := `{"query":"capital of France?","config":{"vectordb":"chroma","k":3}}`
	if err := h.invoke(e.NewContext(jsonRequest(http.MethodPost, "/api/invoke_agent", body), rec)); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if inv.cfg.VectorDB != "chroma" || inv.cfg.K != 3 {
		t.Fatalf("config not forwarded: %+v", inv.cfg)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["final_answer"] != "Paris" || resp["is_valid"] != true || resp["answer_source"] != "general knowledge" {
		t.Fatalf("unexpected response %v", resp)
	}
	if sources, ok := resp["sources"].([]any); !ok || len(sources) != 0 {
		t.Fatalf("expected empty sources array, got %v", resp["sources"])
	}
}

func TestInvokeAgentConfigError(t *testing.T) {
	e := echo.New()
	h := &AgentHandler{Agent: &stubInvoker{err: &core.ConfigError{Field: "vectordb", Message: "Invalid vectordb 'invalid_db'. Valid options: [milvus, chroma]"}}}
	rec := httptest.NewRecorder()
	if err := h.invoke(e.NewContext(jsonRequest(http.MethodPost, "/api/invoke_agent", `{"query":"q","config":{"vectordb":"invalid_db"}}`), rec)); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp struct {
		Error   string `json:"error"`
		Context []any  `json:"context"`
		Sources []any  `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.Error, "Invalid vectordb 'invalid_db'") || resp.Context == nil || resp.Sources == nil {
		t.Fatalf("unexpected response %s", rec.Body.String())
	}
}

func TestInvokeAgentDeadline(t *testing.T) {
	e := echo.New()
	h := &AgentHandler{Agent: &stubInvoker{err: core.ErrDeadlineExceeded}}
	err := h.invoke(e.NewContext(jsonRequest(http.MethodPost, "/api/invoke_agent", `{"query":"q"}`), httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusGatewayTimeout, "")
}

func TestTravelPlan(t *testing.T) {
	e := echo.New()
	p := &stubPlanner{res: travel.Result{FinalAnswer: "**Trip to Lisbon**", ThreadID: "t-1"}}
	h := &TravelHandler{Planner: p}
	rec := httptest.NewRecorder()
	body := `{"query":{"destination":"Lisbon","start_date":"2025-06-01","nights":2}}`
	if err := h.plan(e.NewContext(jsonRequest(http.MethodPost, "/api/travelsgent", body), rec)); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if p.got.Destination != "Lisbon" || p.got.Nights != 2 {
		t.Fatalf("query not forwarded: %+v", p.got)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["thread_id"] != "t-1" || resp["final_answer"] != "**Trip to Lisbon**" {
		t.Fatalf("unexpected response %v", resp)
	}
	if msgs, ok := resp["messages"].([]any); !ok || len(msgs) != 0 {
		t.Fatalf("expected empty messages array, got %v", resp["messages"])
	}
}

func TestTravelPlanInvalidQuery(t *testing.T) {
	e := echo.New()
	h := &TravelHandler{Planner: &stubPlanner{err: &core.ConfigError{Field: "query", Message: "invalid travel query: destination is required"}}}
	err := h.plan(e.NewContext(jsonRequest(http.MethodPost, "/api/travelsgent", `{"query":{}}`), httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest, "invalid travel query: destination is required")

	err = h.plan(e.NewContext(jsonRequest(http.MethodPost, "/api/travelsgent", `{}`), httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest, "query is required")
}

func multipartUpload(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if filename != "-" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write([]byte(content))
	}
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/upload-file", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestUploadFile(t *testing.T) {
	e := echo.New()
	ing := &stubIngestor{}
	h := &DocumentsHandler{Ingest: ing, UploadDir: t.TempDir()}
	rec := httptest.NewRecorder()
	req := multipartUpload(t, "../My Report (v2).txt", "report body", map[string]string{"vectordb": "chroma", "chunk_size": "500"})
	if err := h.uploadFile(e.NewContext(req, rec)); err != nil {
		t.Fatalf("uploadFile: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["job_id"] != "job-1" || resp["message"] != "File upload started." {
		t.Fatalf("unexpected response %v", resp)
	}
	if string(ing.content) != "report body" {
		t.Fatalf("uploaded content not saved, got %q", ing.content)
	}
	if ing.req.VectorDB != "chroma" || ing.req.ChunkSize != 500 || ing.req.Source != "My_Report_v2_.txt" {
		t.Fatalf("unexpected request %+v", ing.req)
	}
}

func TestUploadFileErrors(t *testing.T) {
	e := echo.New()
	h := &DocumentsHandler{Ingest: &stubIngestor{}, UploadDir: t.TempDir()}

	err := h.uploadFile(e.NewContext(multipartUpload(t, "-", "", nil), httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest, "No file part")

	err = h.uploadFile(e.NewContext(multipartUpload(t, "a.txt", "x", map[string]string{"chunk_size": "big"}), httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest, "chunk_size must be an integer")
}

func TestUploadStatus(t *testing.T) {
	e := echo.New()
	h := &DocumentsHandler{Ingest: &stubIngestor{status: ingest.NotFoundStatus()}}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/upload-status/abc", nil), rec)
	c.SetParamNames("job_id")
	c.SetParamValues("abc")
	if err := h.uploadStatus(c); err != nil {
		t.Fatalf("uploadStatus: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"not_found","message":"Job ID not found."}` {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestUploadText(t *testing.T) {
	e := echo.New()
	ing := &stubIngestor{}
	h := &DocumentsHandler{Ingest: ing}

	err := h.uploadText(e.NewContext(jsonRequest(http.MethodPost, "/api/upload-text", `{"config":{}}`), httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest, "No text provided")

	rec := httptest.NewRecorder()
	if err := h.uploadText(e.NewContext(jsonRequest(http.MethodPost, "/api/upload-text", `{"text":"hello","config":{"collection_name":"notes"}}`), rec)); err != nil {
		t.Fatalf("uploadText: %v", err)
	}
	if ing.text != "hello" || ing.req.CollectionName != "notes" {
		t.Fatalf("unexpected forward: %q %+v", ing.text, ing.req)
	}
	if !strings.Contains(rec.Body.String(), `"answer":"Successfully ingested 1 text chunks into milvus."`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	ing.answerErr = &core.ConfigError{Field: "vectordb", Message: "Invalid vectordb 'x'. Valid options: [milvus]"}
	err = h.uploadText(e.NewContext(jsonRequest(http.MethodPost, "/api/upload-text", `{"text":"hello","config":{"vectordb":"x"}}`), httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest, "Invalid vectordb 'x'. Valid options: [milvus]")
}

func TestScrapeWebsite(t *testing.T) {
	e := echo.New()
	ing := &stubIngestor{}
	h := &DocumentsHandler{Ingest: ing}

	err := h.scrapeWebsite(e.NewContext(jsonRequest(http.MethodPost, "/api/scrape-website", `{}`), httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest, "No URL provided")

	rec := httptest.NewRecorder()
	if err := h.scrapeWebsite(e.NewContext(jsonRequest(http.MethodPost, "/api/scrape-website", `{"url":" https://example.com "}`), rec)); err != nil {
		t.Fatalf("scrapeWebsite: %v", err)
	}
	if ing.url != "https://example.com" || !strings.Contains(rec.Body.String(), "Could not extract content from this website") {
		t.Fatalf("unexpected result url=%q body=%s", ing.url, rec.Body.String())
	}
}

func TestListDocumentsAndTopics(t *testing.T) {
	e := echo.New()
	ing := &stubIngestor{}
	h := &DocumentsHandler{Ingest: ing}

	rec := httptest.NewRecorder()
	if err := h.listDocuments(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/list_documents?limit=5", nil), rec)); err != nil {
		t.Fatalf("listDocuments: %v", err)
	}
	if ing.limit != 5 || !strings.Contains(rec.Body.String(), `"page_content":"chunk"`) {
		t.Fatalf("unexpected limit %d body %s", ing.limit, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := h.listTopics(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/list_topics", nil), rec)); err != nil {
		t.Fatalf("listTopics: %v", err)
	}
	if ing.limit != defaultListLimit || !strings.Contains(rec.Body.String(), `"topics":[{"source":"a.txt","topics":["chunk"]}]`) {
		t.Fatalf("unexpected limit %d body %s", ing.limit, rec.Body.String())
	}

	err := h.listDocuments(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/list_documents?limit=-1", nil), httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest, "")
}

func TestSecureFilename(t *testing.T) {
	for in, want := range map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a b.txt`: "a_b.txt",
		"...":                 "upload",
		"résumé final.md":     "r_sum_final.md",
	} {
		if got := secureFilename(in); got != want {
			t.Fatalf("secureFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoutesWithAuth(t *testing.T) {
	e := New(config.ServerConfig{JWTSecret: "s3cret"}, Handlers{
		Agent:     &stubInvoker{res: core.InvokeResult{FinalAnswer: "ok", IsValid: core.ValidityValid}},
		Travel:    &stubPlanner{},
		Ingest:    &stubIngestor{},
		Telemetry: telemetry.Discard(),
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/invoke_agent", `{"query":"hi"}`))
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), `"error":"missing token"`) {
		t.Fatalf("expected 401 JSON error, got %d %s", rec.Code, rec.Body.String())
	}

	tok, err := runtime.SignJWT("tester", []byte("s3cret"), time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	req := jsonRequest(http.MethodPost, "/api/invoke_agent", `{"query":"hi"}`)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"final_answer":"ok"`) {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
}

func TestDocsAreServedWithoutAuth(t *testing.T) {
	e := New(config.ServerConfig{JWTSecret: "s3cret"}, Handlers{Agent: &stubInvoker{}, Travel: &stubPlanner{}, Ingest: &stubIngestor{}})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "openapi: 3.0.3") {
		t.Fatalf("unexpected openapi response %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>RAG Agent API Docs</title>") {
		t.Fatalf("unexpected docs page %d", rec.Code)
	}
}

type stubRetriever struct {
	docs  []retrieval.Document
	query string
	k     int
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, k int) ([]retrieval.Document, error) {
	s.query, s.k = query, k
	return s.docs, nil
}

type stubResolver struct {
	retriever  *stubRetriever
	backend    string
	collection string
	kind       string
}

func (s *stubResolver) Retriever(backend, collection, kind string) (retrieval.Retriever, error) {
	s.backend, s.collection, s.kind = backend, collection, kind
	return s.retriever, nil
}

type stubGenerator struct {
	reply  string
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, nil
}

func TestSendMessageValidation(t *testing.T) {
	e := echo.New()
	h := &ChatHandler{Retrievers: &stubResolver{retriever: &stubRetriever{}}, LLM: &stubGenerator{}}

	err := h.sendMessage(e.NewContext(jsonRequest(http.MethodPost, "/api/send-message", `{"search_type":"mmr"}`), httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest, "No message provided")

	err = h.sendMessage(e.NewContext(jsonRequest(http.MethodPost, "/api/send-message", `{"message":"hi","search_type":"x"}`), httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest, "Invalid search_type 'x'. Valid options: [knnBeta, knnVector, approximate, mmr, bm25]")
}

func TestSendMessageNoDocuments(t *testing.T) {
	e := echo.New()
	gen := &stubGenerator{reply: "unused"}
	h := &ChatHandler{Retrievers: &stubResolver{retriever: &stubRetriever{}}, LLM: gen}
	rec := httptest.NewRecorder()
	if err := h.sendMessage(e.NewContext(jsonRequest(http.MethodPost, "/api/send-message", `{"message":"hi","search_type":"mmr"}`), rec)); err != nil {
		t.Fatalf("sendMessage: %v", err)
	}
	var body sendMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Answer != "No relevant documents found." || body.TotalSources != 0 || len(body.Sources) != 0 {
		t.Fatalf("unexpected response: %+v", body)
	}
	if gen.prompt != "" {
		t.Fatal("generator must not run without documents")
	}
}

func TestSendMessageAnswersFromRetrievedChunks(t *testing.T) {
	e := echo.New()
	long := strings.Repeat("x", 250)
	retriever := &stubRetriever{docs: []retrieval.Document{
		{Content: "Paris is the capital of France.", Metadata: map[string]any{"source": "facts.txt", "page": 2}, Score: 0.8},
		{Content: long, Metadata: map[string]any{}, Score: 0.4},
	}}
	resolver := &stubResolver{retriever: retriever}
	gen := &stubGenerator{reply: "Paris."}
	h := &ChatHandler{
		Retrievers: resolver,
		LLM:        gen,
		Defaults:   core.RequestConfig{VectorDB: "milvus", CollectionName: "documents"},
	}

	rec := httptest.NewRecorder()
	err := h.sendMessage(e.NewContext(jsonRequest(http.MethodPost, "/api/send-message", `{"message":"capital of France?","search_type":"MMR"}`), rec))
	if err != nil {
		t.Fatalf("sendMessage: %v", err)
	}
	if resolver.backend != "milvus" || resolver.collection != "documents" || resolver.kind != retrieval.RetrieverVectorstore {
		t.Fatalf("unexpected retriever lookup: %+v", resolver)
	}
	if retriever.query != "capital of France?" || retriever.k != 5 {
		t.Fatalf("unexpected retrieval: %q k=%d", retriever.query, retriever.k)
	}
	if !strings.Contains(gen.prompt, "Paris is the capital of France.\n\n"+long) || !strings.HasSuffix(gen.prompt, "Question: capital of France?\nComprehensive answer:") {
		t.Fatalf("unexpected prompt: %q", gen.prompt)
	}

	var body sendMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Answer != "Paris." || body.TotalSources != 2 || body.SearchTypeUsed != "mmr" {
		t.Fatalf("unexpected response: %+v", body)
	}
	if len(body.SimilarityScores) != 2 || body.SimilarityScores[0] != 0.8 || body.SimilarityScores[1] != 0.4 {
		t.Fatalf("unexpected scores: %v", body.SimilarityScores)
	}
	if len(body.AccuracyPercentages) != 2 || body.AccuracyPercentages[0] != 100 || body.AccuracyPercentages[1] != 50 {
		t.Fatalf("unexpected accuracy: %v", body.AccuracyPercentages)
	}
	if body.Sources[0].SourceName != "facts.txt" || body.Sources[1].SourceName != "Unknown" {
		t.Fatalf("unexpected source names: %+v", body.Sources)
	}
	if body.Sources[1].PageContent != strings.Repeat("x", 200)+"..." {
		t.Fatalf("expected a truncated preview, got %d characters", len(body.Sources[1].PageContent))
	}
}

func TestSendMessageRouteRegistered(t *testing.T) {
	e := New(config.ServerConfig{}, Handlers{
		Agent:      &stubInvoker{},
		Travel:     &stubPlanner{},
		Ingest:     &stubIngestor{},
		Retrievers: &stubResolver{retriever: &stubRetriever{}},
		Generator:  &stubGenerator{},
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/send-message", `{}`))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "No message provided") {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestWebSearcherDisabledIsLoggedWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "[ORCH] ", 0)
	if s := webSearcher(config.WebSearchConfig{Provider: "tavily"}, logger); s != nil {
		t.Fatalf("expected no searcher without an API key, got %T", s)
	}
	if !strings.HasPrefix(buf.String(), "[ORCH] web search disabled:") {
		t.Fatalf("unexpected log line %q", buf.String())
	}
	if s := webSearcher(config.WebSearchConfig{Provider: "tavily", TavilyAPIKey: "key"}, logger); s == nil {
		t.Fatal("expected a searcher when the key is set")
	}
}
