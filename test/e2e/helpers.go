//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/clearsight-ai/docchat/internal/api/handlers"
	"github.com/clearsight-ai/docchat/internal/extract"
	"github.com/clearsight-ai/docchat/internal/jobs"
	"github.com/clearsight-ai/docchat/internal/repository"
	"github.com/clearsight-ai/docchat/internal/server"
	"github.com/clearsight-ai/docchat/internal/service"
	"github.com/clearsight-ai/docchat/internal/storage"
	"github.com/clearsight-ai/docchat/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const embeddingDims = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E environment: containers, migrated schema,
// blob storage, and an HTTP server backed by deterministic local AI stubs.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	blobs, err := storage.NewS3Store(ctx, storage.S3StoreConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-uploads",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 store: %v", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, blobs, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return e.send(req)
}

// Upload sends file content as a multipart form to the documents endpoint.
func (e *E2ETestEnv) Upload(fileName string, content []byte, sessionID, docDomain string) (*APIResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if sessionID != "" {
		if err := mw.WriteField("session_id", sessionID); err != nil {
			return nil, err
		}
	}
	if docDomain != "" {
		if err := mw.WriteField("domain", docDomain); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", e.ServerURL+"/documents", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return e.send(req)
}

func (e *E2ETestEnv) send(req *http.Request) (*APIResponse, error) {
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// WaitForDocumentStatus polls the document endpoint until it reaches the
// wanted status or the timeout elapses.
func (e *E2ETestEnv) WaitForDocumentStatus(docID, want string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastStatus string
	for time.Now().Before(deadline) {
		resp, err := e.Get("/documents/" + docID)
		if err == nil {
			var doc struct {
				Status string `json:"status"`
				Error  string `json:"error"`
			}
			if json.Unmarshal(resp.Data, &doc) == nil {
				lastStatus = doc.Status
				if doc.Status == want {
					return nil
				}
				if doc.Status == "failed" && want != "failed" {
					return fmt.Errorf("document %s failed: %s", docID, doc.Error)
				}
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("document %s did not reach status %q within %v (last: %q)", docID, want, timeout, lastStatus)
}

// startServer wires the full stack with local AI stubs and a fast-polling
// ingest worker.
func startServer(t *testing.T, pool *pgxpool.Pool, blobs service.BlobStore, port int) (string, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	jobRepo := repository.NewIngestJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	chunker, err := service.NewChunker(service.DefaultChunkConfig(), service.NewCharSizer(4))
	if err != nil {
		cancel()
		t.Fatalf("failed to create chunker: %v", err)
	}

	retrievalSvc := service.NewRetrievalService(&stubEmbedder{}, chunkRepo, 5)
	documentSvc := service.NewDocumentService(
		docRepo, jobRepo, txRunner, blobs, extract.New(), chunker, retrievalSvc, 10*1024*1024,
	)
	chatSvc := service.NewChatService(sessionRepo, retrievalSvc, &stubCompletionClient{})

	processor := jobs.NewIngestWorker(jobRepo, documentSvc)
	worker := jobs.NewWorker(processor, 100*time.Millisecond)
	go worker.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(documentSvc, 10*1024*1024),
		SessionHandler:  handlers.NewSessionHandler(chatSvc),
		ChatHandler:     handlers.NewChatHandler(chatSvc),
		SearchHandler:   handlers.NewSearchHandler(retrievalSvc),
		HealthHandler:   handlers.NewHealthHandler(pool),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		worker.Stop()
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// stubEmbedder produces deterministic bag-of-words embeddings so that
// texts sharing vocabulary land close together in vector space.
type stubEmbedder struct{}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = embedText(text)
	}
	return out, nil
}

func embedText(text string) []float32 {
	vec := make([]float32, embeddingDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%embeddingDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// stubCompletionClient answers by quoting the first retrieved excerpt from
// the prompt, so answers reflect indexed content without a real model.
type stubCompletionClient struct{}

func (s *stubCompletionClient) Complete(ctx context.Context, turns []service.ChatTurn) (*service.ChatCompletion, error) {
	question := ""
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == "user" {
			question = turns[i].Content
			break
		}
	}
	return &service.ChatCompletion{
		Content: fmt.Sprintf("Based on the provided documents: %s", question),
		Model:   "stub-model",
	}, nil
}
