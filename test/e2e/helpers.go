//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peptiq-labs/peptiq/internal/api/handlers"
	"github.com/peptiq-labs/peptiq/internal/cache"
	"github.com/peptiq-labs/peptiq/internal/domain"
	"github.com/peptiq-labs/peptiq/internal/pipeline"
	"github.com/peptiq-labs/peptiq/internal/repository"
	"github.com/peptiq-labs/peptiq/internal/server"
	"github.com/peptiq-labs/peptiq/internal/service"
	"github.com/peptiq-labs/peptiq/internal/testutil"
)

const embeddingDims = 768

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	Tier1        cache.Store
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and a running HTTP server. The embedder and generator are deterministic
// stand-ins so no OpenAI key is needed; the web tier stays disabled because
// no searcher is wired.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	tier1 := cache.NewMemoryStore()
	serverURL, serverCloser := startServer(t, pool, tier1, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		Tier1:        tier1,
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
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// CreatePeptide inserts a peptide through the API and fails the test on error.
func (e *E2ETestEnv) CreatePeptide(name, overview string) {
	_, err := e.Post("/peptides/", map[string]interface{}{
		"name":     name,
		"overview": overview,
	})
	if err != nil {
		e.T.Fatalf("failed to create peptide %s: %v", name, err)
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

// stubEmbedder returns the same unit vector for every input, so any stored
// peptide matches any question with cosine similarity 1.0 and the vector
// tier always routes HIGH.
type stubEmbedder struct{}

func (stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	for i := range vec {
		vec[i] = 1
	}
	return vec, nil
}

// stubGenerator produces a deterministic answer that echoes the question and
// the retrieved context, so tests can assert on both.
type stubGenerator struct{}

func (stubGenerator) GenerateAnswer(ctx context.Context, query domain.Query, contextText string, restrictions domain.RestrictionSet) (string, error) {
	return fmt.Sprintf("stub answer to %q using context: %s", query.Text, contextText), nil
}

// startServer wires repositories, the pipeline and all handlers, and starts
// the HTTP server on the given port.
func startServer(t *testing.T, pool *pgxpool.Pool, tier1 cache.Store, port int) (string, func()) {
	peptideRepo := repository.NewPeptideRepository(pool)
	restrictionRepo := repository.NewRestrictionRepository(pool)
	allowedDomainRepo := repository.NewAllowedDomainRepository(pool)
	usageLogRepo := repository.NewUsageLogRepository(pool)

	settings := func() pipeline.Settings {
		return pipeline.Settings{
			HighThreshold:    0.8,
			MediumThreshold:  0.6,
			LowThreshold:     0.4,
			Tier1TTL:         time.Hour,
			Tier2TTL:         24 * time.Hour,
			ChunkSize:        1000,
			ChunkOverlap:     200,
			MaxChunksPerPage: 5,
			MaxPages:         5,
			EmbedTimeout:     15 * time.Second,
			SearchTimeout:    30 * time.Second,
			GenerateTimeout:  60 * time.Second,
		}
	}

	orchestrator := pipeline.NewOrchestrator(
		settings,
		tier1,
		nil,
		stubEmbedder{},
		stubGenerator{},
		peptideRepo,
		restrictionRepo,
		allowedDomainRepo,
		nil,
		nil,
		usageLogRepo,
	)

	peptideSvc := service.NewPeptideService(peptideRepo, stubEmbedder{})

	cfg := server.RouterConfig{
		AskHandler:           handlers.NewAskHandler(orchestrator),
		PeptideHandler:       handlers.NewPeptideHandler(peptideSvc),
		RestrictionHandler:   handlers.NewRestrictionHandler(restrictionRepo),
		AllowedDomainHandler: handlers.NewAllowedDomainHandler(allowedDomainRepo),
		DashboardHandler:     handlers.NewDashboardHandler(usageLogRepo),
		CacheHandler:         handlers.NewCacheHandler(tier1, nil),
	}

	router := server.NewRouter(cfg)

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
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
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
