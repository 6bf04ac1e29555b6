package cli_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/cvindex/internal/cli"
	"github.com/rshade/cvindex/internal/remote"
)

// fakeService answers the score, lookup, OCR and health endpoints. The
// score is the carb total so tests can predict it.
type fakeService struct {
	srv        *httptest.Server
	scoreCalls atomic.Int32
	lookups    atomic.Int32
	version    string
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{version: "1.4.0"}
	mux := http.NewServeMux()
	mux.HandleFunc("/castle-verde/calculate-index", func(w http.ResponseWriter, r *http.Request) {
		f.scoreCalls.Add(1)
		var req remote.ScoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"detail":"bad body"}`, http.StatusUnprocessableEntity)
			return
		}
		in := req.AggregatedInputData
		writeTestJSON(w, remote.ScoreResponse{
			PredictedSpike: in.TotalCarbs,
			InputData:      in,
			BalancedMacros: in.Scale(0.5),
			BaseRatio:      1,
			TierLabel:      "tier",
		})
	})
	mux.HandleFunc("/chatgpt-food-lookup", func(w http.ResponseWriter, r *http.Request) {
		f.lookups.Add(1)
		var req remote.LookupRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.FoodName == "unknown food" {
			http.Error(w, `{"detail":"no estimate"}`, http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"protein": 1, "fat": null, "total_carbs": "27", "sugar": 14, "fiber": 3}`))
	})
	mux.HandleFunc("/process-label", func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("image"); err != nil {
			http.Error(w, `{"detail":"missing image"}`, http.StatusUnprocessableEntity)
			return
		}
		_, _ = w.Write([]byte(`{"protein": "4g", "total_fat": 2, "total_carbohydrate": 10, "dietary_fiber": 1, "total_sugars": 5, "servings": 2}`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, remote.HealthResponse{Status: "ok", Version: f.version})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func writeTestJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// setupCLITest isolates the home directory and quiets logging.
func setupCLITest(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("CVINDEX_HOME", home)
	t.Setenv("CVINDEX_LOG_LEVEL", "error")
	t.Setenv("CVINDEX_PROJECT_DIR", "")
	t.Setenv("CVINDEX_BASE_URL", "")
	t.Setenv("CVINDEX_CACHE_DIR", "")
	t.Setenv("CVINDEX_CACHE_ENABLED", "")
	t.Setenv("CVINDEX_CACHE_TTL_SECONDS", "")
	return home
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestScore_ItemSpecsTable(t *testing.T) {
	setupCLITest(t)
	svc := newFakeService(t)

	out, _, err := execute(t, "score", "--base-url", svc.srv.URL,
		"oats:5,3,27,4,1", "milk:8,5,12,0,12x2")
	require.NoError(t, err)

	assert.Contains(t, out, "oats")
	assert.Contains(t, out, "milk")
	assert.Contains(t, out, "TOTAL")
	// 27 + 2×12 carbs.
	assert.Contains(t, out, "51.0g")
	assert.Contains(t, out, "Cart score (anchor Protein): 51.0 Red Zone [tier]")
	assert.Contains(t, out, "MACRO")
	assert.Equal(t, int32(1), svc.scoreCalls.Load(), "a batch of adds costs one score call")
}

func TestScore_JSONWithEach(t *testing.T) {
	setupCLITest(t)
	svc := newFakeService(t)

	out, _, err := execute(t, "score", "--base-url", svc.srv.URL, "-o", "json", "--each",
		"--cart-anchor", "fat", "rice:4,0,45,1,0", "beans:8,1,20,7,1")
	require.NoError(t, err)

	var report struct {
		Items []struct {
			Name     string `json:"name"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
		Cart struct {
			Anchor string   `json:"anchor"`
			Score  *float64 `json:"score"`
			Zone   string   `json:"zone"`
		} `json:"cart"`
		Each []struct {
			Name  string `json:"name"`
			Score struct {
				Score *float64 `json:"score"`
			} `json:"score"`
		} `json:"each"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Items, 2)
	require.NotNil(t, report.Cart.Score)
	assert.InDelta(t, 65.0, *report.Cart.Score, 1e-9)
	assert.Equal(t, "Fat", report.Cart.Anchor)
	assert.Equal(t, "Red Zone", report.Cart.Zone)
	require.Len(t, report.Each, 2)
	require.NotNil(t, report.Each[0].Score.Score)
	assert.InDelta(t, 45.0, *report.Each[0].Score.Score, 1e-9)
	assert.InDelta(t, 20.0, *report.Each[1].Score.Score, 1e-9)
}

func TestScore_CartFile(t *testing.T) {
	setupCLITest(t)
	svc := newFakeService(t)

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cart.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`items:
  - name: bread
    protein: 3
    total_carbs: 6
    servings: 2
    quantity: 2
  - name: butter
    fat: 11
`), 0o600))

	out, _, err := execute(t, "score", "--base-url", svc.srv.URL, "-o", "json", "--file", yamlPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"score": 24`)

	jsonPath := filepath.Join(dir, "cart.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"items":[{"name":"juice","total_carbs":26,"sugar":22}]}`), 0o600))
	out, _, err = execute(t, "score", "--base-url", svc.srv.URL, "--file", jsonPath)
	require.NoError(t, err)
	assert.Contains(t, out, "26.0 Dangerous")
}

func TestScore_Errors(t *testing.T) {
	setupCLITest(t)
	svc := newFakeService(t)

	_, _, err := execute(t, "score", "--base-url", svc.srv.URL)
	require.ErrorIs(t, err, cli.ErrNoItems)

	_, _, err = execute(t, "score", "--base-url", svc.srv.URL, "nocolon")
	require.Error(t, err)

	_, _, err = execute(t, "score", "--base-url", svc.srv.URL, "--cart-anchor", "salt", "a:1")
	require.Error(t, err)

	_, _, err = execute(t, "score", "--base-url", svc.srv.URL, "--output", "xml", "a:1")
	require.Error(t, err)
}

func TestScore_FailAbove(t *testing.T) {
	setupCLITest(t)
	svc := newFakeService(t)

	_, _, err := execute(t, "score", "--base-url", svc.srv.URL, "--fail-above", "30", "cake:4,12,40,1,30")
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, cli.ExitThreshold, exitErr.ExitCode)

	_, _, err = execute(t, "score", "--base-url", svc.srv.URL, "--fail-above", "30", "salad:2,5,8,3,2")
	require.NoError(t, err)
}

func TestScore_ServiceDown(t *testing.T) {
	setupCLITest(t)
	svc := newFakeService(t)
	url := svc.srv.URL
	svc.srv.Close()

	out, _, err := execute(t, "score", "--base-url", url, "apple:0.5,0.3,25,4,19")
	require.Error(t, err)
	assert.Contains(t, out, "unavailable")
}

func TestLookup_ScoresAndCaches(t *testing.T) {
	home := setupCLITest(t)
	svc := newFakeService(t)

	out, _, err := execute(t, "lookup", "--base-url", svc.srv.URL, "Banana")
	require.NoError(t, err)
	assert.Contains(t, out, "Banana (lookup)")
	assert.Contains(t, out, "Item score (anchor Protein): 27.0 Dangerous")

	_, _, err = execute(t, "lookup", "--base-url", svc.srv.URL, "banana")
	require.NoError(t, err)
	assert.Equal(t, int32(1), svc.lookups.Load(), "second lookup is served from the cache")
	entries, err := os.ReadDir(filepath.Join(home, "cache"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, _, err = execute(t, "lookup", "--base-url", svc.srv.URL, "--no-cache", "banana")
	require.NoError(t, err)
	assert.Equal(t, int32(2), svc.lookups.Load())
}

func TestLookup_AddToCart(t *testing.T) {
	setupCLITest(t)
	svc := newFakeService(t)

	out, _, err := execute(t, "lookup", "--base-url", svc.srv.URL, "-o", "json", "--add", "-q", "2", "apple", "pie")
	require.NoError(t, err)

	var report struct {
		Name  string `json:"name"`
		Added struct {
			Quantity int `json:"quantity"`
		} `json:"added"`
		Cart struct {
			Score *float64 `json:"score"`
		} `json:"cart"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "apple pie", report.Name)
	assert.Equal(t, 2, report.Added.Quantity)
	require.NotNil(t, report.Cart.Score)
	assert.InDelta(t, 54.0, *report.Cart.Score, 1e-9)
}

func TestLookup_Failure(t *testing.T) {
	setupCLITest(t)
	svc := newFakeService(t)

	_, _, err := execute(t, "lookup", "--base-url", svc.srv.URL, "unknown", "food")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no estimate")
}

func TestScan_ScalesByServings(t *testing.T) {
	setupCLITest(t)
	svc := newFakeService(t)

	img := filepath.Join(t.TempDir(), "label.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o600))

	out, _, err := execute(t, "scan", "--base-url", svc.srv.URL, "--name", "crackers", img)
	require.NoError(t, err)
	assert.Contains(t, out, "crackers (capture)")
	assert.Contains(t, out, "TOTAL x2")
	assert.Contains(t, out, "20.0g")
	assert.Contains(t, out, "Item score (anchor Protein): 20.0 Caution")

	_, _, err = execute(t, "scan", "--base-url", svc.srv.URL, filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	setupCLITest(t)
	svc := newFakeService(t)

	out, _, err := execute(t, "health", "--base-url", svc.srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "score")
	assert.Contains(t, out, "lookup")
	assert.Contains(t, out, "1.4.0")

	home := os.Getenv("CVINDEX_HOME")
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(`services:
  base_url: `+svc.srv.URL+`
  score_path: /castle-verde/calculate-index
  ocr_path: /process-label
  lookup_path: /chatgpt-food-lookup
  health_path: /health
  timeout_seconds: 5
  min_version: 2.0.0
`), 0o600))
	out, _, err = execute(t, "health", "-o", "json")
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, cli.ExitUnhealthy, exitErr.ExitCode)

	var reports []remote.HealthReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 3)
	for _, r := range reports {
		assert.False(t, r.Healthy)
		assert.Contains(t, r.Error, "does not satisfy")
	}
}

func TestVersion(t *testing.T) {
	setupCLITest(t)
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cvindex test")
}
