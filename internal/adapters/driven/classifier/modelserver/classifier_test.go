package modelserver_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sher213/GrantsInvestments/internal/adapters/driven/classifier/modelserver"
	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// writeLabelsFile writes a sidecar label file and returns its path.
func writeLabelsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// newTestClassifier creates a classifier pointed at a test server with
// a three-label sidecar file.
func newTestClassifier(t *testing.T, handler http.HandlerFunc) *modelserver.Classifier {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	classifier, err := modelserver.NewClassifier(modelserver.Config{
		BaseURL:    server.URL,
		LabelsPath: writeLabelsFile(t, "Business & Innovation\nEnvironment & Energy\nHealth & Wellness\n"),
	})
	require.NoError(t, err)
	return classifier
}

// ==================== Constructor Tests ====================

func TestNewClassifier_Success(t *testing.T) {
	classifier, err := modelserver.NewClassifier(modelserver.Config{
		LabelsPath: writeLabelsFile(t, "Housing & Shelter\nEducation & Training\n"),
	})

	require.NoError(t, err)
	require.NotNil(t, classifier)
	assert.Equal(t, modelserver.DefaultModel, classifier.ModelName())
	assert.Equal(t, []string{"Housing & Shelter", "Education & Training"}, classifier.Labels())
}

func TestNewClassifier_SkipsBlankLines(t *testing.T) {
	classifier, err := modelserver.NewClassifier(modelserver.Config{
		LabelsPath: writeLabelsFile(t, "Housing & Shelter\n\n  \nEducation & Training\n\n"),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Housing & Shelter", "Education & Training"}, classifier.Labels())
}

func TestNewClassifier_MissingLabelsPath(t *testing.T) {
	classifier, err := modelserver.NewClassifier(modelserver.Config{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrClassifierConfig)
	assert.Nil(t, classifier)
}

func TestNewClassifier_LabelsFileNotFound(t *testing.T) {
	classifier, err := modelserver.NewClassifier(modelserver.Config{
		LabelsPath: filepath.Join(t.TempDir(), "missing.txt"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrClassifierConfig)
	assert.Nil(t, classifier)
}

func TestNewClassifier_EmptyLabelsFile(t *testing.T) {
	classifier, err := modelserver.NewClassifier(modelserver.Config{
		LabelsPath: writeLabelsFile(t, "\n   \n\n"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrClassifierConfig)
	assert.Contains(t, err.Error(), "no labels")
	assert.Nil(t, classifier)
}

func TestNewClassifier_CustomModel(t *testing.T) {
	classifier, err := modelserver.NewClassifier(modelserver.Config{
		LabelsPath: writeLabelsFile(t, "Housing & Shelter\n"),
		Model:      "grants-categoriser-v2",
	})

	require.NoError(t, err)
	assert.Equal(t, "grants-categoriser-v2", classifier.ModelName())
}

// ==================== Classify Tests ====================

func TestClassifier_Classify_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"index":1,"score":0.87}`)
	})

	result, err := classifier.Classify(context.Background(), driven.ClassifyRequest{
		Title:       "Clean Water Initiative",
		Recipient:   "Rivers Trust",
		Agreement:   "CWI-2024-001",
		Description: "Restoring river habitats",
	})

	require.NoError(t, err)
	assert.Equal(t, "Environment & Energy", result.Label)
	assert.InDelta(t, 0.87, result.Confidence, 0.0001)

	assert.Equal(t, "/v1/classify", gotPath)
	assert.Equal(t, "Rivers Trust CWI-2024-001 Restoring river habitats", gotBody["text"])
}

func TestClassifier_Classify_TrimsCombinedText(t *testing.T) {
	// The title is not part of the trained input, and empty fields must
	// not leave the text padded with outer whitespace.
	var gotBody map[string]string

	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"index":0,"score":0.5}`)
	})

	_, err := classifier.Classify(context.Background(), driven.ClassifyRequest{
		Title:     "Only Title Set",
		Recipient: "Rivers Trust",
	})

	require.NoError(t, err)
	assert.Equal(t, "Rivers Trust", gotBody["text"])
	assert.NotContains(t, gotBody["text"], "Only Title Set")
}

func TestClassifier_Classify_IndexOutOfRange(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"index":9,"score":0.99}`)
	})

	_, err := classifier.Classify(context.Background(), driven.ClassifyRequest{Recipient: "Rivers Trust"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "label index 9 out of range (3 labels)")
}

func TestClassifier_Classify_NegativeIndex(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"index":-1,"score":0.1}`)
	})

	_, err := classifier.Classify(context.Background(), driven.ClassifyRequest{Recipient: "Rivers Trust"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestClassifier_Classify_AuthError(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "missing token")
	})

	_, err := classifier.Classify(context.Background(), driven.ClassifyRequest{Recipient: "Rivers Trust"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrClassifierAuth)
}

func TestClassifier_Classify_ServerError(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "model not loaded")
	})

	_, err := classifier.Classify(context.Background(), driven.ClassifyRequest{Recipient: "Rivers Trust"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.NotErrorIs(t, err, domain.ErrClassifierAuth)
}

func TestClassifier_Classify_MalformedResponse(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	})

	_, err := classifier.Classify(context.Background(), driven.ClassifyRequest{Recipient: "Rivers Trust"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

// ==================== Ping Tests ====================

func TestClassifier_Ping_Success(t *testing.T) {
	var gotPath string
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, "ok")
	})

	err := classifier.Ping(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/healthz", gotPath)
}

func TestClassifier_Ping_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	classifier, err := modelserver.NewClassifier(modelserver.Config{
		BaseURL:    url,
		LabelsPath: writeLabelsFile(t, "Housing & Shelter\n"),
	})
	require.NoError(t, err)

	err = classifier.Ping(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrClassifierConfig)
}

func TestClassifier_Ping_AuthError(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	err := classifier.Ping(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrClassifierAuth)
}

// ==================== Close Tests ====================

func TestClassifier_Close(t *testing.T) {
	classifier, err := modelserver.NewClassifier(modelserver.Config{
		LabelsPath: writeLabelsFile(t, "Housing & Shelter\n"),
	})
	require.NoError(t, err)

	assert.NoError(t, classifier.Close())
}
