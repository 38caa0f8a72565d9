package plagiarism

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		score float64
		want  models.PlagiarismClass
	}{
		{0, models.PlagiarismClean},
		{14.99, models.PlagiarismClean},
		{15, models.PlagiarismSuspicious},
		{39.9, models.PlagiarismSuspicious},
		{40, models.PlagiarismPlagiarized},
		{45, models.PlagiarismPlagiarized},
		{100, models.PlagiarismPlagiarized},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %v", tt.score)
	}
}

func TestHTTPGateway_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "7", r.FormValue("submissionId"))
		assert.Equal(t, "my essay", r.FormValue("text"))

		if fh := r.MultipartForm.File["files"]; assert.Len(t, fh, 1) {
			assert.Equal(t, "report.pdf", fh[0].Filename)
		}

		src := "wikipedia"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"overallScore": 45,
			"sources":      []map[string]any{{"source": src, "similarity": 45, "matchedText": "lorem"}},
			"suspiciousSections": []map[string]any{
				{"text": "lorem ipsum", "similarity": 80, "source": src},
				{"text": "dolor", "similarity": 20},
			},
		})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(HTTPConfig{BaseURL: srv.URL + "/", APIKey: "secret", Timeout: time.Second})
	analysis, err := gw.Analyze(context.Background(), Submission{
		AttemptID: 7,
		Text:      "my essay",
		Files: []File{{
			Name: "report.pdf",
			Open: func(context.Context) (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader("%PDF")), nil
			},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 45.0, analysis.OverallScore)
	require.Len(t, analysis.Sources, 1)
	assert.Equal(t, "lorem", analysis.Sources[0].MatchedText)
	require.Len(t, analysis.SuspiciousSections, 2)
	assert.Nil(t, analysis.SuspiciousSections[1].Source)

	report := Report(7, analysis, time.Unix(0, 0))
	assert.Equal(t, models.PlagiarismPlagiarized, report.Classification)
	assert.Len(t, report.Sources, 1)
	assert.Equal(t, "wikipedia", *report.SuspiciousSections[0].Source)
}

func TestHTTPGateway_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPGateway(HTTPConfig{BaseURL: srv.URL}).Analyze(context.Background(), Submission{AttemptID: 1})
	assert.ErrorContains(t, err, "503")

	_, err = NewHTTPGateway(HTTPConfig{}).Analyze(context.Background(), Submission{AttemptID: 1})
	assert.ErrorIs(t, err, ErrGatewayDisabled)
}
