package plagiarism

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var ErrGatewayDisabled = errors.New("plagiarism gateway not configured")

// Gateway is the external similarity oracle.
type Gateway interface {
	Analyze(ctx context.Context, sub Submission) (*Analysis, error)
}

type File struct {
	Name        string
	ContentType string
	Open        func(ctx context.Context) (io.ReadCloser, error)
}

type Submission struct {
	AttemptID uint
	Text      string
	Files     []File
}

type Source struct {
	Source      string  `json:"source"`
	Similarity  float64 `json:"similarity"`
	MatchedText string  `json:"matchedText"`
}

type Section struct {
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
	Source     *string `json:"source,omitempty"`
}

type Analysis struct {
	OverallScore       float64   `json:"overallScore"`
	Sources            []Source  `json:"sources"`
	SuspiciousSections []Section `json:"suspiciousSections"`
}

type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPGateway posts submissions as multipart forms to {base}/analyze.
type HTTPGateway struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func NewHTTPGateway(cfg HTTPConfig) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

func (g *HTTPGateway) Analyze(ctx context.Context, sub Submission) (*Analysis, error) {
	if g.baseURL == "" {
		return nil, ErrGatewayDisabled
	}

	body, contentType, err := encodeSubmission(ctx, sub)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/analyze", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("X-API-Key", g.apiKey)
	}

	res, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze submission %d: %w", sub.AttemptID, err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return nil, fmt.Errorf("analyze submission %d: %s", sub.AttemptID, res.Status)
	}

	var out Analysis
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	if out.OverallScore < 0 || out.OverallScore > 100 {
		return nil, fmt.Errorf("analysis score out of range: %v", out.OverallScore)
	}
	return &out, nil
}

func encodeSubmission(ctx context.Context, sub Submission) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("submissionId", strconv.FormatUint(uint64(sub.AttemptID), 10)); err != nil {
		return nil, "", err
	}
	if sub.Text != "" {
		if err := w.WriteField("text", sub.Text); err != nil {
			return nil, "", err
		}
	}
	for _, f := range sub.Files {
		if err := copyFile(ctx, w, f); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func copyFile(ctx context.Context, w *multipart.Writer, f File) error {
	rc, err := f.Open(ctx)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	part, err := w.CreateFormFile("files", f.Name)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, rc)
	return err
}
