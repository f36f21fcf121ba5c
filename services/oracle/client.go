package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/services/metrics"
)

var (
	ErrNoAPIKey = errors.New("the AI service API key is not configured")
	errNoOutput = errors.New("no output text")
)

const (
	opGrade = "grade"
	opTrend = "trend"

	maxErrorBody = 512
)

type (
	generationRequest struct {
		Model      string           `json:"model"`
		Input      generationInput  `json:"input"`
		Parameters generationParams `json:"parameters"`
	}

	generationInput struct {
		Prompt string `json:"prompt"`
	}

	generationParams struct {
		Temperature float64 `json:"temperature"`
		TopP        float64 `json:"top_p"`
	}

	generationResponse struct {
		Output *struct {
			Text *string `json:"text"`
		} `json:"output"`
	}

	// Client grades submissions and analyzes grade trends with a DashScope compatible
	// text-generation service.
	Client struct {
		url         string
		apiKey      string
		model       string
		temperature float64
		topP        float64
		prompts     *Prompts
		http        *http.Client
		logger      core.Logger
	}
)

var (
	_ submission.Grader        = (*Client)(nil)
	_ submission.TrendAnalyzer = (*Client)(nil)
)

// NewClient returns ErrNoAPIKey when no API key is configured.
func NewClient(conf *core.Config, logger core.Logger) (*Client, error) {
	if conf.Oracle.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	prompts, err := LoadPrompts(conf.Oracle.PromptsFile)
	if err != nil {
		return nil, err
	}
	return &Client{
		url:         conf.Oracle.URL,
		apiKey:      conf.Oracle.APIKey,
		model:       conf.Oracle.Model,
		temperature: conf.Oracle.Temperature,
		topP:        conf.Oracle.TopP,
		prompts:     prompts,
		http:        &http.Client{Timeout: conf.Oracle.Timeout},
		logger:      logger,
	}, nil
}

// generate sends prompt and returns the generated text.
// errNoOutput is returned when the response has no output text.
func (c *Client) generate(ctx context.Context, op, prompt string) (text string, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeFailed
		}
		metrics.OracleRequestsTotal.WithLabelValues(op, outcome).Inc()
		metrics.OracleRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(generationRequest{
		Model:      c.model,
		Input:      generationInput{Prompt: prompt},
		Parameters: generationParams{Temperature: c.temperature, TopP: c.topP},
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(msg)))
	}

	var out generationResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errNoOutput
	}
	if out.Output == nil || out.Output.Text == nil {
		return "", errNoOutput
	}
	return *out.Output.Text, nil
}

// Grade asks the service to grade content against the assignment description.
// It never fails: on error the score is null and the feedback explains what went wrong.
func (c *Client) Grade(ctx context.Context, description, content string) (null.Int, string) {
	prompt, err := c.prompts.GradingPrompt(description, content)
	if err != nil {
		c.logger.Error("building grading prompt", err)
		return null.Int{}, MsgGradingErrPrefix + err.Error()
	}

	text, err := c.generate(ctx, opGrade, prompt)
	switch {
	case err == errNoOutput:
		return null.Int{}, MsgNoResult
	case err != nil:
		c.logger.Warn("AI grading request failed", err)
		return null.Int{}, MsgGradingErrPrefix + err.Error()
	}

	score, feedback, err := ParseGrading(text)
	if err != nil {
		c.logger.Warn("parsing AI grading", err, map[string]interface{}{"text": text})
		return null.Int{}, err.Error()
	}
	metrics.AIScoreHistogram.Observe(float64(score))
	return null.IntFrom(score), feedback
}

// AnalyzeTrend asks the service to comment a student's grades in a class.
// At least 2 points are needed. Points are analyzed in chronological order.
func (c *Client) AnalyzeTrend(ctx context.Context, className string, points []submission.TrendPoint) (string, bool) {
	if len(points) < submission.MinTrendPoints {
		return submission.InsufficientTrendDataMessage, false
	}

	sorted := make([]submission.TrendPoint, len(points))
	copy(sorted, points)
	submission.SortPoints(sorted)

	prompt, err := c.prompts.TrendPrompt(className, sorted)
	if err != nil {
		c.logger.Error("building trend prompt", err)
		return MsgTrendErrPrefix + err.Error(), false
	}

	text, err := c.generate(ctx, opTrend, prompt)
	switch {
	case err == errNoOutput:
		return MsgNoAnalysis, false
	case err != nil:
		c.logger.Warn("AI trend analysis request failed", err)
		return MsgTrendErrPrefix + err.Error(), false
	}
	return strings.TrimSpace(text), true
}
