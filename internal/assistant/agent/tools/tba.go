package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/community-assistant/server/internal/assistant/model"
	errx "github.com/community-assistant/server/internal/core/error"
	logx "github.com/community-assistant/server/pkg/logger"
)

const (
	authHeader     = "X-TBA-Auth-Key"
	maxResponseLen = 4 << 20
)

// TBAClient reads The Blue Alliance v3 API. Requests share one rate limiter.
type TBAClient struct {
	baseURL string
	key     string
	http    *http.Client
	limiter *rate.Limiter
}

func NewTBAClient(cfg model.TBAConfig) *TBAClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &TBAClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.Key,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// TeamAwards lists every award of team.
func (c *TBAClient) TeamAwards(ctx context.Context, team int) ([]map[string]any, error) {
	var out []map[string]any
	err := c.get(ctx, fmt.Sprintf("/team/frc%d/awards", team), &out)
	return out, err
}

// TeamEventMatches lists the matches of team at event without score breakdowns.
func (c *TBAClient) TeamEventMatches(ctx context.Context, team int, eventKey string) ([]map[string]any, error) {
	var out []map[string]any
	if err := c.get(ctx, fmt.Sprintf("/team/frc%d/event/%s/matches", team, url.PathEscape(eventKey)), &out); err != nil {
		return nil, err
	}
	for _, m := range out {
		delete(m, "score_breakdown")
	}
	return out, nil
}

// Match returns one match including its score breakdown.
func (c *TBAClient) Match(ctx context.Context, matchKey string) (map[string]any, error) {
	var out map[string]any
	err := c.get(ctx, "/match/"+url.PathEscape(matchKey), &out)
	return out, err
}

func (c *TBAClient) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errx.WrapTool(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errx.WrapTool(err)
	}
	req.Header.Set(authHeader, c.key)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errx.WrapTool(fmt.Errorf("GET %s: %w", path, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLen))
	if err != nil {
		return errx.WrapTool(fmt.Errorf("read %s: %w", path, err))
	}
	logx.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("tba request")

	if resp.StatusCode != http.StatusOK {
		return errx.WrapTool(fmt.Errorf("GET %s: %s", path, resp.Status))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errx.WrapTool(fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}
