// Package api はドメインAPIの型付きクライアントを提供する。
// ワイヤ上の動的な形のデータを境界でパースしてドメインモデルへ変換し、
// HTTPステータスをエラー分類（§model.ErrorKind）へ写像する。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tanvir/sharebite/internal/model"
)

// MetricsRecorder はAPI呼び出しの計測インターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordAPIRequest(method string, statusCode int, duration time.Duration)
}

// Client はドメインAPIのHTTPクライアント。
// httpClientにはAuthorizedTransportを組み込んだクライアントを渡すことで、
// 認証済みの場合に限りベアラークレデンシャルが自動付与される。
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    MetricsRecorder // nilの場合は計測しない
}

// NewClient はClientを生成する。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, metrics MetricsRecorder) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
	}
}

// apiErrorBody はサーバーの統一エラーフォーマットのボディ。
type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do はリクエストを1回実行し、エラーを分類する。
// GETが一時的エラーで失敗した場合は1回だけリトライする。
// ミューテーションは副作用の重複を避けるためリトライしない。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	err := c.doOnce(ctx, method, path, query, body, out)
	if err != nil && method == http.MethodGet && model.IsKind(err, model.KindTransient) {
		c.logger.Debug("一時的エラーのため読み取りをリトライします",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		err = c.doOnce(ctx, method, path, query, body, out)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordAPIRequest(method, 0, time.Since(start))
		}
		return model.NewTransientError(err.Error())
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordAPIRequest(method, resp.StatusCode, time.Since(start))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewTransientError(err.Error())
	}

	if resp.StatusCode >= 400 {
		return c.classifyError(method, path, resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return model.NewInvalidPayloadError(err.Error())
		}
	}
	return nil
}

// classifyError はHTTPステータスとエラーボディをドメインエラーへ写像する。
// サーバーが統一エラーフォーマットを返した場合はコードとメッセージを引き継ぐ。
func (c *Client) classifyError(method, path string, statusCode int, body []byte) error {
	var kind model.ErrorKind
	switch {
	case statusCode == http.StatusUnauthorized:
		kind = model.KindUnauthenticated
	case statusCode == http.StatusForbidden:
		kind = model.KindForbidden
	case statusCode == http.StatusNotFound:
		kind = model.KindNotFound
	case statusCode == http.StatusConflict:
		kind = model.KindConflict
	default:
		kind = model.KindTransient
	}

	var serverErr apiErrorBody
	if err := json.Unmarshal(body, &serverErr); err == nil && serverErr.Code != "" {
		return &model.APIError{
			Code:    serverErr.Code,
			Message: serverErr.Message,
			Kind:    kind,
		}
	}

	switch kind {
	case model.KindUnauthenticated:
		return model.NewUnauthenticatedError()
	case model.KindForbidden:
		return model.NewForbiddenError(method + " " + path)
	default:
		return &model.APIError{
			Code:    fmt.Sprintf("HTTP_%d", statusCode),
			Message: fmt.Sprintf("サーバーがステータス %d を返しました", statusCode),
			Kind:    kind,
		}
	}
}
