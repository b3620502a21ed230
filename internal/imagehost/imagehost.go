// Package imagehost は外部画像ホストへのアップロードクライアントを提供する。
// バイナリを受け取って公開URLを返すブラックボックスとして扱い、
// ワークフローはこのURLをフードのimageUrlとして使用する。
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/tanvir/sharebite/internal/model"
)

// Uploader は画像アップロードのインターフェース。
type Uploader interface {
	// Upload は画像をアップロードして公開URLを返す。
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Client はimgbb互換の画像ホストクライアント。
// httpClientにはSSRF防止機能付きのクライアントを渡すこと。
type Client struct {
	uploadURL  string
	apiKey     string
	maxSize    int64
	httpClient *http.Client
	logger     *slog.Logger
}

// 実装がインターフェースを満たすことをコンパイル時に検証する
var _ Uploader = (*Client)(nil)

// NewClient はClientを生成する。
func NewClient(uploadURL, apiKey string, maxSize int64, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		uploadURL:  uploadURL,
		apiKey:     apiKey,
		maxSize:    maxSize,
		httpClient: httpClient,
		logger:     logger,
	}
}

// uploadResponse は画像ホストのレスポンスボディ。
type uploadResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
}

// Upload は画像をmultipart/form-dataでアップロードして公開URLを返す。
// サイズ上限を超える画像は送信せずに拒否する。
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > c.maxSize {
		return "", model.NewInvalidPayloadError(fmt.Sprintf("image exceeds %d bytes", c.maxSize))
	}

	body, contentType, err := buildMultipartBody(filename, data)
	if err != nil {
		return "", err
	}

	uploadURL := c.uploadURL
	if c.apiKey != "" {
		uploadURL += "?key=" + c.apiKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", model.NewTransientError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", model.NewTransientError(fmt.Sprintf("image host returned status %d", resp.StatusCode))
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", model.NewInvalidPayloadError(err.Error())
	}
	if !decoded.Success || decoded.Data.URL == "" {
		return "", model.NewInvalidPayloadError("image host response is missing url")
	}

	c.logger.Debug("画像をアップロードしました",
		slog.String("filename", filename),
		slog.Int("bytes", len(data)),
	)
	return decoded.Data.URL, nil
}

func buildMultipartBody(filename string, data []byte) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return buf, writer.FormDataContentType(), nil
}
