// Package vision 封装外部图像识别服务的HTTP客户端。
// 后台用它把商品图片解析为标签，再按标签检索相似商品。
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client 图像识别客户端接口
type Client interface {
	// Tags 解析图片URL，返回按置信度排序的标签
	Tags(ctx context.Context, imageURL string) ([]string, error)
}

// Config 客户端配置
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	MaxTags int
}

// httpClient 基于HTTP的客户端实现
type httpClient struct {
	baseURL string
	apiKey  string
	maxTags int
	client  *http.Client
	logger  *zap.Logger
}

// NewClient 创建图像识别客户端
func NewClient(cfg *Config, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxTags := cfg.MaxTags
	if maxTags <= 0 {
		maxTags = 10
	}

	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		maxTags: maxTags,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// tagRequest 识别请求体
type tagRequest struct {
	ImageURL string `json:"image_url"`
}

// tagResponse 识别响应体
type tagResponse struct {
	Tags []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"tags"`
}

// Tags 解析图片标签
func (c *httpClient) Tags(ctx context.Context, imageURL string) ([]string, error) {
	body, err := json.Marshal(&tagRequest{ImageURL: imageURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tags", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call vision service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		// 读取一小段响应体便于定位问题
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		c.logger.Warn("图像识别服务返回非200",
			zap.Int("status", res.StatusCode),
			zap.ByteString("body", snippet))
		return nil, fmt.Errorf("vision service returned status %d", res.StatusCode)
	}

	var parsed tagResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode vision response: %w", err)
	}

	tags := make([]string, 0, len(parsed.Tags))
	for _, tag := range parsed.Tags {
		if tag.Name == "" {
			continue
		}
		tags = append(tags, tag.Name)
		if len(tags) >= c.maxTags {
			break
		}
	}

	c.logger.Debug("图像识别完成",
		zap.Int("tags", len(tags)),
		zap.Duration("elapsed", time.Since(start)))

	return tags, nil
}
