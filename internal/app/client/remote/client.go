package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"blogkeeper/internal/domain/blog"
)

const userAgent = "Blogkeeper-Client/1.0"

// Options параметры HTTP клиента
type Options struct {
	Address   string
	EnableTLS bool
	Timeout   time.Duration
}

// Client реализует blog.Remote поверх JSON API сервера.
// Запросы не повторяются: повтор выполняет движок синхронизации.
type Client struct {
	client  *http.Client
	log     *slog.Logger
	baseURL string
}

var _ blog.Remote = (*Client)(nil)

func New(opts Options, log *slog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return NewWithHTTPClient(BaseURL(opts.Address, opts.EnableTLS), client, log)
}

// NewWithHTTPClient создает клиент с готовым http.Client (например, из httptest.Server).
func NewWithHTTPClient(baseURL string, client *http.Client, log *slog.Logger) *Client {
	return &Client{
		client:  client,
		log:     log.With("component", "remote"),
		baseURL: baseURL,
	}
}

// BaseURL собирает адрес сервера с протоколом.
func BaseURL(address string, tls bool) string {
	scheme := "http://"
	if tls {
		scheme = "https://"
	}
	return scheme + address
}

// Health проверяет доступность сервера.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, nil)
}

func (c *Client) Create(ctx context.Context, kind blog.Kind, body, out any) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/"+kind.Collection(), body)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, out)
}

func (c *Client) Update(ctx context.Context, kind blog.Kind, id int64, body, out any) error {
	path, err := itemPath(kind, id)
	if err != nil {
		return err
	}

	resp, err := c.doRequest(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, out)
}

func (c *Client) Delete(ctx context.Context, kind blog.Kind, id int64) error {
	path, err := itemPath(kind, id)
	if err != nil {
		return err
	}

	resp, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, nil)
}

func (c *Client) List(ctx context.Context, kind blog.Kind, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/"+kind.Collection(), nil)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, out)
}

// itemPath не допускает временные идентификаторы в адресе запроса.
func itemPath(kind blog.Kind, id int64) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("%s %d: %w", kind, id, blog.ErrPlaceholder)
	}
	return "/" + kind.Collection() + "/" + strconv.FormatInt(id, 10), nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка выполнения запроса: %v", blog.ErrRemote, err)
	}

	return resp, nil
}

func (c *Client) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: ошибка чтения ответа: %v", blog.ErrRemote, err)
	}

	c.log.Debug("Получен ответ",
		"status", resp.StatusCode,
		"size", len(body),
	)

	if resp.StatusCode >= 400 {
		var errResp struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil {
			switch {
			case errResp.Detail != "":
				return fmt.Errorf("%w: статус %d: %s", blog.ErrRemote, resp.StatusCode, errResp.Detail)
			case errResp.Error != "":
				return fmt.Errorf("%w: статус %d: %s", blog.ErrRemote, resp.StatusCode, errResp.Error)
			case errResp.Title != "":
				return fmt.Errorf("%w: статус %d: %s", blog.ErrRemote, resp.StatusCode, errResp.Title)
			}
		}
		return fmt.Errorf("%w: статус %d", blog.ErrRemote, resp.StatusCode)
	}

	if result != nil {
		if len(bytes.TrimSpace(body)) == 0 {
			return fmt.Errorf("%w: пустое тело ответа", blog.ErrInvalidResponse)
		}
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("%w: ошибка парсинга ответа: %v", blog.ErrInvalidResponse, err)
		}
	}

	return nil
}
