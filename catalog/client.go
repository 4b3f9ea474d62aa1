package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client клиент каталога открытых данных CKAN
type Client struct {
	baseURL        string
	httpClient     *http.Client
	downloadClient *http.Client
	limiter        *rate.Limiter
	userAgent      string
}

// ClientConfig конфигурация клиента каталога
type ClientConfig struct {
	BaseURL         string
	Timeout         time.Duration
	DownloadTimeout time.Duration
	RateLimit       rate.Limit
	UserAgent       string
}

// NewClient создает новый клиент каталога
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.DownloadTimeout == 0 {
		config.DownloadTimeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = rate.Every(time.Second) // 1 запрос в секунду
	}
	if config.UserAgent == "" {
		config.UserAgent = "CityETL/1.0"
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		downloadClient: &http.Client{
			Timeout: config.DownloadTimeout,
		},
		limiter:   rate.NewLimiter(config.RateLimit, 1),
		userAgent: config.UserAgent,
	}
}

// Resource ресурс пакета каталога
type Resource struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Format          string `json:"format"`
	URL             string `json:"url"`
	LastModified    string `json:"last_modified"`
	Created         string `json:"created"`
	DatastoreActive bool   `json:"datastore_active"`
}

// Package пакет каталога со списком ресурсов
type Package struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Title     string     `json:"title"`
	Resources []Resource `json:"resources"`
}

// Конверт ответа CKAN API
type apiEnvelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// call выполняет вызов действия CKAN API и возвращает сырой результат
func (c *Client) call(ctx context.Context, endpoint string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	fullURL := fmt.Sprintf("%s/api/3/action/%s", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.Success {
		message := envelope.Error.Message
		if message == "" {
			message = "CKAN call failed"
		}
		return nil, fmt.Errorf("ckan error: %s", message)
	}
	return envelope.Result, nil
}

// PackageShow возвращает метаданные пакета с его ресурсами
func (c *Client) PackageShow(ctx context.Context, packageID string) (*Package, error) {
	raw, err := c.call(ctx, "package_show?id="+url.QueryEscape(packageID))
	if err != nil {
		return nil, err
	}
	var pkg Package
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package %s: %w", packageID, err)
	}
	return &pkg, nil
}

// ResourceShow возвращает метаданные одного ресурса
func (c *Client) ResourceShow(ctx context.Context, resourceID string) (*Resource, error) {
	raw, err := c.call(ctx, "resource_show?id="+url.QueryEscape(resourceID))
	if err != nil {
		return nil, err
	}
	var resource Resource
	if err := json.Unmarshal(raw, &resource); err != nil {
		return nil, fmt.Errorf("failed to parse resource %s: %w", resourceID, err)
	}
	return &resource, nil
}

// DatastoreSearch выкачивает все записи ресурса из datastore постранично.
// Значения приводятся к строкам на стороне API (records_format не задаётся,
// ячейки декодируются как строки).
func (c *Client) DatastoreSearch(ctx context.Context, resourceID string, pageLimit int) ([]map[string]string, error) {
	if pageLimit <= 0 {
		pageLimit = 10000
	}

	var all []map[string]string
	offset := 0
	total := -1

	for {
		endpoint := fmt.Sprintf("datastore_search?resource_id=%s&limit=%d&offset=%d",
			url.QueryEscape(resourceID), pageLimit, offset)
		raw, err := c.call(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		var page struct {
			Total   int               `json:"total"`
			Records []json.RawMessage `json:"records"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("failed to parse datastore page: %w", err)
		}
		if total == -1 {
			total = page.Total
		}
		if len(page.Records) == 0 {
			break
		}

		for _, rawRecord := range page.Records {
			var generic map[string]interface{}
			if err := json.Unmarshal(rawRecord, &generic); err != nil {
				return nil, fmt.Errorf("failed to parse datastore record: %w", err)
			}
			record := make(map[string]string, len(generic))
			for key, value := range generic {
				record[key] = stringifyCell(value)
			}
			all = append(all, record)
		}

		offset += pageLimit
		if offset >= total {
			break
		}
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no records found in datastore for resource %s", resourceID)
	}
	return all, nil
}

// stringifyCell приводит значение ячейки datastore к строке
func stringifyCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

// SelectResource выбирает ресурс пакета: фильтрует по формату, при наличии
// предпочитаемых подстрок имени сужает выбор до совпавших, затем берёт самый
// свежий по last_modified (или created)
func SelectResource(resources []Resource, format string, preferNames []string) (Resource, error) {
	var candidates []Resource
	for _, resource := range resources {
		if strings.EqualFold(resource.Format, format) {
			candidates = append(candidates, resource)
		}
	}

	if len(preferNames) > 0 {
		var preferred []Resource
		for _, resource := range candidates {
			name := strings.ToLower(resource.Name)
			for _, fragment := range preferNames {
				if strings.Contains(name, strings.ToLower(fragment)) {
					preferred = append(preferred, resource)
					break
				}
			}
		}
		if len(preferred) > 0 {
			candidates = preferred
		}
	}

	if len(candidates) == 0 {
		return Resource{}, fmt.Errorf("no %s resources found in the package", strings.ToUpper(format))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return resourceTimestamp(candidates[i]) > resourceTimestamp(candidates[j])
	})
	return candidates[0], nil
}

func resourceTimestamp(resource Resource) string {
	if resource.LastModified != "" {
		return resource.LastModified
	}
	return resource.Created
}

var contentDispositionRe = regexp.MustCompile(`filename="?([^";]+)"?`)

// DownloadResource скачивает файл ресурса в каталог потоково. Имя файла
// берётся из Content-Disposition, иначе из пути URL.
func (c *Client) DownloadResource(ctx context.Context, resource Resource, outputDir string) (string, error) {
	if resource.URL == "" {
		return "", fmt.Errorf("resource %s has no download URL", resource.ID)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit exceeded: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", resource.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	filename := ""
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if match := contentDispositionRe.FindStringSubmatch(disposition); match != nil {
			filename = match[1]
		}
	}
	if filename == "" {
		parsed, err := url.Parse(resource.URL)
		if err == nil {
			filename = filepath.Base(parsed.Path)
		}
	}
	if filename == "" || filename == "." || filename == "/" {
		filename = resource.ID + ".bin"
	}

	destination := filepath.Join(outputDir, filename)
	out, err := os.Create(destination)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destination, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", destination, err)
	}
	return destination, nil
}
