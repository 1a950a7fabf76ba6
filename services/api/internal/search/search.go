package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/services/api/internal/models"
)

type Config struct {
	URL      string
	User     string
	Password string
	Index    string
}

// Client indexes products into Elasticsearch and runs fuzzy name and
// description queries against them.
type Client struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("es: new client: %w", err)
	}

	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("es: info: %s", res.Status())
	}

	return &Client{es: es, index: cfg.Index}, nil
}

func (c *Client) Index(ctx context.Context, p models.Product) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("es: marshal product: %w", err)
	}

	res, err := c.es.Index(c.index, bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("es: index: %w", err)
	}
	defer res.Body.Close()
	return responseError("index", res.StatusCode, res.IsError(), res.Body)
}

func (c *Client) Delete(ctx context.Context, id uint) error {
	res, err := c.es.Delete(c.index, strconv.FormatUint(uint64(id), 10), c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: delete: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError("delete", res.StatusCode, res.IsError(), res.Body)
}

func (c *Client) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return 0, []models.Product{}, nil
	}
	if err := responseError("search", res.StatusCode, res.IsError(), res.Body); err != nil {
		return 0, nil, err
	}

	return decodeHits(res.Body)
}

func decodeHits(r io.Reader) (int64, []models.Product, error) {
	var out struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return 0, nil, fmt.Errorf("es: decode response: %w", err)
	}

	prods := make([]models.Product, len(out.Hits.Hits))
	for i, hit := range out.Hits.Hits {
		prods[i] = hit.Source
	}
	return out.Hits.Total.Value, prods, nil
}

func responseError(op string, status int, isErr bool, body io.Reader) error {
	if !isErr {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(body, 512))
	return fmt.Errorf("es: %s: status %d: %s", op, status, bytes.TrimSpace(msg))
}
