package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/search"
	apperrors "github.com/utafrali/CloudGames/pkg/errors"
	"github.com/utafrali/CloudGames/pkg/pagination"
)

// Config holds the connection settings of the Elasticsearch engine.
type Config struct {
	URL       string
	Index     string
	Username  string
	Password  string
	Transport http.RoundTripper
}

// Engine is the Elasticsearch-backed search.Engine.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var _ search.Engine = (*Engine)(nil)

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source search.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an engine for cfg. It does not contact the cluster; call
// EnsureIndex before first use.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	indexName := cfg.Index
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
		// Sync failures are retried by the outbox drainer, not by the client.
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	return &Engine{client: client, indexName: indexName, logger: logger}, nil
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the games index with its mapping if it is missing.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	closeBody(res)

	if res.StatusCode == http.StatusOK {
		e.logger.InfoContext(ctx, "elasticsearch index already exists", slog.String("index", e.indexName))
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		errResp := decodeError(res)
		// Another replica may have created it in the meantime.
		if errResp.Error.Type == "resource_already_exists_exception" {
			return nil
		}
		return fmt.Errorf("create index: %s", describe(res, errResp))
	}

	e.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// Index upserts the document of g with _id = g.ID and waits for the next
// refresh so the change is searchable when the call returns.
func (e *Engine) Index(ctx context.Context, g *domain.Game) error {
	data, err := json.Marshal(search.DocumentFromGame(g))
	if err != nil {
		return apperrors.IndexUnavailable("index game", fmt.Errorf("marshal document: %w", err))
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(g.ID),
		e.client.Index.WithRefresh("wait_for"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return apperrors.IndexUnavailable("index game", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return apperrors.IndexUnavailable("index game", fmt.Errorf("elasticsearch: %s", describe(res, decodeError(res))))
	}

	e.logger.DebugContext(ctx, "indexed game", slog.String("game_id", g.ID))
	return nil
}

// Remove deletes the document with id. A 404 counts as success.
func (e *Engine) Remove(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.indexName,
		id,
		e.client.Delete.WithRefresh("wait_for"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return apperrors.IndexUnavailable("remove game", err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		e.logger.DebugContext(ctx, "game document already absent", slog.String("game_id", id))
		return nil
	}
	if res.IsError() {
		return apperrors.IndexUnavailable("remove game", fmt.Errorf("elasticsearch: %s", describe(res, decodeError(res))))
	}

	e.logger.DebugContext(ctx, "removed game", slog.String("game_id", id))
	return nil
}

// Search runs a relevance-ranked text search for page p.
func (e *Engine) Search(ctx context.Context, text string, p pagination.Params) (*search.Result, error) {
	resp, err := e.query(ctx, "search games", buildSearchQuery(text, p))
	if err != nil {
		return nil, err
	}

	return &search.Result{
		Games: toGames(resp),
		Total: resp.Hits.Total.Value,
	}, nil
}

// Popular returns up to top games ordered by release date, newest first.
func (e *Engine) Popular(ctx context.Context, top int) ([]domain.Game, error) {
	resp, err := e.query(ctx, "popular games", buildPopularQuery(top))
	if err != nil {
		return nil, err
	}
	return toGames(resp), nil
}

func (e *Engine) query(ctx context.Context, op string, body map[string]any) (*esSearchResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.SearchBackend(op, fmt.Errorf("marshal query: %w", err))
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, apperrors.SearchBackend(op, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return nil, apperrors.SearchBackend(op, fmt.Errorf("elasticsearch: %s", describe(res, decodeError(res))))
	}

	var resp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, apperrors.SearchBackend(op, fmt.Errorf("decode response: %w", err))
	}
	return &resp, nil
}

func toGames(resp *esSearchResponse) []domain.Game {
	games := make([]domain.Game, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		games = append(games, hit.Source.Game())
	}
	return games
}

func decodeError(res *esapi.Response) esErrorResponse {
	var errResp esErrorResponse
	_ = json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&errResp)
	return errResp
}

func describe(res *esapi.Response, errResp esErrorResponse) string {
	if errResp.Error.Type != "" {
		return fmt.Sprintf("status %d: %s: %s", res.StatusCode, errResp.Error.Type, errResp.Error.Reason)
	}
	return "unexpected status " + res.Status()
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}
