// Package server is a client for the Agent Memory Server REST API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/smallnest/courseqa/log"
	"github.com/smallnest/courseqa/memory"
)

// DefaultBaseURL is where a locally started memory server listens.
const DefaultBaseURL = "http://localhost:8088"

// APIError is a non-2xx answer from the memory server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("memory server returned %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the memory server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to an Agent Memory Server.
type Client struct {
	baseURL    string
	namespace  string
	httpClient *http.Client
	logger     log.Logger
}

var _ memory.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	namespace  string
	httpClient *http.Client
	logger     log.Logger
}

// WithBaseURL sets the server address.
func WithBaseURL(baseURL string) Option {
	return func(opts *clientOptions) {
		opts.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *clientOptions) {
		opts.httpClient = client
	}
}

// WithNamespace scopes every request to a namespace.
func WithNamespace(namespace string) Option {
	return func(opts *clientOptions) {
		opts.namespace = namespace
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(opts *clientOptions) {
		opts.logger = l
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	options := &clientOptions{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = log.Named("memory-server")
	}
	return &Client{
		baseURL:    strings.TrimSuffix(options.baseURL, "/"),
		namespace:  options.namespace,
		httpClient: options.httpClient,
		logger:     options.logger,
	}
}

// Namespace returns the configured namespace.
func (c *Client) Namespace() string { return c.namespace }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) scope(userID, modelName string) url.Values {
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	if c.namespace != "" {
		q.Set("namespace", c.namespace)
	}
	if modelName != "" {
		q.Set("model_name", modelName)
	}
	return q
}

func workingMemoryPath(sessionID string) string {
	return "/v1/working-memory/" + url.PathEscape(sessionID)
}

// GetOrCreateWorkingMemory fetches a session, creating an empty one on 404.
func (c *Client) GetOrCreateWorkingMemory(ctx context.Context, sessionID, userID, modelName string) (*memory.WorkingMemory, bool, error) {
	var wm memory.WorkingMemory
	err := c.do(ctx, http.MethodGet, workingMemoryPath(sessionID), c.scope(userID, modelName), nil, &wm)
	if err == nil {
		if wm.Messages == nil {
			wm.Messages = []memory.MemoryMessage{}
		}
		return &wm, false, nil
	}
	if !IsNotFound(err) {
		return nil, false, fmt.Errorf("get working memory %s: %w", sessionID, err)
	}

	c.logger.Debug("Creating working memory for session %s", sessionID)
	created, err := c.PutWorkingMemory(ctx, &memory.WorkingMemory{
		SessionID: sessionID,
		UserID:    userID,
		Namespace: c.namespace,
		Messages:  []memory.MemoryMessage{},
	}, modelName)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// PutWorkingMemory replaces a session's working memory.
func (c *Client) PutWorkingMemory(ctx context.Context, wm *memory.WorkingMemory, modelName string) (*memory.WorkingMemory, error) {
	if wm.Namespace == "" {
		wm.Namespace = c.namespace
	}
	var out memory.WorkingMemory
	if err := c.do(ctx, http.MethodPut, workingMemoryPath(wm.SessionID), c.scope(wm.UserID, modelName), wm, &out); err != nil {
		return nil, fmt.Errorf("put working memory %s: %w", wm.SessionID, err)
	}
	if out.SessionID == "" {
		out = *wm
	}
	return &out, nil
}

// DeleteWorkingMemory removes a session.
func (c *Client) DeleteWorkingMemory(ctx context.Context, sessionID, userID string) error {
	if err := c.do(ctx, http.MethodDelete, workingMemoryPath(sessionID), c.scope(userID, ""), nil, nil); err != nil {
		return fmt.Errorf("delete working memory %s: %w", sessionID, err)
	}
	return nil
}

type createRequest struct {
	Memories []memory.MemoryRecord `json:"memories"`
}

// CreateLongTermMemories stores records. Missing namespaces default to the
// client's and missing ids get a fresh uuid. The server keys memories by id.
func (c *Client) CreateLongTermMemories(ctx context.Context, records []memory.MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].Namespace == "" {
			records[i].Namespace = c.namespace
		}
	}
	if err := c.do(ctx, http.MethodPost, "/v1/long-term-memory/", nil, createRequest{Memories: records}, nil); err != nil {
		return fmt.Errorf("create long-term memories: %w", err)
	}
	return nil
}

type eqFilter struct {
	Eq string `json:"eq"`
}

type anyFilter struct {
	Any []string `json:"any"`
}

type searchRequest struct {
	Text       string     `json:"text"`
	UserID     *eqFilter  `json:"user_id,omitempty"`
	SessionID  *eqFilter  `json:"session_id,omitempty"`
	Namespace  *eqFilter  `json:"namespace,omitempty"`
	MemoryType *eqFilter  `json:"memory_type,omitempty"`
	Topics     *anyFilter `json:"topics,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

func eq(v string) *eqFilter {
	if v == "" {
		return nil
	}
	return &eqFilter{Eq: v}
}

// SearchLongTermMemory runs a filtered search.
func (c *Client) SearchLongTermMemory(ctx context.Context, req memory.SearchRequest) (*memory.SearchResult, error) {
	ns := req.Namespace
	if ns == "" {
		ns = c.namespace
	}
	body := searchRequest{
		Text:       req.Text,
		UserID:     eq(req.UserID),
		SessionID:  eq(req.SessionID),
		Namespace:  eq(ns),
		MemoryType: eq(req.MemoryType),
		Limit:      req.Limit,
		Offset:     req.Offset,
	}
	if len(req.Topics) > 0 {
		body.Topics = &anyFilter{Any: req.Topics}
	}

	var out memory.SearchResult
	if err := c.do(ctx, http.MethodPost, "/v1/long-term-memory/search", nil, body, &out); err != nil {
		return nil, fmt.Errorf("search long-term memory: %w", err)
	}
	if out.Memories == nil {
		out.Memories = []memory.MemoryRecord{}
	}
	return &out, nil
}

// DeleteLongTermMemories deletes memories by id.
func (c *Client) DeleteLongTermMemories(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := url.Values{}
	for _, id := range ids {
		q.Add("memory_ids", id)
	}
	if err := c.do(ctx, http.MethodDelete, "/v1/long-term-memory", q, nil, nil); err != nil {
		return fmt.Errorf("delete long-term memories: %w", err)
	}
	return nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/health", nil, nil, nil)
}
