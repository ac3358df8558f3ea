// Package httpapi provides a Store implementation backed by a remote
// namespace-scoped HTTP API. It is a translation shim: every call maps to
// one request against the remote store and every remote error code maps
// back onto the domain error taxonomy. No store logic lives here.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/domain/ports"
)

// Client implements ports.Store against a remote graft server.
type Client struct {
	base      string
	namespace string
	http      *http.Client
}

// Compile-time interface check.
var _ ports.Store = (*Client)(nil)

// New creates a client for the namespace rooted at baseURL, e.g.
// "https://graft.internal:8080".
func New(baseURL, namespace string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url: %w", entities.ErrInvalidArgument)
	}
	return &Client{
		base:      strings.TrimRight(baseURL, "/"),
		namespace: namespace,
		http:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Namespace returns the namespace this client is scoped to.
func (c *Client) Namespace() string { return c.namespace }

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// errorEnvelope is the remote error body.
type errorEnvelope struct {
	Error struct {
		Code    string                `json:"code"`
		Message string                `json:"message"`
		Errors  []entities.FieldError `json:"errors,omitempty"`
	} `json:"error"`
}

// do issues one request and decodes the response into out when non-nil.
// notFoundOK turns a 404 into a nil result instead of an error, matching
// the (nil, nil) read contract.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, notFoundOK bool) (bool, error) {
	u := c.base + "/v1/" + url.PathEscape(c.namespace) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, entities.NewBackendError(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && notFoundOK {
		return false, nil
	}
	if resp.StatusCode >= 400 {
		return false, c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decoding response: %w", err)
		}
	}
	return true, nil
}

// decodeError maps a remote error body onto the domain taxonomy.
func (c *Client) decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Error.Code != "" {
		msg := env.Error.Message
		switch env.Error.Code {
		case "not_found":
			return fmt.Errorf("%s: %w", msg, entities.ErrNotFound)
		case "conflict":
			return fmt.Errorf("%s: %w", msg, entities.ErrConflict)
		case "invalid_state":
			return fmt.Errorf("%s: %w", msg, entities.ErrInvalidState)
		case "invalid_argument":
			return fmt.Errorf("%s: %w", msg, entities.ErrInvalidArgument)
		case "validation":
			return &entities.ValidationError{Errors: env.Error.Errors}
		}
	}
	return entities.NewBackendError(
		fmt.Sprintf("status %d", resp.StatusCode),
		fmt.Errorf("%s", strings.TrimSpace(string(data))),
	)
}

// nounRequest is the define-noun request body.
type nounRequest struct {
	Name        string                       `json:"name"`
	Description string                       `json:"description,omitempty"`
	Singular    string                       `json:"singular,omitempty"`
	Plural      string                       `json:"plural,omitempty"`
	Schema      map[string]entities.FieldDef `json:"schema,omitempty"`
	CreatedAt   *time.Time                   `json:"created_at,omitempty"`
}

// DefineNoun upserts a Noun on the remote store.
func (c *Client) DefineNoun(ctx context.Context, spec ports.NounSpec) (*entities.Noun, error) {
	req := nounRequest{
		Name:        spec.Name,
		Description: spec.Description,
		Singular:    spec.Singular,
		Plural:      spec.Plural,
		Schema:      spec.Schema,
	}
	if !spec.CreatedAt.IsZero() {
		req.CreatedAt = &spec.CreatedAt
	}
	var noun entities.Noun
	if _, err := c.do(ctx, http.MethodPost, "/nouns", nil, req, &noun, false); err != nil {
		return nil, err
	}
	return &noun, nil
}

// verbRequest is the define-verb request body.
type verbRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Inverse     string     `json:"inverse,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// DefineVerb upserts a Verb on the remote store.
func (c *Client) DefineVerb(ctx context.Context, spec ports.VerbSpec) (*entities.Verb, error) {
	req := verbRequest{Name: spec.Name, Description: spec.Description, Inverse: spec.Inverse}
	if !spec.CreatedAt.IsZero() {
		req.CreatedAt = &spec.CreatedAt
	}
	var verb entities.Verb
	if _, err := c.do(ctx, http.MethodPost, "/verbs", nil, req, &verb, false); err != nil {
		return nil, err
	}
	return &verb, nil
}

// GetNoun returns the Noun or (nil, nil) when absent.
func (c *Client) GetNoun(ctx context.Context, name string) (*entities.Noun, error) {
	var noun entities.Noun
	found, err := c.do(ctx, http.MethodGet, "/nouns/"+url.PathEscape(name), nil, nil, &noun, true)
	if err != nil || !found {
		return nil, err
	}
	return &noun, nil
}

// GetVerb returns the Verb or (nil, nil) when absent.
func (c *Client) GetVerb(ctx context.Context, name string) (*entities.Verb, error) {
	var verb entities.Verb
	found, err := c.do(ctx, http.MethodGet, "/verbs/"+url.PathEscape(name), nil, nil, &verb, true)
	if err != nil || !found {
		return nil, err
	}
	return &verb, nil
}

// ListNouns lists all Nouns in the namespace.
func (c *Client) ListNouns(ctx context.Context) ([]entities.Noun, error) {
	var out []entities.Noun
	if _, err := c.do(ctx, http.MethodGet, "/nouns", nil, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVerbs lists all Verbs in the namespace.
func (c *Client) ListVerbs(ctx context.Context) ([]entities.Verb, error) {
	var out []entities.Verb
	if _, err := c.do(ctx, http.MethodGet, "/verbs", nil, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// thingRequest is the create/update request body.
type thingRequest struct {
	Noun      string         `json:"noun,omitempty"`
	ID        string         `json:"id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Validate  bool           `json:"validate,omitempty"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

// Create stores a new Thing on the remote store.
func (c *Client) Create(ctx context.Context, noun string, data map[string]any, opts ports.CreateOptions) (*entities.Thing, error) {
	req := thingRequest{Noun: noun, ID: opts.ID, Data: data, Validate: opts.Validate}
	if !opts.CreatedAt.IsZero() {
		req.CreatedAt = &opts.CreatedAt
	}
	if !opts.UpdatedAt.IsZero() {
		req.UpdatedAt = &opts.UpdatedAt
	}
	var thing entities.Thing
	if _, err := c.do(ctx, http.MethodPost, "/things", nil, req, &thing, false); err != nil {
		return nil, err
	}
	return &thing, nil
}

// Get returns the Thing or (nil, nil) when absent.
func (c *Client) Get(ctx context.Context, id string) (*entities.Thing, error) {
	var thing entities.Thing
	found, err := c.do(ctx, http.MethodGet, "/things/"+url.PathEscape(id), nil, nil, &thing, true)
	if err != nil || !found {
		return nil, err
	}
	return &thing, nil
}

// Update patches a Thing on the remote store.
func (c *Client) Update(ctx context.Context, id string, data map[string]any, opts ports.UpdateOptions) (*entities.Thing, error) {
	req := thingRequest{Data: data, Validate: opts.Validate}
	if !opts.UpdatedAt.IsZero() {
		req.UpdatedAt = &opts.UpdatedAt
	}
	var thing entities.Thing
	if _, err := c.do(ctx, http.MethodPatch, "/things/"+url.PathEscape(id), nil, req, &thing, false); err != nil {
		return nil, err
	}
	return &thing, nil
}

// Delete removes a Thing. Idempotent: the server reports whether anything
// was deleted.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	var out struct {
		Deleted bool `json:"deleted"`
	}
	if _, err := c.do(ctx, http.MethodDelete, "/things/"+url.PathEscape(id), nil, nil, &out, false); err != nil {
		return false, err
	}
	return out.Deleted, nil
}

// List returns a page of Things of the given Noun.
func (c *Client) List(ctx context.Context, noun string, opts ports.ListOptions) (*ports.Page, error) {
	query := url.Values{"noun": {noun}}
	if opts.OrderBy != "" {
		query.Set("order_by", opts.OrderBy)
	}
	if opts.Descending {
		query.Set("desc", "true")
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}
	if len(opts.Where) > 0 {
		where, err := json.Marshal(opts.Where)
		if err != nil {
			return nil, fmt.Errorf("encoding where filter: %w", err)
		}
		query.Set("where", string(where))
	}

	var page ports.Page
	if _, err := c.do(ctx, http.MethodGet, "/things", query, nil, &page, false); err != nil {
		return nil, err
	}
	return &page, nil
}

// actionRequest is the perform request body.
type actionRequest struct {
	Verb        string                `json:"verb"`
	Subject     string                `json:"subject,omitempty"`
	Object      string                `json:"object,omitempty"`
	Data        map[string]any        `json:"data,omitempty"`
	ID          string                `json:"id,omitempty"`
	Status      entities.ActionStatus `json:"status,omitempty"`
	CreatedAt   *time.Time            `json:"created_at,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
}

// Perform records an Action on the remote store.
func (c *Client) Perform(ctx context.Context, verb, subject, object string, data map[string]any, opts ports.PerformOptions) (*entities.Action, error) {
	req := actionRequest{
		Verb:        verb,
		Subject:     subject,
		Object:      object,
		Data:        data,
		ID:          opts.ID,
		Status:      opts.Status,
		CompletedAt: opts.CompletedAt,
	}
	if !opts.CreatedAt.IsZero() {
		req.CreatedAt = &opts.CreatedAt
	}
	var action entities.Action
	if _, err := c.do(ctx, http.MethodPost, "/actions", nil, req, &action, false); err != nil {
		return nil, err
	}
	return &action, nil
}

// Transition moves an Action through its status state machine.
func (c *Client) Transition(ctx context.Context, actionID string, status entities.ActionStatus) (*entities.Action, error) {
	body := map[string]entities.ActionStatus{"status": status}
	var action entities.Action
	if _, err := c.do(ctx, http.MethodPost, "/actions/"+url.PathEscape(actionID)+"/transition", nil, body, &action, false); err != nil {
		return nil, err
	}
	return &action, nil
}

// GetAction returns the Action or (nil, nil) when absent.
func (c *Client) GetAction(ctx context.Context, id string) (*entities.Action, error) {
	var action entities.Action
	found, err := c.do(ctx, http.MethodGet, "/actions/"+url.PathEscape(id), nil, nil, &action, true)
	if err != nil || !found {
		return nil, err
	}
	return &action, nil
}

// ListActions returns Actions matching the filter.
func (c *Client) ListActions(ctx context.Context, filter ports.ActionFilter) ([]entities.Action, error) {
	query := url.Values{}
	if filter.Verb != "" {
		query.Set("verb", filter.Verb)
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Subject != "" {
		query.Set("subject", filter.Subject)
	}
	if filter.Object != "" {
		query.Set("object", filter.Object)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		query.Set("offset", strconv.Itoa(filter.Offset))
	}
	var out []entities.Action
	if _, err := c.do(ctx, http.MethodGet, "/actions", query, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// Purge removes an Action. Idempotent like Delete.
func (c *Client) Purge(ctx context.Context, actionID string) (bool, error) {
	var out struct {
		Purged bool `json:"purged"`
	}
	if _, err := c.do(ctx, http.MethodDelete, "/actions/"+url.PathEscape(actionID), nil, nil, &out, false); err != nil {
		return false, err
	}
	return out.Purged, nil
}

// Related returns the Things adjacent to thingID.
func (c *Client) Related(ctx context.Context, thingID, verb string, dir ports.Direction) ([]*entities.Thing, error) {
	query := url.Values{"direction": {string(dir)}}
	if verb != "" {
		query.Set("verb", verb)
	}
	var out []*entities.Thing
	if _, err := c.do(ctx, http.MethodGet, "/things/"+url.PathEscape(thingID)+"/related", query, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// Edges returns the matching Action records.
func (c *Client) Edges(ctx context.Context, thingID, verb string, dir ports.Direction) ([]entities.Action, error) {
	query := url.Values{"direction": {string(dir)}}
	if verb != "" {
		query.Set("verb", verb)
	}
	var out []entities.Action
	if _, err := c.do(ctx, http.MethodGet, "/things/"+url.PathEscape(thingID)+"/edges", query, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMany applies creates one at a time with per-item outcomes.
// Batching client-side keeps the wire protocol identical across providers;
// the remote store cannot offer multi-item atomicity anyway.
func (c *Client) CreateMany(ctx context.Context, noun string, items []map[string]any, opts ports.CreateOptions) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(items))
	for i, data := range items {
		itemOpts := opts
		itemOpts.ID = ""
		thing, err := c.Create(ctx, noun, data, itemOpts)
		results[i] = entities.BatchResult{Index: i, Err: err}
		if thing != nil {
			results[i].ID = thing.ID
		}
	}
	return results, nil
}

// UpdateMany applies updates one at a time with per-item outcomes.
func (c *Client) UpdateMany(ctx context.Context, updates []ports.ThingUpdate, opts ports.UpdateOptions) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(updates))
	for i, u := range updates {
		_, err := c.Update(ctx, u.ID, u.Data, opts)
		results[i] = entities.BatchResult{Index: i, ID: u.ID, Err: err}
	}
	return results, nil
}

// DeleteMany applies deletes one at a time with per-item outcomes.
func (c *Client) DeleteMany(ctx context.Context, ids []string) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(ids))
	for i, id := range ids {
		_, err := c.Delete(ctx, id)
		results[i] = entities.BatchResult{Index: i, ID: id, Err: err}
	}
	return results, nil
}

// PerformMany applies performs one at a time with per-item outcomes.
func (c *Client) PerformMany(ctx context.Context, inputs []ports.ActionInput) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(inputs))
	for i, in := range inputs {
		action, err := c.Perform(ctx, in.Verb, in.Subject, in.Object, in.Data, ports.PerformOptions{})
		results[i] = entities.BatchResult{Index: i, Err: err}
		if action != nil {
			results[i].ID = action.ID
		}
	}
	return results, nil
}
