package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// File is one entry of a listing.
type File struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	IsFolder     bool      `json:"isFolder"`
	IsPublic     bool      `json:"isPublic"`
}

// Upload identifies a multipart upload in progress.
type Upload struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"key"`
}

// PartURL is the presigned URL for one part.
type PartURL struct {
	PartNumber int32  `json:"partNumber"`
	URL        string `json:"url"`
}

// Part is an uploaded part as reported back on completion.
type Part struct {
	ETag       string `json:"ETag"`
	PartNumber int32  `json:"PartNumber"`
}

// Completed describes the assembled object.
type Completed struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	ETag     string `json:"etag"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New returns a Client for the server at baseURL. A nil httpClient means
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) Token() string { return c.token }

func (c *Client) SetToken(token string) { c.token = token }

// PublicURL is the unauthenticated address of key once it is public.
func (c *Client) PublicURL(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return c.baseURL + "/public/" + strings.Join(segs, "/")
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, in any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}
	return nil, apiErr
}

// do performs a JSON call and decodes the response into out (when not nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		return err
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Ping checks that the server and its backends are up.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// Login authenticates and keeps the session token for later calls.
func (c *Client) Login(ctx context.Context, email string, password []byte) error {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email":    email,
		"password": string(password),
	}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// StorageConfig describes how the server addresses the user's keys.
type StorageConfig struct {
	Mode         string `json:"mode"`
	UserFolderID string `json:"userFolderId"`
}

// Prefix is the key prefix every key of the user carries.
func (s StorageConfig) Prefix() string {
	if s.Mode != "folder" || s.UserFolderID == "" {
		return ""
	}
	return s.UserFolderID + "/"
}

func (c *Client) StorageConfig(ctx context.Context) (StorageConfig, error) {
	var sc StorageConfig
	err := c.do(ctx, http.MethodGet, "/api/storage/config", nil, nil, &sc)
	return sc, err
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
	c.token = ""
	return err
}

// List returns the entries under prefix, relative to the user's folder.
func (c *Client) List(ctx context.Context, prefix string) ([]File, error) {
	q := url.Values{}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	var resp struct {
		Files []File `json:"files"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/files", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// Download streams the object at key into w.
func (c *Client) Download(ctx context.Context, key string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/files/download", url.Values{"key": {key}}, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.send(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return io.Copy(w, resp.Body)
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/api/files", url.Values{"key": {key}}, nil, nil)
}

// SetPublic toggles the visibility of key.
func (c *Client) SetPublic(ctx context.Context, key string, isPublic bool) error {
	return c.do(ctx, http.MethodPost, "/api/toggle-public", nil, map[string]any{
		"key":      key,
		"isPublic": isPublic,
	}, nil)
}

// Initiate starts a multipart upload. The returned key is the fully
// qualified one every later call must use.
func (c *Client) Initiate(ctx context.Context, key, contentType string) (Upload, error) {
	var u Upload
	err := c.do(ctx, http.MethodPost, "/api/multipart/initiate", nil, map[string]string{
		"key":         key,
		"contentType": contentType,
	}, &u)
	return u, err
}

func (c *Client) PresignParts(ctx context.Context, uploadID, key string, partNumbers []int32) ([]PartURL, error) {
	var resp struct {
		PresignedURLs []PartURL `json:"presignedUrls"`
	}
	err := c.do(ctx, http.MethodPost, "/api/multipart/presigned-urls", nil, map[string]any{
		"uploadId":    uploadID,
		"key":         key,
		"partNumbers": partNumbers,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.PresignedURLs, nil
}

// UploadPart PUTs one part body to its presigned URL and returns the ETag.
// The request carries no session token.
func (c *Client) UploadPart(ctx context.Context, partURL string, body io.Reader, size int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, partURL, body)
	if err != nil {
		return "", err
	}
	req.ContentLength = size

	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", fmt.Errorf("part upload response has no ETag")
	}
	return etag, nil
}

func (c *Client) Complete(ctx context.Context, uploadID, key string, parts []Part) (Completed, error) {
	var res Completed
	err := c.do(ctx, http.MethodPost, "/api/multipart/complete", nil, map[string]any{
		"uploadId": uploadID,
		"key":      key,
		"parts":    parts,
	}, &res)
	return res, err
}

func (c *Client) Abort(ctx context.Context, uploadID, key string) error {
	return c.do(ctx, http.MethodPost, "/api/multipart/abort", nil, map[string]string{
		"uploadId": uploadID,
		"key":      key,
	}, nil)
}
