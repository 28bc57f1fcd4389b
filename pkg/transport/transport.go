// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package transport is the HTTP client side of the exchange protocol. It
// moves serialized diffs and map bundles between the local project store and
// the server; it never interprets their contents.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/modfold/modfold/modules/trace"
	"github.com/modfold/modfold/pkg/protocol"
	"github.com/modfold/modfold/pkg/version"
)

var (
	ErrProjectNotFound = errors.New("project not found")

	dialer = net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
)

// Client talks to one exchange server on behalf of one contributor.
type Client struct {
	*http.Client
	baseURL     *url.URL
	credentials *Credentials
	userAgent   string
}

// NewClient builds a client for the server with the stored credentials.
func NewClient(server string) (*Client, error) {
	credentials, err := LoadCredentials()
	if err != nil {
		return nil, err
	}
	return NewClientWithCredentials(server, credentials)
}

func NewClientWithCredentials(server string, credentials *Credentials) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(server, "/"))
	if err != nil {
		return nil, fmt.Errorf("bad server url: %w", err)
	}
	return &Client{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        16,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		baseURL:     base,
		credentials: credentials,
		userAgent:   version.GetUserAgent(),
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", c.credentials.BasicAuth())
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	trace.DbgPrint("%s %s", method, path)
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrProjectNotFound
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("bad server response: %w", err)
	}
	return nil
}

// ListProjects returns the id → name listing of projects visible to the
// contributor.
func (c *Client) ListProjects(ctx context.Context) (map[string]string, error) {
	var resp protocol.ProjectList
	if err := c.doJSON(ctx, http.MethodPost, "list_projects", nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Extract()
}

// CreateProject registers a new project and returns its id.
func (c *Client) CreateProject(ctx context.Context) (string, error) {
	var resp protocol.CreateProj
	if err := c.doJSON(ctx, http.MethodPost, "create_project", nil, "", &resp); err != nil {
		return "", err
	}
	return resp.Extract()
}

// DeleteProject removes a project the contributor owns.
func (c *Client) DeleteProject(ctx context.Context, mapID string) error {
	var resp protocol.GenericResponse
	if err := c.doJSON(ctx, http.MethodPost, "delete_project/"+mapID, nil, "", &resp); err != nil {
		return err
	}
	return resp.Ok()
}

// GetStatus reports whether the project currently accepts mods.
func (c *Client) GetStatus(ctx context.Context, mapID string) (string, error) {
	var resp protocol.ModdingStatus
	if err := c.doJSON(ctx, http.MethodPost, "modding_status/"+mapID, nil, "", &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *Client) changeModding(ctx context.Context, mapID, to string) error {
	var resp protocol.GenericResponse
	if err := c.doJSON(ctx, http.MethodPost, to+"_modding/"+mapID, nil, "", &resp); err != nil {
		return err
	}
	return resp.Ok()
}

// TryOpen opens the project for mod submissions.
func (c *Client) TryOpen(ctx context.Context, mapID string) error {
	return c.changeModding(ctx, mapID, "open")
}

// TryClose closes the project for mod submissions.
func (c *Client) TryClose(ctx context.Context, mapID string) error {
	return c.changeModding(ctx, mapID, "close")
}

// CheckUpToDate compares the local map checksum with the server's.
func (c *Client) CheckUpToDate(ctx context.Context, mapID string, sum uint32) (bool, error) {
	var resp protocol.Checksum
	if err := c.doJSON(ctx, http.MethodGet, "get_checksum/"+mapID, nil, "", &resp); err != nil {
		return false, err
	}
	return resp.Sum == sum, nil
}

func multipartFile(field, name string, contents []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	w, err := mw.CreateFormFile(field, name)
	if err != nil {
		return nil, "", err
	}
	if _, err := w.Write(contents); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// SubmitMap uploads a fresh map file, replacing the server's copy.
func (c *Client) SubmitMap(ctx context.Context, mapID, name string, contents []byte) error {
	body, contentType, err := multipartFile("file", name, contents)
	if err != nil {
		return err
	}
	var resp protocol.GenericResponse
	if err := c.doJSON(ctx, http.MethodPost, "update_map/"+mapID, body, contentType, &resp); err != nil {
		return err
	}
	return resp.Ok()
}

// FetchProject downloads the project bundle: the map file plus every
// registered mod in its current lifecycle state.
func (c *Client) FetchProject(ctx context.Context, mapID string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "sync/"+mapID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, ErrProjectNotFound
	default:
		return nil, fmt.Errorf("failed to fetch project: %s", resp.Status)
	}
}

// SubmitMods uploads locally generated mods and returns the name → id
// mapping the server registered them under.
func (c *Client) SubmitMods(ctx context.Context, mapID string, files []ModFile) (map[string]string, error) {
	bundle, err := BuildModsBundle(files)
	if err != nil {
		return nil, err
	}
	body, contentType, err := multipartFile("zip_file", "mods.zip", bundle)
	if err != nil {
		return nil, err
	}
	var resp protocol.ModSubmission
	if err := c.doJSON(ctx, http.MethodPost, "submit_mods/"+mapID, body, contentType, &resp); err != nil {
		return nil, err
	}
	return resp.Ok()
}

// SubmitPatches uploads the super-mod-patched map and the ids it settles.
func (c *Client) SubmitPatches(ctx context.Context, mapID string, mapContents []byte, patched []string) error {
	bundle, err := BuildPatchBundle(mapContents, patched)
	if err != nil {
		return err
	}
	body, contentType, err := multipartFile("zip_file", "patches.zip", bundle)
	if err != nil {
		return err
	}
	var resp protocol.GenericResponse
	if err := c.doJSON(ctx, http.MethodPost, "patch_mods/"+mapID, body, contentType, &resp); err != nil {
		return err
	}
	return resp.Ok()
}
