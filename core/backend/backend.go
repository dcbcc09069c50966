// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package backend offers typed calls to the reaction-test API server.

All calls go through a requests.Client. The visitor's session token travels
in the context (see WithToken) and is attached by the BearerToken interceptor
that Interceptors returns.
*/
package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"codeberg.org/presetfe/presetfe/core/requests"
)

// Cache keys. Prefixes of these are passed to requests.Client.Invalidate.
const (
	keyMe                = "users/me"
	keyItemConfigs       = "item_configs"
	keyTestConfigs       = "test_configs"
	keyTestConfigResults = "test_config_results"
	keyItemConfigResults = "item_config_results"
)

type tokenKeyType struct{}

var tokenKey = tokenKeyType{}

// WithToken returns a context whose backend calls authenticate as token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the token set by WithToken, or "".
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)

	return token
}

// Interceptors are the interceptors a requests.Client needs to talk to the backend.
func Interceptors() []requests.Interceptor {
	return []requests.Interceptor{
		requests.Accept("application/json"),
		requests.BearerToken(TokenFromContext),
		requests.TraceContext,
	}
}

// Client wraps a requests.Client with the backend's endpoints.
type Client struct {
	api *requests.Client
}

// New returns a Client issuing its requests through api.
func New(api *requests.Client) *Client {
	return &Client{api: api}
}

// Login exchanges credentials for a token. The backend looks users up by
// email, so username is expected to hold an email address.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	var token Token

	err := c.do(ctx, "/api/users/login", requests.FetchOptions{
		Method: http.MethodPost,
		Form:   url.Values{"username": {username}, "password": {password}},
	}, &token)

	return token, err
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, registration Registration) (User, error) {
	var user User

	err := c.do(ctx, "/api/users/register", requests.FetchOptions{
		Method: http.MethodPost,
		Body:   registration,
	}, &user)

	return user, err
}

// Me returns the user the context's token belongs to.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User

	err := c.do(ctx, "/api/users/me", requests.FetchOptions{Key: keyMe}, &user)

	return user, err
}

// Exists reports whether a username is taken.
func (c *Client) Exists(ctx context.Context, username string) (bool, error) {
	var answer struct {
		Exists bool `json:"exists"`
	}

	err := c.do(ctx, "/api/users/exists/"+url.PathEscape(username), requests.FetchOptions{}, &answer)

	return answer.Exists, err
}

// Logout revokes every token issued to the user so far.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, "/api/users/logout", requests.FetchOptions{Method: http.MethodPost}, nil)

	c.api.Invalidate(keyMe, keyTestConfigResults, keyItemConfigResults)

	return err
}

func (c *Client) ItemConfigs(ctx context.Context) ([]ItemConfig, error) {
	var configs []ItemConfig

	err := c.do(ctx, "/api/item_configs/", requests.FetchOptions{Key: keyItemConfigs}, &configs)

	return configs, err
}

func (c *Client) ItemConfig(ctx context.Context, id int) (ItemConfig, error) {
	var config ItemConfig

	err := c.do(ctx, "/api/item_configs/"+strconv.Itoa(id), requests.FetchOptions{
		Key: keyItemConfigs + "/" + strconv.Itoa(id),
	}, &config)

	return config, err
}

func (c *Client) TestConfigs(ctx context.Context) ([]TestConfig, error) {
	var configs []TestConfig

	err := c.do(ctx, "/api/test_configs/", requests.FetchOptions{Key: keyTestConfigs}, &configs)

	return configs, err
}

func (c *Client) TestConfig(ctx context.Context, id int) (TestConfig, error) {
	var config TestConfig

	err := c.do(ctx, "/api/test_configs/"+strconv.Itoa(id), requests.FetchOptions{
		Key: keyTestConfigs + "/" + strconv.Itoa(id),
	}, &config)

	return config, err
}

// MyTestConfigResults lists the results of the context's user.
func (c *Client) MyTestConfigResults(ctx context.Context) ([]TestConfigResult, error) {
	var results []TestConfigResult

	err := c.do(ctx, "/api/test_config_results/user", requests.FetchOptions{
		Key: keyTestConfigResults + "/user",
	}, &results)

	return results, err
}

// TestConfigResults lists the context user's results for one test config.
func (c *Client) TestConfigResults(ctx context.Context, testConfigID int) ([]TestConfigResult, error) {
	var results []TestConfigResult

	err := c.do(ctx, "/api/test_config_results/test_config/"+strconv.Itoa(testConfigID), requests.FetchOptions{
		Key: keyTestConfigResults + "/test_config/" + strconv.Itoa(testConfigID),
	}, &results)

	return results, err
}

func (c *Client) CreateItemConfigResult(ctx context.Context, result NewItemConfigResult) (ItemConfigResult, error) {
	var created ItemConfigResult

	err := c.do(ctx, "/api/item_config_results/", requests.FetchOptions{
		Method: http.MethodPost,
		Body:   result,
	}, &created)
	if err == nil {
		c.api.Invalidate(keyItemConfigResults)
	}

	return created, err
}

func (c *Client) CreateTestConfigResult(ctx context.Context, result NewTestConfigResult) (TestConfigResult, error) {
	var created TestConfigResult

	err := c.do(ctx, "/api/test_config_results/", requests.FetchOptions{
		Method: http.MethodPost,
		Body:   result,
	}, &created)
	if err == nil {
		c.api.Invalidate(keyTestConfigResults)
	}

	return created, err
}

// do fetches path and decodes a 2xx body into out. out may be nil.
func (c *Client) do(ctx context.Context, path string, opts requests.FetchOptions, out any) error {
	resp, err := c.api.Fetch(ctx, requests.Path(path), opts)
	if err != nil {
		return err
	}

	if !resp.OK() {
		return newAPIError(resp.StatusCode, resp.Body)
	}

	if out == nil {
		return nil
	}

	if err := resp.DecodeJSON(out); err != nil {
		return fmt.Errorf("%w from %s: %w", errInvalidJSON, path, err)
	}

	return nil
}
