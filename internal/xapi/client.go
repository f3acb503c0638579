// Package xapi is a small client for the X (Twitter) API v2 endpoints used to
// verify social quests.
package xapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const DefaultBaseURL = "https://api.twitter.com"

type Tweet struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	ReferencedTweets []ReferencedTweet `json:"referenced_tweets,omitempty"`
}

type ReferencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// APIError is returned for any non-2xx answer from the X API.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("x api: status %d", e.StatusCode)
	if e.Title != "" {
		msg += ": " + e.Title
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for baseURL. A zero timeout means the request
// context is the only bound.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) LikedTweets(ctx context.Context, accessToken, userID string, maxResults int) ([]Tweet, error) {
	var out struct {
		Data []Tweet `json:"data"`
	}
	params := url.Values{"max_results": {strconv.Itoa(maxResults)}}
	if err := c.get(ctx, accessToken, "/2/users/"+url.PathEscape(userID)+"/liked_tweets", params, &out); err != nil {
		return nil, fmt.Errorf("failed to get liked tweets: %w", err)
	}
	return out.Data, nil
}

func (c *Client) Following(ctx context.Context, accessToken, userID string, maxResults int) ([]User, error) {
	var out struct {
		Data []User `json:"data"`
	}
	params := url.Values{"max_results": {strconv.Itoa(maxResults)}}
	if err := c.get(ctx, accessToken, "/2/users/"+url.PathEscape(userID)+"/following", params, &out); err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return out.Data, nil
}

func (c *Client) Tweets(ctx context.Context, accessToken, userID string, maxResults int) ([]Tweet, error) {
	var out struct {
		Data []Tweet `json:"data"`
	}
	params := url.Values{
		"max_results":  {strconv.Itoa(maxResults)},
		"tweet.fields": {"referenced_tweets"},
	}
	if err := c.get(ctx, accessToken, "/2/users/"+url.PathEscape(userID)+"/tweets", params, &out); err != nil {
		return nil, fmt.Errorf("failed to get tweets: %w", err)
	}
	return out.Data, nil
}

// Me returns the account the access token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	var out struct {
		Data *User `json:"data"`
	}
	if err := c.get(ctx, accessToken, "/2/users/me", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if out.Data == nil || out.Data.ID == "" {
		return nil, fmt.Errorf("failed to get current user: empty response")
	}
	return out.Data, nil
}

func (c *Client) get(ctx context.Context, accessToken, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var problem struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &problem) == nil {
			apiErr.Title = problem.Title
			apiErr.Detail = problem.Detail
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}

	return nil
}
