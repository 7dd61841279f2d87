package thumbnail

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
)

const redgifsAPIBase = "https://api.redgifs.com/v2"

// RedGifsClient fetches poster thumbnails from the RedGifs API. The API
// wants a temporary bearer token; the client caches one and refreshes it
// once on a 401.
type RedGifsClient struct {
	http *resty.Client

	mu    sync.Mutex
	token string
}

// NewRedGifsClient builds a client with its own resty instance.
func NewRedGifsClient() *RedGifsClient {
	return &RedGifsClient{
		http: resty.New().
			SetBaseURL(redgifsAPIBase).
			SetHeader("User-Agent", "remedia-redgifs/0.1.0"),
	}
}

func (c *RedGifsClient) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	var body struct {
		Token string `json:"token"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/auth/temporary")
	if err != nil {
		return "", fmt.Errorf("redgifs auth request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("redgifs auth returned %s", resp.Status())
	}
	if body.Token == "" {
		return "", fmt.Errorf("redgifs auth response missing token")
	}

	c.mu.Lock()
	c.token = body.Token
	c.mu.Unlock()
	return body.Token, nil
}

func (c *RedGifsClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

type redgifsGif struct {
	URLs struct {
		Poster    string `json:"poster"`
		Thumbnail string `json:"thumbnail"`
	} `json:"urls"`
	MobilePosterURL   string `json:"mobilePosterUrl"`
	PosterURL         string `json:"posterUrl"`
	MiniPosterURL     string `json:"miniPosterUrl"`
	Thumb100PosterURL string `json:"thumb100PosterUrl"`
}

func (g redgifsGif) bestPoster() string {
	for _, u := range []string{
		g.URLs.Poster, g.URLs.Thumbnail,
		g.MobilePosterURL, g.PosterURL, g.MiniPosterURL, g.Thumb100PosterURL,
	} {
		if u != "" {
			return u
		}
	}
	return ""
}

// FetchPoster looks up the official poster URL for a gif id. An empty
// string with nil error means the API had no poster to offer.
func (c *RedGifsClient) FetchPoster(ctx context.Context, gifID string) (string, error) {
	// Retry once after invalidating an expired token.
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.getToken(ctx)
		if err != nil {
			return "", err
		}

		var body struct {
			Gif   *redgifsGif `json:"gif"`
			Error any         `json:"error"`
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("Referer", "https://www.redgifs.com/").
			SetHeader("Origin", "https://www.redgifs.com").
			SetHeader("X-CustomHeader", "https://www.redgifs.com/watch/"+gifID).
			SetResult(&body).
			Get("/gifs/" + strings.ToLower(gifID) + "?views=yes")
		if err != nil {
			return "", fmt.Errorf("redgifs api request: %w", err)
		}
		if resp.StatusCode() == 401 && attempt == 0 {
			c.invalidateToken()
			continue
		}
		if resp.IsError() {
			return "", fmt.Errorf("redgifs api returned %s for gif %s", resp.Status(), gifID)
		}
		if body.Error != nil {
			return "", fmt.Errorf("redgifs api error for gif %s: %v", gifID, body.Error)
		}
		if body.Gif == nil {
			return "", fmt.Errorf("redgifs api response missing gif field")
		}
		return body.Gif.bestPoster(), nil
	}
	return "", fmt.Errorf("redgifs api call failed after token refresh")
}
