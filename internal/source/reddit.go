package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

const (
	redditUserAgent = "stock-mentions-etl/1.0"
	redditAuthURL   = "https://www.reddit.com/api/v1/access_token"
	redditAPIURL    = "https://oauth.reddit.com"
)

// RedditSource fetches new posts from a set of subreddits via the Reddit
// API using client-credentials OAuth.
type RedditSource struct {
	clientID     string
	clientSecret string
	subreddits   []string
	client       *resty.Client
	accessToken  string

	authURL string
	apiURL  string
}

var _ MessageSource = (*RedditSource)(nil)

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string     `json:"kind"`
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"` // fullname, e.g. t3_abc123
	Title     string  `json:"title"`
	Selftext  string  `json:"selftext"`
	Body      string  `json:"body"` // set for comments
	Author    string  `json:"author"`
	Subreddit string  `json:"subreddit"`
	Permalink string  `json:"permalink"`
	Created   float64 `json:"created_utc"`
	Score     int     `json:"score"`
	ParentID  string  `json:"parent_id"`
}

// NewRedditSource creates a new Reddit source over the given subreddits.
func NewRedditSource(clientID, clientSecret string, subreddits []string) *RedditSource {
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		subreddits:   subreddits,
		client:       resty.New().SetTimeout(30 * time.Second),
		authURL:      redditAuthURL,
		apiURL:       redditAPIURL,
	}
}

// IsEnabled reports whether credentials are configured.
func (r *RedditSource) IsEnabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

// FetchSince returns posts created at or after since across the configured
// subreddits, ascending by creation time, capped at limit.
func (r *RedditSource) FetchSince(ctx context.Context, since time.Time, limit int) ([]models.RawMessage, error) {
	if !r.IsEnabled() {
		return nil, fmt.Errorf("reddit source is not configured")
	}

	if err := r.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("reddit authentication failed: %w", err)
	}

	var all []models.RawMessage
	for _, subreddit := range r.subreddits {
		msgs, err := r.fetchSubreddit(ctx, subreddit, since, limit-len(all))
		if err != nil {
			return nil, fmt.Errorf("fetching r/%s: %w", subreddit, err)
		}
		all = append(all, msgs...)
		if len(all) >= limit {
			break
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	logrus.Infof("Fetched %d messages from %d subreddits since %s",
		len(all), len(r.subreddits), since.Format(time.RFC3339))
	return all, nil
}

func (r *RedditSource) authenticate(ctx context.Context) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", redditUserAgent).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
		}).
		Post(r.authURL)

	if err != nil {
		return err
	}

	var authResp redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &authResp); err != nil {
		return err
	}
	if authResp.AccessToken == "" {
		return fmt.Errorf("no access token in response (status %d)", resp.StatusCode())
	}

	r.accessToken = authResp.AccessToken
	return nil
}

// fetchSubreddit pages through /new until it reaches posts older than since
// or hits the remaining limit.
func (r *RedditSource) fetchSubreddit(ctx context.Context, subreddit string, since time.Time, remaining int) ([]models.RawMessage, error) {
	if remaining <= 0 {
		return nil, nil
	}

	var msgs []models.RawMessage
	after := ""

	for len(msgs) < remaining {
		resp, err := r.client.R().
			SetContext(ctx).
			SetHeader("User-Agent", redditUserAgent).
			SetAuthToken(r.accessToken).
			SetQueryParams(map[string]string{
				"limit": "100",
				"after": after,
			}).
			Get(fmt.Sprintf("%s/r/%s/new", r.apiURL, subreddit))

		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("reddit returned status %d", resp.StatusCode())
		}

		var listing redditListing
		if err := json.Unmarshal(resp.Body(), &listing); err != nil {
			return nil, err
		}
		if len(listing.Data.Children) == 0 {
			break
		}

		reachedWindow := false
		for _, child := range listing.Data.Children {
			post := child.Data
			createdAt := time.Unix(int64(post.Created), 0).UTC()
			if createdAt.Before(since) {
				reachedWindow = true
				break
			}

			msgs = append(msgs, toRawMessage(post))
			if len(msgs) >= remaining {
				break
			}
		}

		if reachedWindow || listing.Data.After == "" {
			break
		}
		after = listing.Data.After
	}

	return msgs, nil
}

func toRawMessage(post redditPost) models.RawMessage {
	content := post.Selftext
	messageType := models.MessageTypePost
	if post.Body != "" {
		content = post.Body
		messageType = models.MessageTypeComment
	}

	return models.RawMessage{
		MessageID:   post.Name,
		Title:       post.Title,
		Content:     content,
		Author:      post.Author,
		CreatedAt:   time.Unix(int64(post.Created), 0).UTC(),
		Subreddit:   post.Subreddit,
		URL:         "https://www.reddit.com" + post.Permalink,
		Score:       post.Score,
		MessageType: messageType,
		ParentID:    post.ParentID,
	}
}
