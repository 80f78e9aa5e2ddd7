package serper

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
)

const (
	providerName = "serper"

	defaultBaseURL = "https://google.serper.dev"
	newsEndpoint   = "/news"

	MinResults = 1
	MaxResults = 10
)

// Period restricts results by publication time. Values are Google "tbs" codes.
type Period string

const (
	PeriodToday Period = "qdr:d"
	PeriodWeek  Period = "qdr:w"
	PeriodMonth Period = "qdr:m"
	PeriodYear  Period = "qdr:y"
)

// Label returns the human-readable name of the period.
func (p Period) Label() string {
	switch p {
	case PeriodToday:
		return "today"
	case PeriodWeek:
		return "last week"
	case PeriodMonth:
		return "last month"
	case PeriodYear:
		return "last year"
	}
	return string(p)
}

// ParsePeriod accepts today/day, week, month and year in any case.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today", "day", "d":
		return PeriodToday, nil
	case "week", "w", "last week":
		return PeriodWeek, nil
	case "month", "m", "last month":
		return PeriodMonth, nil
	case "year", "y", "last year":
		return PeriodYear, nil
	}
	return "", ai.NewValidationError("period", "%q is not one of today, week, month, year", s)
}

// Article is one news hit.
type Article struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
	Source  string `json:"source,omitempty"`
}

// NewsRequest describes one search.
type NewsRequest struct {
	Query  string
	Period Period
	Num    int
}

type newsBody struct {
	Q   string `json:"q"`
	TBS string `json:"tbs,omitempty"`
	Num int    `json:"num,omitempty"`
}

type newsResponse struct {
	News []Article `json:"news"`
}

// Client calls the Serper API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a Client from SERPER_API_KEY and SERPER_API_BASE_URL.
func New() *Client {
	return &Client{
		apiKey:  os.Getenv("SERPER_API_KEY"),
		baseURL: utils.FirstNonEmpty(os.Getenv("SERPER_API_BASE_URL"), defaultBaseURL),
		client:  &http.Client{},
	}
}

func (c *Client) WithAPIKey(apiKey string) *Client {
	c.apiKey = apiKey
	return c
}

func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

func (c *Client) WithHttpClient(httpClient *http.Client) *Client {
	c.client = httpClient
	return c
}

// News validates the request and returns at most Num articles that have a
// link, in the order Serper ranked them.
func (c *Client) News(ctx context.Context, request NewsRequest) ([]Article, error) {
	if utils.IsBlank(request.Query) {
		return nil, ai.NewValidationError("query", "must not be empty")
	}
	if request.Num < MinResults || request.Num > MaxResults {
		return nil, ai.NewValidationError("num", "%d is outside [%d, %d]", request.Num, MinResults, MaxResults)
	}
	if c.apiKey == "" {
		return nil, ai.NewValidationError("api_key", "SERPER_API_KEY is not set")
	}

	body := newsBody{Q: strings.TrimSpace(request.Query), TBS: string(request.Period), Num: request.Num}
	_, resp, err := utils.DoPostSync[newsResponse](ctx, c.client, c.baseURL+newsEndpoint, "", body,
		utils.HeaderOption{Key: "X-API-KEY", Value: c.apiKey},
	)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}

	articles := lo.Filter(resp.News, func(a Article, _ int) bool {
		return strings.TrimSpace(a.Link) != ""
	})
	articles = lo.Map(articles, func(a Article, _ int) Article {
		a.Title = strings.TrimSpace(a.Title)
		a.Snippet = strings.TrimSpace(a.Snippet)
		return a
	})
	if len(articles) > request.Num {
		articles = articles[:request.Num]
	}
	return articles, nil
}
