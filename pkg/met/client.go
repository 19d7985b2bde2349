package met

import (
	"context"
	"fmt"
	"strings"

	"artscraper/pkg/fetch"
)

// Fetcher is the subset of fetch.Client the package needs
type Fetcher interface {
	Get(ctx context.Context, url string, opts ...fetch.RequestOption) *fetch.Result
	Head(ctx context.Context, url string, opts ...fetch.RequestOption) *fetch.Result
	GetJSON(ctx context.Context, url string, target interface{}, opts ...fetch.RequestOption) error
}

// ObjectDetails is the collection API record of one object
type ObjectDetails struct {
	ObjectID          int64  `json:"objectID"`
	Title             string `json:"title"`
	ArtistDisplayName string `json:"artistDisplayName"`
	PrimaryImage      string `json:"primaryImage"`
	ObjectDate        string `json:"objectDate"`
	Medium            string `json:"medium"`
	Dimensions        string `json:"dimensions"`
	Department        string `json:"department"`
	IsPublicDomain    bool   `json:"isPublicDomain"`
	IsHighlight       bool   `json:"isHighlight"`
}

// Client reads object records from the collection API
type Client struct {
	fetcher Fetcher
	baseURL string
}

// NewClient creates an API client rooted at baseURL
func NewClient(fetcher Fetcher, baseURL string) *Client {
	return &Client{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ObjectURL returns the API URL of one object
func (c *Client) ObjectURL(id int64) string {
	return fmt.Sprintf("%s/objects/%d", c.baseURL, id)
}

// Object fetches the record of one object
func (c *Client) Object(ctx context.Context, id int64) (*ObjectDetails, error) {
	var details ObjectDetails
	if err := c.fetcher.GetJSON(ctx, c.ObjectURL(id), &details); err != nil {
		return nil, err
	}
	return &details, nil
}
