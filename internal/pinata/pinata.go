// Package pinata publishes token assets to IPFS through the Pinata pinning
// service. A token's image is pinned first, then a metadata JSON document
// referencing the image, and the resulting gateway URIs are returned.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/bjeschke/solanahub/internal/domain"
)

const (
	defaultBaseURL = "https://api.pinata.cloud"
	gatewayBase    = "https://gateway.pinata.cloud/ipfs/"

	defaultTimeout = 60 * time.Second
)

// Client pins files and JSON documents through the Pinata HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	secret  string
	client  *http.Client
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the Pinata API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a Pinata client authenticated with an API key pair.
func NewClient(apiKey, secret string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		secret:  secret,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TokenAsset describes the off-chain document pinned for a token.
type TokenAsset struct {
	Name        string
	Symbol      string
	Description string
	Decimals    int
}

// pinResponse is the common Pinata pinning response.
type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// metadataDocument is the JSON document wallets and explorers resolve from
// the token's URI.
type metadataDocument struct {
	Name        string              `json:"name"`
	Symbol      string              `json:"symbol"`
	Description string              `json:"description"`
	Image       string              `json:"image"`
	Attributes  []metadataAttribute `json:"attributes"`
}

type metadataAttribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Publish pins the token image, then a metadata document referencing it.
// Both resulting URIs point at the public Pinata gateway. Any failure wraps
// domain.ErrPublish; nothing is retried, the caller decides whether to run
// the whole publish again.
func (c *Client) Publish(ctx context.Context, filename string, image io.Reader, asset TokenAsset) (domain.AssetBundle, error) {
	imageHash, err := c.pinFile(ctx, filename, image)
	if err != nil {
		return domain.AssetBundle{}, fmt.Errorf("%w: pin image: %v", domain.ErrPublish, err)
	}
	imageURI := gatewayBase + imageHash

	doc := metadataDocument{
		Name:        asset.Name,
		Symbol:      asset.Symbol,
		Description: asset.Description,
		Image:       imageURI,
		Attributes: []metadataAttribute{
			{TraitType: "decimals", Value: fmt.Sprintf("%d", asset.Decimals)},
		},
	}

	metaHash, err := c.pinJSON(ctx, doc)
	if err != nil {
		return domain.AssetBundle{}, fmt.Errorf("%w: pin metadata: %v", domain.ErrPublish, err)
	}

	return domain.AssetBundle{
		ImageURI:    imageURI,
		MetadataURI: gatewayBase + metaHash,
	}, nil
}

// pinFile uploads a file through pinFileToIPFS and returns its CID.
func (c *Client) pinFile(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	return c.doPin(req)
}

// pinJSON uploads a JSON document through pinJSONToIPFS and returns its CID.
func (c *Client) pinJSON(ctx context.Context, doc interface{}) (string, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinJSONToIPFS", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.doPin(req)
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.secret)
}

func (c *Client) doPin(req *http.Request) (string, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var pin pinResponse
	if err := json.Unmarshal(respBody, &pin); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if pin.IpfsHash == "" {
		return "", fmt.Errorf("empty IpfsHash in response")
	}

	return pin.IpfsHash, nil
}
