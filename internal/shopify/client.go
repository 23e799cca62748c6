package shopify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const apiVersion = "2024-01"

// Client talks to the Shopify Admin GraphQL API. Calls are paced so batch
// jobs stay under the API's throttle.
type Client struct {
	http   *resty.Client
	store  string
	token  string
	pace   time.Duration
	logger *slog.Logger
}

func NewClient(store, token string, logger *slog.Logger) *Client {
	return &Client{
		http:   resty.New().SetTimeout(10 * time.Second),
		store:  store,
		token:  token,
		pace:   500 * time.Millisecond,
		logger: logger.With("component", "shopify"),
	}
}

// HTTPClient exposes the underlying transport, used by tests to install mocks.
func (c *Client) HTTPClient() *resty.Client {
	return c.http
}

// VariantRef identifies a product variant found by SKU.
type VariantRef struct {
	ProductID  string
	VariantID  string
	ProductGID string
}

const findVariantQuery = `
query getProductBySku($sku: String!) {
    productVariants(first: 1, query: $sku) {
        edges {
            node {
                id
                sku
                product { id }
            }
        }
    }
}`

const updateTagsMutation = `
mutation updateProductTags($input: ProductInput!) {
    productUpdate(input: $input) {
        product { id tags }
        userErrors { field message }
    }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type findVariantResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Data struct {
		ProductVariants struct {
			Edges []struct {
				Node struct {
					ID      string `json:"id"`
					SKU     string `json:"sku"`
					Product struct {
						ID string `json:"id"`
					} `json:"product"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"productVariants"`
	} `json:"data"`
}

type updateTagsResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Data struct {
		ProductUpdate struct {
			UserErrors []struct {
				Field   []string `json:"field"`
				Message string   `json:"message"`
			} `json:"userErrors"`
		} `json:"productUpdate"`
	} `json:"data"`
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.store, apiVersion)
}

// FindVariantBySKU searches for a variant by SKU and returns it only on an
// exact (case-insensitive) match. A miss is (nil, nil), not an error.
func (c *Client) FindVariantBySKU(ctx context.Context, sku string) (*VariantRef, error) {
	sku = strings.TrimSpace(sku)
	time.Sleep(c.pace)

	var out findVariantResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Shopify-Access-Token", c.token).
		SetHeader("Content-Type", "application/json").
		SetBody(graphqlRequest{Query: findVariantQuery, Variables: map[string]any{"sku": sku}}).
		SetResult(&out).
		Post(c.endpoint())
	if err != nil {
		return nil, fmt.Errorf("failed to query shopify: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("shopify returned status %d", resp.StatusCode())
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("shopify query error: %s", out.Errors[0].Message)
	}

	edges := out.Data.ProductVariants.Edges
	if len(edges) == 0 {
		return nil, nil
	}

	node := edges[0].Node
	if !strings.EqualFold(node.SKU, sku) {
		return nil, nil
	}

	ref := &VariantRef{
		ProductID:  gidTail(node.Product.ID),
		VariantID:  gidTail(node.ID),
		ProductGID: node.Product.ID,
	}
	if ref.ProductID == "" || ref.VariantID == "" {
		return nil, nil
	}
	return ref, nil
}

// UpdateProductTags replaces the product's tag set.
func (c *Client) UpdateProductTags(ctx context.Context, productGID string, tags []string) error {
	time.Sleep(c.pace)

	var out updateTagsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Shopify-Access-Token", c.token).
		SetHeader("Content-Type", "application/json").
		SetBody(graphqlRequest{Query: updateTagsMutation, Variables: map[string]any{
			"input": map[string]any{"id": productGID, "tags": tags},
		}}).
		SetResult(&out).
		Post(c.endpoint())
	if err != nil {
		return fmt.Errorf("failed to update tags: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("shopify returned status %d", resp.StatusCode())
	}
	if len(out.Errors) > 0 {
		return fmt.Errorf("shopify mutation error: %s", out.Errors[0].Message)
	}
	if errs := out.Data.ProductUpdate.UserErrors; len(errs) > 0 {
		return fmt.Errorf("shopify rejected tag update: %s", errs[0].Message)
	}
	return nil
}

// SplitTags turns a comma-separated tag string into trimmed, non-empty tags.
func SplitTags(tags string) []string {
	var out []string
	for _, tag := range strings.Split(tags, ",") {
		if t := strings.TrimSpace(tag); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// gidTail extracts the numeric ID from a Shopify GID like
// "gid://shopify/Product/12345".
func gidTail(gid string) string {
	if gid == "" {
		return ""
	}
	parts := strings.Split(gid, "/")
	return parts[len(parts)-1]
}
