package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
)

// emptyPayloadHash is the SHA-256 of an empty body; every SP-API call here
// is a GET.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

const amazonRoleSessionName = "capliquify-sync"

// amazonSigningCredentials resolves the AWS credentials used to SigV4-sign
// SP-API requests for one tenant.
type amazonSigningCredentials func(ctx context.Context, cred *integration.AmazonCredential) (aws.Credentials, error)

// AmazonAdapter implements the Connector interface for the Amazon Selling
// Partner API. One sync exchanges the LWA refresh token for an access
// token, assumes the seller's IAM role, then pulls recent orders and FBA
// inventory. Every request carries both the LWA token header and a SigV4
// signature.
type AmazonAdapter struct {
	config      *AmazonConfig
	client      *apiClient
	logger      *zap.Logger
	clock       func() time.Time
	signingCred amazonSigningCredentials
}

// AmazonOption is a functional option for configuring the adapter
type AmazonOption func(*AmazonAdapter)

// WithAmazonClock overrides the clock (tests)
func WithAmazonClock(clock func() time.Time) AmazonOption {
	return func(a *AmazonAdapter) { a.clock = clock }
}

// WithAmazonSigningCredentials overrides the AWS credential resolution
// (tests stub out STS entirely)
func WithAmazonSigningCredentials(resolve amazonSigningCredentials) AmazonOption {
	return func(a *AmazonAdapter) { a.signingCred = resolve }
}

// NewAmazonAdapter creates a new Amazon SP-API adapter.
func NewAmazonAdapter(config *AmazonConfig, clientConfig ClientConfig, logger *zap.Logger, opts ...AmazonOption) (*AmazonAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := clientConfig.Validate(); err != nil {
		return nil, err
	}
	a := &AmazonAdapter{
		config: config,
		client: newAPIClient(integration.KindAmazon, clientConfig, logger),
		logger: logger,
		clock:  time.Now,
	}
	a.signingCred = a.resolveSigningCredentials
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Kind returns KindAmazon
func (a *AmazonAdapter) Kind() integration.Kind {
	return integration.KindAmazon
}

// Domains returns the domains one Amazon sync produces
func (a *AmazonAdapter) Domains() []integration.Domain {
	return []integration.Domain{integration.DomainOrders, integration.DomainInventory}
}

// Sync pulls and normalizes the tenant's recent orders and FBA stock.
func (a *AmazonAdapter) Sync(ctx context.Context, tenantID uuid.UUID, credential integration.Credential) ([]integration.Snapshot, error) {
	cred, ok := credential.(*integration.AmazonCredential)
	if !ok {
		return nil, &integration.ConfigurationError{Kind: integration.KindAmazon, Reason: "credential payload is not an Amazon credential"}
	}

	accessToken, err := a.fetchLWAToken(ctx, cred)
	if err != nil {
		return nil, err
	}
	awsCreds, err := a.signingCred(ctx, cred)
	if err != nil {
		return nil, &integration.AuthError{Kind: integration.KindAmazon, Detail: "role assumption failed: " + err.Error()}
	}
	session := &amazonSession{cred: cred, accessToken: accessToken, awsCreds: awsCreds}

	orders, err := a.fetchOrders(ctx, session)
	if err != nil {
		return nil, err
	}
	stock, err := a.fetchInventory(ctx, session)
	if err != nil {
		return nil, err
	}

	ordersSummary, err := normalizeAmazonOrders(orders)
	if err != nil {
		return nil, err
	}
	inventorySummary := normalizeAmazonInventory(stock)

	capturedAt := a.clock()
	return []integration.Snapshot{
		integration.NewSnapshot(tenantID, integration.KindAmazon, ordersSummary, capturedAt),
		integration.NewSnapshot(tenantID, integration.KindAmazon, inventorySummary, capturedAt),
	}, nil
}

// amazonSession bundles the per-sync tokens so each request is signed with
// one consistent identity.
type amazonSession struct {
	cred        *integration.AmazonCredential
	accessToken string
	awsCreds    aws.Credentials
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

// fetchLWAToken exchanges the refresh token at the Login with Amazon
// endpoint.
func (a *AmazonAdapter) fetchLWAToken(ctx context.Context, cred *integration.AmazonCredential) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)
	form.Set("client_id", cred.ClientID)
	form.Set("client_secret", cred.ClientSecret)

	body, err := a.client.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.LWATokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var token LWATokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", &integration.NormalizationError{Kind: integration.KindAmazon, Domain: integration.DomainOrders, Detail: "lwa token response: " + err.Error()}
	}
	if token.AccessToken == "" {
		return "", &integration.AuthError{Kind: integration.KindAmazon, StatusCode: http.StatusOK, Detail: "lwa token endpoint returned no access token"}
	}
	return token.AccessToken, nil
}

// resolveSigningCredentials assumes the seller's SP-API role via STS, or
// uses the IAM user keys directly when STS is disabled.
func (a *AmazonAdapter) resolveSigningCredentials(ctx context.Context, cred *integration.AmazonCredential) (aws.Credentials, error) {
	static := credentials.NewStaticCredentialsProvider(cred.AWSAccessKeyID, cred.AWSSecretAccessKey, "")
	if a.config.DisableSTS || cred.RoleARN == "" {
		return static.Retrieve(ctx)
	}

	stsClient := sts.New(sts.Options{
		Region:      cred.Region,
		Credentials: aws.NewCredentialsCache(static),
	})
	out, err := stsClient.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(cred.RoleARN),
		RoleSessionName: aws.String(amazonRoleSessionName),
	})
	if err != nil {
		return aws.Credentials{}, err
	}
	return aws.Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		CanExpire:       true,
		Expires:         aws.ToTime(out.Credentials.Expiration),
	}, nil
}

// ---------------------------------------------------------------------------
// Fetching
// ---------------------------------------------------------------------------

// get performs one signed SP-API GET. Signing happens inside the build
// closure so every retry attempt carries a fresh signature timestamp.
func (a *AmazonAdapter) get(ctx context.Context, session *amazonSession, path string, params url.Values) ([]byte, error) {
	endpoint := a.config.APIBaseURL + path
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	signer := v4.NewSigner()

	return a.client.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("x-amz-access-token", session.accessToken)
		if err := signer.SignHTTP(ctx, session.awsCreds, req, emptyPayloadHash, "execute-api", session.cred.Region, a.clock()); err != nil {
			return nil, err
		}
		return req, nil
	})
}

func (a *AmazonAdapter) fetchOrders(ctx context.Context, session *amazonSession) ([]AmazonOrder, error) {
	createdAfter := a.clock().AddDate(0, 0, -a.config.OrderWindowDays).UTC().Format(time.RFC3339)

	var orders []AmazonOrder
	nextToken := ""
	for {
		params := url.Values{}
		params.Set("MarketplaceIds", session.cred.MarketplaceID)
		params.Set("CreatedAfter", createdAfter)
		if nextToken != "" {
			params.Set("NextToken", nextToken)
		}

		body, err := a.get(ctx, session, "/orders/v0/orders", params)
		if err != nil {
			return nil, err
		}
		var resp AmazonOrdersResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &integration.NormalizationError{Kind: integration.KindAmazon, Domain: integration.DomainOrders, Detail: err.Error()}
		}
		orders = append(orders, resp.Payload.Orders...)
		if resp.Payload.NextToken == "" {
			return orders, nil
		}
		nextToken = resp.Payload.NextToken
	}
}

func (a *AmazonAdapter) fetchInventory(ctx context.Context, session *amazonSession) ([]AmazonInventorySummary, error) {
	var items []AmazonInventorySummary
	nextToken := ""
	for {
		params := url.Values{}
		params.Set("granularityType", "Marketplace")
		params.Set("granularityId", session.cred.MarketplaceID)
		params.Set("marketplaceIds", session.cred.MarketplaceID)
		params.Set("details", "true")
		if nextToken != "" {
			params.Set("nextToken", nextToken)
		}

		body, err := a.get(ctx, session, "/fba/inventory/v1/summaries", params)
		if err != nil {
			return nil, err
		}
		var resp AmazonInventoryResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &integration.NormalizationError{Kind: integration.KindAmazon, Domain: integration.DomainInventory, Detail: err.Error()}
		}
		items = append(items, resp.Payload.InventorySummaries...)
		if resp.Pagination == nil || resp.Pagination.NextToken == "" {
			return items, nil
		}
		nextToken = resp.Pagination.NextToken
	}
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

// normalizeAmazonOrders aggregates the order window. Canceled orders count
// toward totals but not revenue; pending orders often arrive without an
// OrderTotal, which maps to an explicit zero.
func normalizeAmazonOrders(orders []AmazonOrder) (integration.OrdersSummary, error) {
	summary := integration.OrdersSummary{TotalRevenue: decimal.Zero}
	for _, order := range orders {
		summary.TotalOrders++
		if order.OrderStatus == "Canceled" {
			continue
		}
		if order.OrderStatus == "Shipped" {
			summary.FulfilledOrders++
		} else {
			summary.OpenOrders++
		}
		if order.OrderTotal == nil {
			continue
		}
		amount, err := decimal.NewFromString(order.OrderTotal.Amount)
		if err != nil {
			return integration.OrdersSummary{}, &integration.NormalizationError{
				Kind:   integration.KindAmazon,
				Domain: integration.DomainOrders,
				Detail: "order " + order.AmazonOrderID + ": bad amount " + order.OrderTotal.Amount,
			}
		}
		summary.TotalRevenue = summary.TotalRevenue.Add(amount)
		if summary.Currency == "" {
			summary.Currency = order.OrderTotal.CurrencyCode
		}
	}
	return summary, nil
}

// normalizeAmazonInventory maps FBA stock positions. FBA exposes no
// landed cost or minimum level, so those carry explicit zeros and only the
// zero-stock signal is meaningful for alerts.
func normalizeAmazonInventory(stock []AmazonInventorySummary) integration.InventorySummary {
	items := make([]integration.InventoryItem, 0, len(stock))
	for _, s := range stock {
		qty := s.TotalQuantity
		if s.InventoryDetails != nil {
			qty = s.InventoryDetails.FulfillableQuantity
		}
		items = append(items, integration.InventoryItem{
			SKU:            s.SellerSKU,
			Description:    s.ProductName,
			QuantityOnHand: decimal.NewFromInt(int64(qty)),
		})
	}
	return integration.SummarizeInventory(items)
}

// Ensure AmazonAdapter implements the Connector interface
var _ integration.Connector = (*AmazonAdapter)(nil)
