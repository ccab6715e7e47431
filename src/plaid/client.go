package plaid

import (
	"budgetsync-server/src/models"
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/plaid/plaid-go/v41/plaid"
)

func NewPlaidClient(clientID, secret, env string) *plaid.APIClient {
	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	configuration.AddDefaultHeader("PLAID-SECRET", secret)

	switch env {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	default:
		log.Fatalf("Invalid Plaid environment: %s", env)
	}

	return plaid.NewAPIClient(configuration)
}

// Client adapts the Plaid SDK to the Aggregator interface, converting SDK
// payloads into typed records at the boundary.
type Client struct {
	api *plaid.APIClient
}

func NewClient(api *plaid.APIClient) *Client {
	return &Client{api: api}
}

func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := c.api.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
	if err != nil {
		return "", "", fmt.Errorf("token exchange failed: %w", err)
	}
	return resp.GetAccessToken(), resp.GetItemId(), nil
}

// GetInstitution resolves the institution id and display name behind an
// access token. Callers treat failure here as non-fatal metadata loss.
func (c *Client) GetInstitution(ctx context.Context, accessToken string) (string, string, error) {
	itemReq := plaid.NewItemGetRequest(accessToken)
	itemResp, _, err := c.api.PlaidApi.ItemGet(ctx).ItemGetRequest(*itemReq).Execute()
	if err != nil {
		return "", "", fmt.Errorf("item lookup failed: %w", err)
	}

	item := itemResp.GetItem()
	institutionID := item.GetInstitutionId()
	if institutionID == "" {
		return "", "", nil
	}

	instReq := plaid.NewInstitutionsGetByIdRequest(institutionID, []plaid.CountryCode{plaid.COUNTRYCODE_US})
	instResp, _, err := c.api.PlaidApi.InstitutionsGetById(ctx).InstitutionsGetByIdRequest(*instReq).Execute()
	if err != nil {
		return institutionID, "", fmt.Errorf("institution lookup failed: %w", err)
	}

	institution := instResp.GetInstitution()
	return institutionID, institution.GetName(), nil
}

func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]models.Account, error) {
	req := plaid.NewAccountsGetRequest(accessToken)
	resp, _, err := c.api.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*req).Execute()
	if err != nil {
		return nil, err
	}

	raw := resp.GetAccounts()
	accounts := make([]models.Account, 0, len(raw))
	for _, a := range raw {
		accounts = append(accounts, accountFromPlaid(a))
	}
	return accounts, nil
}

func (c *Client) GetTransactions(ctx context.Context, accessToken string, startDate, endDate time.Time) ([]models.Transaction, error) {
	req := plaid.NewTransactionsGetRequest(accessToken, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	resp, _, err := c.api.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*req).Execute()
	if err != nil {
		return nil, err
	}

	raw := resp.GetTransactions()
	transactions := make([]models.Transaction, 0, len(raw))
	for _, t := range raw {
		transactions = append(transactions, transactionFromPlaid(t))
	}
	return transactions, nil
}

func (c *Client) CreateLinkToken(ctx context.Context, userID int64) (string, error) {
	req := linkTokenRequest(userID)

	resp, _, err := c.api.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*req).Execute()
	if err != nil {
		return "", fmt.Errorf("link token creation failed: %w", err)
	}
	return resp.GetLinkToken(), nil
}

func linkTokenRequest(userID int64) *plaid.LinkTokenCreateRequest {
	req := plaid.NewLinkTokenCreateRequest(
		"BudgetSync",
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
	)
	req.SetUser(plaid.LinkTokenCreateRequestUser{
		ClientUserId: strconv.FormatInt(userID, 10),
	})
	req.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})
	return req
}
