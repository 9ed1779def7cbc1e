package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"golang.org/x/oauth2/clientcredentials"
)

const azureDefaultAPIVersion = "2024-06-01"

// cognitiveServicesScope is the AAD scope for Azure OpenAI.
const cognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

// NewAzure creates an Azure OpenAI backend client authenticated by API key.
func NewAzure(apiKey, endpoint, apiVersion string) *OpenAIClient {
	if apiVersion == "" {
		apiVersion = azureDefaultAPIVersion
	}
	client := openai.NewClient(
		azure.WithEndpoint(endpoint, apiVersion),
		option.WithAPIKey(apiKey),
	)
	return &OpenAIClient{name: "azure", client: client}
}

// NewAzureAD creates an Azure OpenAI backend client that authenticates via
// the AAD client-credential flow. Tokens are fetched and refreshed by the
// oauth2 token source; every request carries a current bearer token.
func NewAzureAD(endpoint, apiVersion, tenantID, clientID, clientSecret string) *OpenAIClient {
	if apiVersion == "" {
		apiVersion = azureDefaultAPIVersion
	}
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		Scopes:       []string{cognitiveServicesScope},
	}
	client := openai.NewClient(
		azure.WithEndpoint(endpoint, apiVersion),
		option.WithAPIKey("unused"), // auth happens in the middleware
		option.WithMiddleware(bearerMiddleware(&cc)),
	)
	return &OpenAIClient{name: "azure", client: client}
}

// bearerMiddleware injects a fresh AAD access token into every request.
func bearerMiddleware(cc *clientcredentials.Config) option.Middleware {
	ts := cc.TokenSource(context.Background())
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		tok, err := ts.Token()
		if err != nil {
			return nil, fmt.Errorf("azure ad token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		req.Header.Del("Api-Key")
		return next(req)
	}
}
