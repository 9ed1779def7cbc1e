package upstream

import (
	"context"
	"fmt"
	"os"
)

// Client is the interface every model backend must implement.
type Client interface {
	// Name identifies the backend ("openai", "cerebras", "azure", "bedrock").
	Name() string
	// Complete executes one chat completion against the backend.
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// ListModels enumerates the models the backend offers.
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// FromEnv selects and builds a backend client from ambient credentials.
//
// Precedence follows the historical proxy behaviour: Cerebras, then OpenAI,
// then Azure OpenAI (API key or AAD client-credential flow), then Bedrock
// when an AWS region is configured. baseURL overrides the endpoint for the
// OpenAI-compatible backends. Returns ErrNoCredentials when nothing is
// resolvable.
func FromEnv(baseURL string) (Client, error) {
	if key := os.Getenv("CEREBRAS_API_KEY"); key != "" {
		return NewCerebras(key, baseURL), nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return NewOpenAI(key, baseURL), nil
	}
	if endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		apiVersion := os.Getenv("AZURE_API_VERSION")
		if key := os.Getenv("AZURE_OPENAI_API_KEY"); key != "" {
			return NewAzure(key, endpoint, apiVersion), nil
		}
		tenant := os.Getenv("AZURE_TENANT_ID")
		clientID := os.Getenv("AZURE_CLIENT_ID")
		clientSecret := os.Getenv("AZURE_CLIENT_SECRET")
		if tenant != "" && clientID != "" && clientSecret != "" {
			return NewAzureAD(endpoint, apiVersion, tenant, clientID, clientSecret), nil
		}
		return nil, fmt.Errorf("azure endpoint configured: %w (set AZURE_OPENAI_API_KEY or AZURE_TENANT_ID/AZURE_CLIENT_ID/AZURE_CLIENT_SECRET)", ErrNoCredentials)
	}
	if region := os.Getenv("BEDROCK_REGION"); region != "" {
		return NewBedrock(context.Background(), region)
	}
	return nil, ErrNoCredentials
}

// WithBearer builds an OpenAI-compatible client using a caller-supplied
// bearer token, honouring the same base URL override as FromEnv. Used when
// a request carries its own upstream credential.
func WithBearer(token, baseURL string) Client {
	return NewOpenAI(token, baseURL)
}
