package auth

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// AWSOptions selects how the SDK configuration is loaded.
type AWSOptions struct {
	Profile string
	Region  string
	// MaxAttempts bounds SDK retries per request; zero keeps the SDK default.
	MaxAttempts int
	// Endpoint overrides the service endpoint, e.g. a LocalStack URL.
	Endpoint string
}

// NewAWSConfig loads the SDK default credential chain.
// Users authenticate the usual way: env vars, shared config or SSO.
func NewAWSConfig(ctx context.Context, opts AWSOptions) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.MaxAttempts > 0 {
		loadOpts = append(loadOpts, config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), opts.MaxAttempts)
		}))
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(opts.Endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// CallerIdentityAPI is the STS operation used to discover the account.
type CallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ResolveAccountID returns the account the credentials belong to.
func ResolveAccountID(ctx context.Context, api CallerIdentityAPI) (string, error) {
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	account := aws.ToString(out.Account)
	if account == "" {
		return "", fmt.Errorf("caller identity has no account")
	}
	return account, nil
}

// NewSTSClient creates the STS client for ResolveAccountID.
func NewSTSClient(cfg aws.Config) *sts.Client {
	return sts.NewFromConfig(cfg)
}

// NewNeo4jDriver creates a driver for uri. An empty user disables auth.
// The driver connects lazily; call VerifyConnectivity to fail fast.
func NewNeo4jDriver(uri, user, password string) (neo4j.DriverWithContext, error) {
	token := neo4j.NoAuth()
	if user != "" {
		token = neo4j.BasicAuth(user, password, "")
	}

	driver, err := neo4j.NewDriverWithContext(uri, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver for %s: %w", uri, err)
	}
	return driver, nil
}
