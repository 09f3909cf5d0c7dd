package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// EnvAPIKeySecretID names the environment variable holding the Secrets Manager
// secret ID to fall back to when EnvAPIKey is empty.
const EnvAPIKeySecretID = "WI_BACKUPS_API_KEY_SECRET_ID"

// AWS error codes mapped to package errors.
const (
	resourceNotFoundException = "ResourceNotFoundException"
	accessDeniedException     = "AccessDeniedException"
)

// ManagerAPI is the subset of the Secrets Manager client used to read keys.
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource reads the key from an AWS Secrets Manager secret.
type SecretsManagerSource struct {
	api      ManagerAPI
	secretID string
	logger   *slog.Logger
}

type secretsManagerOptions struct {
	region   string
	endpoint string
	logger   *slog.Logger
}

// SecretsManagerOption configures a SecretsManagerSource.
type SecretsManagerOption func(*secretsManagerOptions)

// WithRegion overrides the AWS region from the default configuration chain.
func WithRegion(region string) SecretsManagerOption {
	return func(o *secretsManagerOptions) {
		o.region = region
	}
}

// WithEndpoint points the client at a custom endpoint such as LocalStack.
// Anonymous credentials are used in that case.
func WithEndpoint(endpoint string) SecretsManagerOption {
	return func(o *secretsManagerOptions) {
		o.endpoint = endpoint
	}
}

// WithLogger sets the logger for lookup records.
func WithLogger(logger *slog.Logger) SecretsManagerOption {
	return func(o *secretsManagerOptions) {
		o.logger = logger
	}
}

// NewSecretsManagerSource creates a source backed by a Secrets Manager client
// built from the AWS default configuration chain.
func NewSecretsManagerSource(
	ctx context.Context,
	secretID string,
	opts ...SecretsManagerOption,
) (*SecretsManagerSource, error) {
	if secretID == "" {
		return nil, fmt.Errorf("secret ID cannot be empty")
	}

	o := &secretsManagerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var api ManagerAPI
	if o.endpoint != "" {
		region := o.region
		if region == "" {
			region = "us-east-1"
		}
		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(aws.AnonymousCredentials{}),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		api = secretsmanager.NewFromConfig(cfg, func(opts *secretsmanager.Options) {
			opts.BaseEndpoint = aws.String(o.endpoint)
		})
	} else {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		if o.region != "" {
			cfg.Region = o.region
		}
		api = secretsmanager.NewFromConfig(cfg)
	}

	return &SecretsManagerSource{
		api:      api,
		secretID: secretID,
		logger:   o.logger,
	}, nil
}

// NewSecretsManagerSourceWithAPI creates a source over an existing client.
func NewSecretsManagerSourceWithAPI(api ManagerAPI, secretID string, logger *slog.Logger) *SecretsManagerSource {
	return &SecretsManagerSource{
		api:      api,
		secretID: secretID,
		logger:   logger,
	}
}

// Name returns "secretsmanager:<secret id>".
func (s *SecretsManagerSource) Name() string {
	return "secretsmanager:" + s.secretID
}

// APIKey fetches the current secret value. Surrounding whitespace is trimmed.
func (s *SecretsManagerSource) APIKey(ctx context.Context) (string, error) {
	if s.logger != nil {
		s.logger.DebugContext(ctx, "retrieving API key from secrets manager",
			"secret_id", s.secretID)
	}

	output, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return "", mapAWSError(err)
	}

	var value string
	switch {
	case output.SecretString != nil:
		value = *output.SecretString
	case output.SecretBinary != nil:
		value = string(output.SecretBinary)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrSecretEmpty
	}
	return value, nil
}

func mapAWSError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case resourceNotFoundException:
			return ErrSecretNotFound
		case accessDeniedException:
			return ErrAccessDenied
		}
		return fmt.Errorf("GetSecretValue failed: %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("GetSecretValue failed: %w", err)
}

// FromEnvironment returns the sources configured through the process
// environment: EnvAPIKey first, then the Secrets Manager secret named by
// EnvAPIKeySecretID when that variable is set.
func FromEnvironment(
	ctx context.Context,
	getenv func(string) string,
	opts ...SecretsManagerOption,
) ([]Source, error) {
	sources := []Source{Env(getenv, EnvAPIKey)}

	secretID := getenv(EnvAPIKeySecretID)
	if secretID == "" {
		return sources, nil
	}

	sm, err := NewSecretsManagerSource(ctx, secretID, opts...)
	if err != nil {
		return nil, err
	}
	return append(sources, sm), nil
}
