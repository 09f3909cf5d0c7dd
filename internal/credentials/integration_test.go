//go:build integration

// Integration tests for the Secrets Manager source, run against LocalStack:
//
//	go test -tags=integration ./internal/credentials/...
//
// Docker must be running.
package credentials_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/localstack"

	"github.com/Wurst-Imperium/upload-backups/internal/credentials"
)

var endpoint string

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := localstack.Run(ctx, "localstack/localstack:latest")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start LocalStack: %v\n", err)
		os.Exit(1)
	}

	port, _ := nat.NewPort("tcp", "4566")
	uri, err := container.PortEndpoint(ctx, port, "")
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "Failed to get LocalStack endpoint: %v\n", err)
		os.Exit(1)
	}
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		uri = "http://" + uri
	}
	endpoint = uri

	code := m.Run()

	if err := container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to terminate LocalStack: %v\n", err)
	}
	os.Exit(code)
}

func createSecret(ctx context.Context, t *testing.T, name, value string) {
	t.Helper()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	require.NoError(t, err)

	client := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	_, err = client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(value),
	})
	require.NoError(t, err)
}

func TestSecretsManagerSource_LocalStack(t *testing.T) {
	ctx := context.Background()
	name := fmt.Sprintf("backups-api-key-%d", time.Now().UnixNano())
	createSecret(ctx, t, name, "localstack-key\n")

	getenv := func(key string) string {
		if key == credentials.EnvAPIKeySecretID {
			return name
		}
		return ""
	}

	sources, err := credentials.FromEnvironment(ctx, getenv, credentials.WithEndpoint(endpoint))
	require.NoError(t, err)

	key, err := credentials.Resolve(ctx, sources...)
	require.NoError(t, err)
	assert.Equal(t, "localstack-key", key)
}

func TestSecretsManagerSource_LocalStackMissingSecret(t *testing.T) {
	ctx := context.Background()

	source, err := credentials.NewSecretsManagerSource(ctx, "does-not-exist", credentials.WithEndpoint(endpoint))
	require.NoError(t, err)

	_, err = source.APIKey(ctx)
	assert.ErrorIs(t, err, credentials.ErrSecretNotFound)
}
