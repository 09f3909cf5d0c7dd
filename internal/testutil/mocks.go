package testutil

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// MockDoer is a mock HTTP client. It allows customization of Do through a
// function field and records every request it receives.
type MockDoer struct {
	DoFunc func(*http.Request) (*http.Response, error)

	Requests []*http.Request
}

// Do mocks http.Client.Do.
func (m *MockDoer) Do(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req)
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return nil, errors.New("Do not implemented")
}

// MockSecretsManager is a mock implementation of the Secrets Manager API used
// for API key lookup.
type MockSecretsManager struct {
	GetSecretValueFunc func(
		context.Context,
		*secretsmanager.GetSecretValueInput,
		...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// GetSecretValue mocks the Secrets Manager GetSecretValue operation.
func (m *MockSecretsManager) GetSecretValue(
	ctx context.Context,
	params *secretsmanager.GetSecretValueInput,
	optFns ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	if m.GetSecretValueFunc != nil {
		return m.GetSecretValueFunc(ctx, params, optFns...)
	}
	return nil, errors.New("GetSecretValue not implemented")
}
