package awsutil

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithEndpoint(t *testing.T) {
	t.Setenv("AWS_ENDPOINT_URL", "http://localstack:4566")
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	cfg, endpoint, err := Load(context.Background(), "us-west-2")
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.Region)
	assert.Equal(t, "http://localstack:4566", endpoint)

	c := NewCognito(cfg, endpoint)
	assert.Equal(t, "http://localstack:4566", aws.ToString(c.Options().BaseEndpoint))
}

func TestLoadWithoutEndpoint(t *testing.T) {
	t.Setenv("AWS_ENDPOINT_URL", "")
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	cfg, endpoint, err := Load(context.Background(), "us-east-1")
	require.NoError(t, err)
	assert.Empty(t, endpoint)

	assert.True(t, aws.IsCredentialsProvider(cfg.Credentials, aws.AnonymousCredentials{}))
}
