// Package awsutil builds the AWS clients the claim client talks to.
package awsutil

import (
	"context"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

// Load loads the AWS configuration for region. The refresh-token flow is an
// unsigned Cognito call, so no credential chain is consulted. When
// AWS_ENDPOINT_URL is set (e.g. http://localstack:4566) it is returned so
// clients can point at it.
func Load(ctx context.Context, region string) (aws.Config, string, error) {
	endpoint := strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL"))
	cfg, err := awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithRegion(region),
		awsCfg.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	return cfg, endpoint, err
}

// NewCognito returns a user pool client, optionally bound to endpoint.
func NewCognito(cfg aws.Config, endpoint string) *cip.Client {
	return cip.NewFromConfig(cfg, func(o *cip.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}
