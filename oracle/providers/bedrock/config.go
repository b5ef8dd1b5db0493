package bedrock

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// CreateAWSConfig resolves an aws.Config for region, preferring explicit
// AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY (plus optional
// AWS_SESSION_TOKEN) as a static credentials provider, and otherwise
// deferring to the SDK's default chain (IAM role, env, ~/.aws/credentials).
func CreateAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey != "" && secretKey != "" {
		provider := credentials.NewStaticCredentialsProvider(accessKey, secretKey, os.Getenv("AWS_SESSION_TOKEN"))
		opts = append(opts, config.WithCredentialsProvider(provider))
	}

	return config.LoadDefaultConfig(ctx, opts...)
}
