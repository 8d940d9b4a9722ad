package lib

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// awsGetSdkClient loads the default config and, when AWS_IAM_ROLE_ARN is
// set, swaps in credentials from an assumed role.
func awsGetSdkClient(ctx context.Context) (*aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		GetLogger().Errorf("Error loading default config: %s", err.Error())
		return nil, err
	}
	iamRole := os.Getenv("AWS_IAM_ROLE_ARN")
	if iamRole == "" {
		return &cfg, nil
	}
	stsClient := sts.NewFromConfig(cfg)
	output, err := stsClient.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(iamRole),
		RoleSessionName: aws.String("tourbook-api"),
	})
	if err != nil {
		GetLogger().Errorf("Error configuring STS client: %s", err.Error())
		return nil, err
	}
	creds := output.Credentials
	cfg, err = config.LoadDefaultConfig(ctx, config.WithCredentialsProvider(
		credentials.NewStaticCredentialsProvider(*creds.AccessKeyId, *creds.SecretAccessKey, *creds.SessionToken),
	))
	if err != nil {
		GetLogger().Errorf("Error configuration: %s", err.Error())
		return nil, err
	}

	return &cfg, nil
}

func AWSGetSQSClient(ctx context.Context) (*sqs.Client, error) {
	cfg, err := awsGetSdkClient(ctx)
	if err != nil {
		GetLogger().Errorf("Failed to initialize SQS client: %s", err.Error())
		return nil, err
	}
	return sqs.NewFromConfig(*cfg), nil
}
