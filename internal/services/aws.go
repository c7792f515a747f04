package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// LoadAWSConfig loads the default AWS configuration, optionally with a shared profile
func LoadAWSConfig(ctx context.Context, profile string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// NewDynamoDBServiceFromConfig creates the key-value store on table
func NewDynamoDBServiceFromConfig(cfg aws.Config, table string) *DynamoDBService {
	return NewDynamoDBService(dynamodb.NewFromConfig(cfg), table)
}

// NewS3ClientFromConfig creates the result archive on bucketName
func NewS3ClientFromConfig(cfg aws.Config, bucketName string) *S3Client {
	return NewS3Client(s3.NewFromConfig(cfg), bucketName, cfg.Region)
}
