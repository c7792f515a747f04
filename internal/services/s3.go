package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"telegram-phone-checker/internal/models"
)

// S3API is the subset of the S3 client used by the archive
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Client archives submitted result batches to S3
type S3Client struct {
	client     S3API
	bucketName string
	region     string
}

// S3UploadResult represents the result of an S3 upload operation
type S3UploadResult struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ETag        string    `json:"etag"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ContentType string    `json:"content_type"`
}

// NewS3Client creates an archive writing to bucketName
func NewS3Client(client S3API, bucketName, region string) *S3Client {
	return &S3Client{
		client:     client,
		bucketName: bucketName,
		region:     region,
	}
}

// ArchiveResults stores the batch at results/<sheet>/<date>/<id>.json
func (s *S3Client) ArchiveResults(ctx context.Context, req *models.SheetWriteRequest, receivedAt time.Time) (*S3UploadResult, error) {
	archive := models.ResultArchive{
		ArchiveID:  models.GenerateArchiveID(),
		SheetID:    req.SheetID,
		SheetName:  req.SheetName,
		ReceivedAt: receivedAt,
		Results:    req.Results,
	}

	jsonData, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result archive: %w", err)
	}

	key := models.GenerateArchiveKey(req.SheetName, receivedAt, archive.ArchiveID)
	return s.uploadJSON(ctx, jsonData, key, models.ArchiveContentType)
}

// GetObjectURL returns the S3 URL of key
func (s *S3Client) GetObjectURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key)
}

// uploadJSON is a helper method to upload JSON data to S3
func (s *S3Client) uploadJSON(ctx context.Context, data []byte, key, contentType string) (*S3UploadResult, error) {
	// Ensure key doesn't start with /
	key = strings.TrimPrefix(key, "/")

	result, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"uploaded-by": "telegram-phone-checker",
			"upload-time": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	etag := ""
	if result != nil && result.ETag != nil {
		etag = strings.Trim(*result.ETag, `"`)
	}

	return &S3UploadResult{
		Key:         key,
		URL:         s.GetObjectURL(key),
		ETag:        etag,
		Size:        int64(len(data)),
		UploadedAt:  time.Now(),
		ContentType: contentType,
	}, nil
}
