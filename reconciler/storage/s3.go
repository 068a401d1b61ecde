package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArtifactStore deletes finished job artifacts from the blob store. The
// producing side (uploads, download links) lives in the worker; the
// reconciler only honors the cleanup contract.
type ArtifactStore struct {
	client *s3.Client
	bucket string
}

func NewArtifactStore(ctx context.Context, bucket, endpoint, region string) (*ArtifactStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			// SeaweedFS and friends speak path-style S3 on a custom endpoint.
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &ArtifactStore{client: client, bucket: bucket}, nil
}

func (s *ArtifactStore) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
