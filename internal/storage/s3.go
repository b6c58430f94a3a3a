// Package storage holds uploaded user documents (receipts, statements) in
// S3-compatible object storage. Account deletion purges a user's whole
// prefix here.
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Client struct {
	client *s3.Client
	bucket string
}

type UploadResult struct {
	Key      string
	Size     int64
	Checksum string
}

// NewS3Client creates a new S3 client configured for DigitalOcean Spaces
func NewS3Client(endpoint, region, bucket, accessKeyID, secretAccessKey string) (*S3Client, error) {
	// Configure custom resolver for DigitalOcean Spaces
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: region,
			}, nil
		}
		return aws.Endpoint{}, fmt.Errorf("unknown endpoint requested")
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(customResolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, secretAccessKey, "",
		)),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for DigitalOcean Spaces
	})

	return &S3Client{
		client: client,
		bucket: bucket,
	}, nil
}

// documentPrefix is where a user's uploaded documents live
func documentPrefix(userID string) string {
	return fmt.Sprintf("users/%s/documents/", userID)
}

// UploadDocument stores an uploaded document under the user's prefix
func (s *S3Client) UploadDocument(ctx context.Context, userID, filename string, reader io.Reader) (*UploadResult, error) {
	key := documentPrefix(userID) + filename

	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(getContentType(filename)),
		ACL:         types.ObjectCannedACLPrivate,
	}

	result, err := s.client.PutObject(ctx, putInput)
	if err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}

	headOutput, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object info: %w", err)
	}

	var size int64
	if headOutput.ContentLength != nil {
		size = *headOutput.ContentLength
	}

	return &UploadResult{
		Key:      key,
		Size:     size,
		Checksum: aws.ToString(result.ETag),
	}, nil
}

// getContentType returns the content type based on file extension
func getContentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// ListUserDocuments lists the storage keys of a user's uploaded documents
func (s *S3Client) ListUserDocuments(ctx context.Context, userID string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(documentPrefix(userID)),
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

// PurgeUserDocuments deletes every stored object under the user's prefix.
// Called during account deletion after the export snapshot is taken.
func (s *S3Client) PurgeUserDocuments(ctx context.Context, userID string) (int, error) {
	keys, err := s.ListUserDocuments(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	var objects []types.ObjectIdentifier
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete objects: %w", err)
	}

	log.Printf("[STORAGE] Purged %d stored documents for user %s", len(keys), userID)
	return len(keys), nil
}
