package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go/logging"
	"github.com/plsfixthx/annotator/internal/config"
)

// S3ShareTarget uploads shared exports to a private bucket and hands out
// presigned download links.
type S3ShareTarget struct {
	client *s3.Client
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

func NewS3ShareTarget(cfg *config.Config) (*S3ShareTarget, error) {
	client, err := buildClient(cfg.ShareS3Endpoint, cfg.ShareS3Region, cfg.ShareS3AccessKeyID, cfg.ShareS3SecretAccessKey, cfg.ShareS3UsePathStyle)
	if err != nil {
		return nil, err
	}
	return &S3ShareTarget{client: client, bucket: cfg.ShareS3Bucket, ttl: cfg.ShareTTL, now: time.Now}, nil
}

func buildClient(endpoint, region, key, secret string, pathStyle bool) (*s3.Client, error) {
	resolver := awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
		func(service, rgn string, options ...interface{}) (aws.Endpoint, error) {
			if endpoint != "" {
				return aws.Endpoint{URL: endpoint, SigningRegion: region}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		}))
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		resolver,
		awsconfig.WithLogger(logging.NewStandardLogger(nil)),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
	})
	return client, nil
}

func (s *S3ShareTarget) Share(ctx context.Context, name, contentType string, data []byte) (*SharedFile, error) {
	key := BuildObjectKey("exports", name)
	if err := s.upload(ctx, key, data, contentType, name); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrShareCancelled
		}
		return nil, fmt.Errorf("upload: %w", err)
	}
	link, err := s.presignGet(ctx, key)
	if err != nil {
		// Don't leave an object behind that nobody can reach.
		_ = s.Delete(context.Background(), key)
		if errors.Is(err, context.Canceled) {
			return nil, ErrShareCancelled
		}
		return nil, fmt.Errorf("presign: %w", err)
	}
	return &SharedFile{URL: link, Key: key, Name: name, ExpiresAt: s.now().Add(s.ttl)}, nil
}

func (s *S3ShareTarget) upload(ctx context.Context, key string, data []byte, ctype, name string) error {
	uploader := manager.NewUploader(s.client)
	disposition := fmt.Sprintf("attachment; filename=%q", name)
	in := &s3.PutObjectInput{
		Bucket:             &s.bucket,
		Key:                &key,
		Body:               bytes.NewReader(data),
		ContentType:        &ctype,
		ContentDisposition: &disposition,
		ACL:                s3types.ObjectCannedACLPrivate,
	}
	_, err := uploader.Upload(ctx, in, func(u *manager.Uploader) { u.PartSize = 10 * 1024 * 1024 })
	return err
}

func (s *S3ShareTarget) presignGet(ctx context.Context, key string) (string, error) {
	presigner := s3.NewPresignClient(s.client)
	out, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

// Delete removes a shared object.
func (s *S3ShareTarget) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(key),
	})
	return err
}
