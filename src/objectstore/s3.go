package objectstore

import (
	"bytes"
	"context"
	"errors"

	"github.com/atelierhq/assetgate/src/config"
	"github.com/atelierhq/assetgate/src/oops"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Store talks to any S3-compatible service (DigitalOcean Spaces,
// Cloudflare R2, the devstore subcommand in development).
type S3Store struct {
	client *s3.Client
	bucket string
}

var _ Store = &S3Store{}

func NewS3(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, ""),
		),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithEndpointResolver(aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL: cfg.Endpoint,
			}, nil
		})),
	)
	if err != nil {
		return nil, oops.New(err, "failed to load object store config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, in PutInput) error {
	data, err := readDeclared(in.Body, in.Size)
	if err != nil {
		return err
	}

	upload := func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        &s.bucket,
			Key:           &key,
			Body:          bytes.NewReader(data),
			ContentType:   &in.ContentType,
			ContentLength: in.Size,
		})
		return err
	}

	err = upload()
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) && apiError.ErrorCode() == "NoSuchBucket" {
			_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
				Bucket: &s.bucket,
			})
			if err != nil {
				return oops.New(err, "failed to create assets bucket")
			}

			err = upload()
			if err != nil {
				return oops.New(err, "failed to upload object")
			}
		} else {
			return oops.New(err, "failed to upload object")
		}
	}

	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) {
			switch apiError.ErrorCode() {
			case "NoSuchKey", "NoSuchBucket", "NotFound":
				return nil, nil
			}
		}
		return nil, oops.New(err, "failed to fetch object")
	}

	obj := &Object{
		Body:        out.Body,
		Size:        out.ContentLength,
		ContentType: "application/octet-stream",
	}
	if out.ContentType != nil {
		obj.ContentType = *out.ContentType
	}
	if out.ETag != nil {
		obj.ETag = *out.ETag
	}
	return obj, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) && apiError.ErrorCode() == "NoSuchBucket" {
			return nil
		}
		return oops.New(err, "failed to delete object")
	}
	return nil
}
