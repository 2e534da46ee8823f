package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"k8s.io/klog/v2"

	"github.com/NickMagic25/kubeegg/manifest"
)

const manifestRoot = "apps"

func NewBackend() *Backend {
	return &Backend{
		Name: "s3",
	}
}

type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type Backend struct {
	Name       string
	Endpoint   string
	Region     string
	BucketName string
	AccessKey  string
	SecretKey  string
	Client     S3Client `json:"-"`
}

func (b *Backend) PreCmd(_ context.Context, _ string) error {
	b.BucketName = os.Getenv("AWS_BUCKET_NAME")
	if b.BucketName == "" {
		return errors.New("AWS_BUCKET_NAME environment variable not set")
	}
	b.AccessKey = os.Getenv("AWS_ACCESS_KEY")
	if b.AccessKey == "" {
		return errors.New("AWS_ACCESS_KEY environment variable not set")
	}
	b.SecretKey = os.Getenv("AWS_SECRET_KEY")
	if b.SecretKey == "" {
		return errors.New("AWS_SECRET_KEY environment variable not set")
	}

	b.Endpoint = os.Getenv("AWS_ENDPOINT")
	b.Region = os.Getenv("AWS_REGION")
	b.Client = s3.New(s3.Options{
		Region:       b.Region,
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider(b.AccessKey, b.SecretKey, ""),
	}, func(o *s3.Options) {
		if b.Endpoint != "" {
			o.BaseEndpoint = &b.Endpoint
		}
	})

	return nil
}

// WriteManifests uploads each document to apps/<appName>/ in the bucket.
func (b *Backend) WriteManifests(ctx context.Context, appName string, files []manifest.File) ([]string, error) {
	written := make([]string, 0, len(files))
	for _, file := range files {
		key := path.Join(manifestRoot, appName, file.Name)
		_, err := b.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(b.BucketName),
			Key:    aws.String(key),
			Body:   bytes.NewReader(file.Content),
		})
		if err != nil {
			return nil, fmt.Errorf("couldn't upload object %s: %w", key, err)
		}
		klog.V(4).Infof("[s3 backend] wrote manifest %s to bucket %s", key, b.BucketName)
		written = append(written, key)
	}
	return written, nil
}

// Delete removes every object under apps/<appName>/ in the bucket.
func (b *Backend) Delete(ctx context.Context, appName string) error {
	appDir := path.Join(manifestRoot, appName)
	objects, err := b.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.BucketName),
		Prefix: aws.String(appDir),
	})
	if err != nil {
		return fmt.Errorf("couldn't list objects: %v", err)
	}
	if len(objects.Contents) == 0 {
		return nil
	}
	objectsToDelete := make([]types.ObjectIdentifier, len(objects.Contents))
	for i, object := range objects.Contents {
		objectsToDelete[i] = types.ObjectIdentifier{Key: object.Key}
	}
	_, err = b.Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.BucketName),
		Delete: &types.Delete{
			Objects: objectsToDelete,
		},
	})
	if err != nil {
		return fmt.Errorf("couldn't delete objects: %v", err)
	}
	klog.V(4).Infof("[s3 backend] deleted %d manifests under %s in bucket %s", len(objectsToDelete), appDir, b.BucketName)
	return nil
}
