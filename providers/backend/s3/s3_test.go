package s3

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/NickMagic25/kubeegg/manifest"
	mockClient "github.com/NickMagic25/kubeegg/providers/backend/s3/mock"
)

func TestS3_PreCmd(t *testing.T) {
	type test struct {
		name       string
		accessKey  string
		secretKey  string
		bucketName string
		endpoint   string
		region     string
		err        string
	}
	tests := []test{
		{
			name:       "success",
			accessKey:  "access_key",
			secretKey:  "secret_key",
			bucketName: "test-bucket",
			endpoint:   "test-endpoint.com",
			region:     "us-east",
		},
		{name: "err no bucket name", err: "AWS_BUCKET_NAME environment variable not set"},
		{name: "err no access key", bucketName: "test", err: "AWS_ACCESS_KEY environment variable not set"},
		{name: "err no secret key", bucketName: "test", accessKey: "test-key", err: "AWS_SECRET_KEY environment variable not set"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("AWS_BUCKET_NAME", tc.bucketName)
			t.Setenv("AWS_ENDPOINT", tc.endpoint)
			t.Setenv("AWS_REGION", tc.region)
			t.Setenv("AWS_ACCESS_KEY", tc.accessKey)
			t.Setenv("AWS_SECRET_KEY", tc.secretKey)
			testBackend := Backend{}
			err := testBackend.PreCmd(context.Background(), "mc")
			if tc.err != "" {
				assert.EqualError(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.bucketName, testBackend.BucketName)
			assert.NotNil(t, testBackend.Client)
		})
	}
}

func TestS3_WriteManifests(t *testing.T) {
	ctx := context.Background()
	files := []manifest.File{
		{Name: "namespace.yaml", Content: []byte("kind: Namespace\n")},
		{Name: "deployment.yaml", Content: []byte("kind: Deployment\n")},
	}

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mockClient.NewMockS3Client(ctrl)
		client.EXPECT().PutObject(ctx, gomock.Any()).Return(&s3.PutObjectOutput{}, nil).Times(2)

		testBackend := Backend{BucketName: "test-bucket", Client: client}
		written, err := testBackend.WriteManifests(ctx, "mc", files)
		require.NoError(t, err)
		assert.Equal(t, []string{"apps/mc/namespace.yaml", "apps/mc/deployment.yaml"}, written)
	})

	t.Run("upload error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mockClient.NewMockS3Client(ctrl)
		client.EXPECT().PutObject(ctx, gomock.Any()).Return(nil, errors.New("denied"))

		testBackend := Backend{BucketName: "test-bucket", Client: client}
		written, err := testBackend.WriteManifests(ctx, "mc", files)
		assert.ErrorContains(t, err, "couldn't upload object apps/mc/namespace.yaml")
		assert.Nil(t, written)
	})
}

func TestS3_Delete(t *testing.T) {
	ctx := context.Background()
	keys := []string{"apps/mc/kustomization.yaml", "apps/mc/namespace.yaml"}
	listOutput := &s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String(keys[0])},
			{Key: aws.String(keys[1])},
		},
	}

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mockClient.NewMockS3Client(ctrl)
		client.EXPECT().ListObjectsV2(ctx, gomock.Any()).Return(listOutput, nil)
		client.EXPECT().DeleteObjects(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
				require.Len(t, params.Delete.Objects, 2)
				assert.Equal(t, keys[0], *params.Delete.Objects[0].Key)
				assert.Equal(t, keys[1], *params.Delete.Objects[1].Key)
				return &s3.DeleteObjectsOutput{}, nil
			})

		testBackend := Backend{BucketName: "test-bucket", Client: client}
		assert.NoError(t, testBackend.Delete(ctx, "mc"))
	})

	t.Run("nothing to delete", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mockClient.NewMockS3Client(ctrl)
		client.EXPECT().ListObjectsV2(ctx, gomock.Any()).Return(&s3.ListObjectsV2Output{}, nil)

		testBackend := Backend{BucketName: "test-bucket", Client: client}
		assert.NoError(t, testBackend.Delete(ctx, "mc"))
	})

	t.Run("list error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mockClient.NewMockS3Client(ctrl)
		client.EXPECT().ListObjectsV2(ctx, gomock.Any()).Return(nil, errors.New("denied"))

		testBackend := Backend{BucketName: "test-bucket", Client: client}
		assert.ErrorContains(t, testBackend.Delete(ctx, "mc"), "couldn't list objects")
	})

	t.Run("delete error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mockClient.NewMockS3Client(ctrl)
		client.EXPECT().ListObjectsV2(ctx, gomock.Any()).Return(listOutput, nil)
		client.EXPECT().DeleteObjects(ctx, gomock.Any()).Return(nil, errors.New("denied"))

		testBackend := Backend{BucketName: "test-bucket", Client: client}
		assert.ErrorContains(t, testBackend.Delete(ctx, "mc"), "couldn't delete objects")
	})
}
