package s3backup

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu         sync.Mutex
	headBucket error
	created    []*s3.CreateBucketInput
	objects    map[string][]byte
	putErr     error
	headErr    error
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headBucket
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; ok {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, &types.NotFound{}
}

func TestNewClient_Disabled(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{})
	assert.Error(t, err)
}

func TestClient_TestConnectionCreatesMissingBucket(t *testing.T) {
	withEnv(t, map[string]string{"APP_ENV": "dev"})

	tests := []struct {
		name           string
		cfg            *Config
		wantConstraint bool
	}{
		{"aws region needs constraint", &Config{BucketName: "ledger", Region: "sa-east-1"}, true},
		{"us-east-1 has none", &Config{BucketName: "ledger", Region: "us-east-1"}, false},
		{"custom endpoint has none", &Config{BucketName: "ledger", Region: "sa-east-1", EndpointURL: "http://minio:9000"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeS3{headBucket: errors.New("not found")}
			client := newClient(api, tt.cfg)

			require.NoError(t, client.testConnection(context.Background()))
			require.Len(t, api.created, 1)
			assert.Equal(t, "ledger", aws.ToString(api.created[0].Bucket))
			assert.Equal(t, tt.wantConstraint, api.created[0].CreateBucketConfiguration != nil)
		})
	}
}

func TestClient_TestConnectionInProd(t *testing.T) {
	withEnv(t, map[string]string{"APP_ENV": "prod"})
	api := &fakeS3{headBucket: errors.New("forbidden")}
	client := newClient(api, &Config{BucketName: "ledger"})

	err := client.testConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket ledger not accessible")
	assert.Empty(t, api.created)
}

func TestClient_UploadAndExists(t *testing.T) {
	api := &fakeS3{}
	client := newClient(api, &Config{BucketName: "ledger"})
	ctx := context.Background()

	exists, err := client.ObjectExists(ctx, "a.json")
	require.NoError(t, err)
	assert.False(t, exists)

	res, err := client.UploadBytes(ctx, "a.json", []byte(`{"ok":true}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, &UploadResult{BucketName: "ledger", ObjectKey: "a.json", Size: 11, ContentType: "application/json"}, res)
	assert.Equal(t, `{"ok":true}`, string(api.objects["a.json"]))

	exists, err = client.ObjectExists(ctx, "a.json")
	require.NoError(t, err)
	assert.True(t, exists)

	api.headErr = errors.New("timeout")
	_, err = client.ObjectExists(ctx, "a.json")
	assert.Error(t, err)

	api.putErr = errors.New("denied")
	_, err = client.UploadBytes(ctx, "b.json", []byte("{}"), "application/json")
	assert.ErrorContains(t, err, "failed to upload to S3")
}
