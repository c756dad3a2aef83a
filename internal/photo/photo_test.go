package photo_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"hostelgrievance/backend/internal/photo"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockS3 struct {
	mock.Mock
}

func (m *MockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

const jpegB64 = "/9j/4AAQSkZJRg=="

func TestDecode(t *testing.T) {
	data, ct, err := photo.Decode("data:image/png;base64," + jpegB64)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 0x4a, 0x46, 0x49, 0x46}, data)

	_, ct, err = photo.Decode(jpegB64)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	_, _, err = photo.Decode("data:image/png,rawtext")
	assert.Error(t, err)
	_, _, err = photo.Decode("https://example.com/a.jpg")
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	key := photo.ObjectKey("progress", "c-1")
	assert.True(t, strings.HasPrefix(key, "complaint-photos/progress_c-1_"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, photo.ObjectKey("progress", "c-1"))
}

func TestUploader_StoresInS3(t *testing.T) {
	client := new(MockS3)
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		body, ok := in.Body.(*bytes.Reader)
		return ok && aws.ToString(in.Bucket) == "evidence" &&
			strings.HasPrefix(aws.ToString(in.Key), "complaint-photos/completion_c-9_") &&
			aws.ToString(in.ContentType) == "image/jpeg" &&
			body.Len() == 10
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	store := photo.NewS3StoreWithClient(client, photo.S3Config{Bucket: "evidence", Region: "eu-west-1"})
	log, _ := test.NewNullLogger()
	u := photo.NewUploader(store, log, nil)

	url := u.Save(context.Background(), "completion", "c-9", "data:image/jpeg;base64,"+jpegB64)
	assert.True(t, strings.HasPrefix(url, "https://evidence.s3.eu-west-1.amazonaws.com/complaint-photos/completion_c-9_"), url)
	client.AssertExpectations(t)
}

func TestUploader_FallsBackInline(t *testing.T) {
	client := new(MockS3)
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))
	store := photo.NewS3StoreWithClient(client, photo.S3Config{Bucket: "evidence", Endpoint: "http://minio:9000/"})
	log, hook := test.NewNullLogger()
	u := photo.NewUploader(store, log, nil)

	payload := "data:image/jpeg;base64," + jpegB64
	assert.Equal(t, payload, u.Save(context.Background(), "progress", "c-1", payload))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	assert.Equal(t, "not-a-photo!", u.Save(context.Background(), "progress", "c-1", "not-a-photo!"))
	client.AssertNumberOfCalls(t, "PutObject", 1)
}

func TestUploader_NoStore(t *testing.T) {
	u := photo.NewUploader(nil, nil, nil)
	assert.Equal(t, jpegB64, u.Save(context.Background(), "complaint", "c-1", jpegB64))
}

func TestS3Store_EndpointURL(t *testing.T) {
	client := new(MockS3)
	client.On("PutObject", mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil)
	store := photo.NewS3StoreWithClient(client, photo.S3Config{Bucket: "evidence", Endpoint: "http://minio:9000/"})

	url, err := store.Put(context.Background(), "complaint-photos/x.jpg", []byte{1}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/evidence/complaint-photos/x.jpg", url)
}
