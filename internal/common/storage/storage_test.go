package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock S3
// ==========================

type MockS3 struct {
	PutObjectFunc func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	body          []byte
	input         *s3.PutObjectInput
}

func (m *MockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.input = params
	if params.Body != nil {
		m.body, _ = io.ReadAll(params.Body)
	}
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

// ==========================
// Keys
// ==========================

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "resume.pdf", want: "resume.pdf"},
		{in: "  my resume final.docx ", want: "my_resume_final.docx"},
		{in: "dir/sub\\cv.pdf", want: "dir_sub_cv.pdf"},
		{in: "J.Smith..Resume.pdf", want: "J.Smith..Resume.pdf"},
		{in: "CV #2?.pdf", want: "CV__2_.pdf"},
		{in: "50%-final&v=1.pdf", want: "50_-final_v_1.pdf"},
		{in: "../etc/passwd", wantErr: true},
		{in: "cv/../secret.pdf", wantErr: true},
		{in: "..", wantErr: true},
		{in: ".", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "#?", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SanitizeFileName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFileName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResumeKey(t *testing.T) {
	now := time.UnixMilli(1718000000123)

	key, err := ResumeKey("applications", now, "resume.pdf")
	require.NoError(t, err)
	assert.Equal(t, "applications/1718000000123-resume.pdf", key)

	key, err = ResumeKey("/applications/", now, "cv.doc")
	require.NoError(t, err)
	assert.Equal(t, "applications/1718000000123-cv.doc", key)

	_, err = ResumeKey("applications", now, "..")
	assert.Error(t, err)
}

func TestPublicURL_UnsafeFileName(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	key, err := ResumeKey("applications", now, "CV #2?.pdf")
	require.NoError(t, err)
	assert.Equal(t, "applications/1718000000123-CV__2_.pdf", key)

	s3Store := NewS3WithClient(&MockS3{}, S3Options{Bucket: "resumes", Region: "us-east-1"})
	assert.Equal(t, "https://resumes.s3.us-east-1.amazonaws.com/applications/1718000000123-CV__2_.pdf", s3Store.PublicURL(key))

	local := NewLocal(t.TempDir(), "")
	assert.Equal(t, "/files/applications/1718000000123-CV__2_.pdf", local.PublicURL(key))
}

func TestPublicURL_EscapesKeySegments(t *testing.T) {
	s3Store := NewS3WithClient(&MockS3{}, S3Options{Bucket: "resumes", PublicBaseURL: "https://cdn.example.com/"})
	assert.Equal(t, "https://cdn.example.com/raw/a%23b%3F.pdf", s3Store.PublicURL("raw/a#b?.pdf"))

	local := NewLocal(t.TempDir(), "http://localhost:8080/files")
	assert.Equal(t, "http://localhost:8080/files/raw/50%25.pdf", local.PublicURL("/raw/50%.pdf"))
}

func TestApplyPrefix(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"", "a/file.pdf", "a/file.pdf"},
		{"root", "file.pdf", "root/file.pdf"},
		{"/root/", "/file.pdf", "root/file.pdf"},
		{"root/sub", "file.pdf", "root/sub/file.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, applyPrefix(tt.prefix, tt.key))
	}
}

// ==========================
// S3 store
// ==========================

func TestS3Store_UploadSeekable(t *testing.T) {
	mock := &MockS3{}
	store := NewS3WithClient(mock, S3Options{Bucket: "resumes", Region: "eu-west-1", SSE: "AES256"})

	data := bytes.Repeat([]byte("x"), 2048)
	n, err := store.Upload(context.Background(), "applications/1-cv.pdf", "application/pdf", bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, int64(2048), n)
	assert.Equal(t, data, mock.body)
	assert.Equal(t, "resumes", aws.ToString(mock.input.Bucket))
	assert.Equal(t, "applications/1-cv.pdf", aws.ToString(mock.input.Key))
	assert.Equal(t, "application/pdf", aws.ToString(mock.input.ContentType))
	assert.Equal(t, int64(2048), aws.ToInt64(mock.input.ContentLength))
	assert.Equal(t, s3types.ServerSideEncryptionAes256, mock.input.ServerSideEncryption)
}

func TestS3Store_UploadStreamWithKMS(t *testing.T) {
	mock := &MockS3{}
	store := NewS3WithClient(mock, S3Options{Bucket: "resumes", SSE: "kms-key-1"})

	n, err := store.Upload(context.Background(), "k", "application/pdf", io.MultiReader(strings.NewReader("abc")))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, s3types.ServerSideEncryptionAwsKms, mock.input.ServerSideEncryption)
	assert.Equal(t, "kms-key-1", aws.ToString(mock.input.SSEKMSKeyId))
}

func TestS3Store_UploadError(t *testing.T) {
	mock := &MockS3{
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return nil, errors.New("network unreachable")
		},
	}
	store := NewS3WithClient(mock, S3Options{Bucket: "resumes"})

	_, err := store.Upload(context.Background(), "k", "application/pdf", bytes.NewReader([]byte("a")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network unreachable")
}

func TestS3Store_PublicURL(t *testing.T) {
	store := NewS3WithClient(&MockS3{}, S3Options{Bucket: "resumes", Region: "eu-west-1"})
	assert.Equal(t, "https://resumes.s3.eu-west-1.amazonaws.com/applications/1-cv.pdf", store.PublicURL("applications/1-cv.pdf"))

	store = NewS3WithClient(&MockS3{}, S3Options{Bucket: "resumes", PublicBaseURL: "https://cdn.example.com/storage/v1/object/public/resumes/"})
	assert.Equal(t, "https://cdn.example.com/storage/v1/object/public/resumes/applications/1-cv.pdf", store.PublicURL("applications/1-cv.pdf"))
}

// ==========================
// Local store
// ==========================

func TestLocalStore_Upload(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, "")

	n, err := store.Upload(context.Background(), "applications/1-cv.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	body, err := os.ReadFile(filepath.Join(dir, "applications", "1-cv.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
	assert.Equal(t, "/files/applications/1-cv.pdf", store.PublicURL("applications/1-cv.pdf"))

	_, err = store.Upload(context.Background(), "../escape.pdf", "application/pdf", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestLocalStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocal(t.TempDir(), "").Upload(ctx, "k", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStore_MountPath(t *testing.T) {
	assert.Equal(t, "/files", NewLocal(t.TempDir(), "").MountPath())
	assert.Equal(t, "/uploads", NewLocal(t.TempDir(), "http://localhost:8080/uploads/").MountPath())
	assert.Equal(t, "/files", NewLocal(t.TempDir(), "http://localhost:8080").MountPath())
}
