package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/talmud/media-service/internal/media"
)

// DefaultListLimit caps how many objects List returns per class.
const DefaultListLimit = 100

// objectClient is the subset of *minio.Client used by MinioStorage.
type objectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

var newMinioClient = func(endpoint string, opts *minio.Options) (objectClient, error) {
	return minio.New(endpoint, opts)
}

// MinioOptions configures a MinioStorage.
type MinioOptions struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	PublicBase string // browser-accessible base URL of the bucket
	Namespace  string // top-level folder of every object key
	UseSSL     bool
	ListLimit  int
}

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
// Object keys are "<namespace>/<audio|images>/<uuid><ext>"; the key is the
// object's identifier.
type MinioStorage struct {
	client     objectClient
	bucket     string
	publicBase string
	namespace  string
	listLimit  int
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists with a public-read
// policy, and returns a ready-to-use MinioStorage.
func NewMinioStorage(opts MinioOptions) (*MinioStorage, error) {
	client, err := newMinioClient(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", opts.Bucket, err)
		}
		log.Printf("storage: created bucket %q", opts.Bucket)
	}

	if err := client.SetBucketPolicy(ctx, opts.Bucket, publicReadPolicy(opts.Bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	limit := opts.ListLimit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	return &MinioStorage{
		client:     client,
		bucket:     opts.Bucket,
		publicBase: strings.TrimRight(opts.PublicBase, "/"),
		namespace:  strings.Trim(opts.Namespace, "/"),
		listLimit:  limit,
	}, nil
}

// Store uploads in under a fresh key in the class folder. Images are tagged for
// automatic quality/format optimisation; audio is tagged as video because
// object providers have no audio resource type.
func (s *MinioStorage) Store(ctx context.Context, in StoreInput, class media.Class) (*Object, error) {
	folder := s.folder(class)
	if folder == "" {
		return nil, fmt.Errorf("store: %w: %q", media.ErrUnknownClass, class)
	}

	key := folder + uuid.NewString() + extensionFor(in.Filename, in.ContentType, class)
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(in.Data), int64(len(in.Data)), minio.PutObjectOptions{
		ContentType:  in.ContentType,
		UserMetadata: resourceMetadata(class),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}

	size := info.Size
	if size == 0 {
		size = int64(len(in.Data))
	}
	return &Object{
		Identifier: key,
		Class:      class,
		URL:        s.PublicURL(key),
		Size:       size,
	}, nil
}

// List returns at most listLimit objects of class. No pagination is done past
// the limit.
func (s *MinioStorage) List(ctx context.Context, class media.Class) ([]Object, error) {
	folder := s.folder(class)
	if folder == "" {
		return nil, fmt.Errorf("list: %w: %q", media.ErrUnknownClass, class)
	}

	// Cancelling stops the listing goroutine when we leave early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := make([]Object, 0)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    folder,
		Recursive: true,
		MaxKeys:   s.listLimit,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects %q: %w", folder, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		objects = append(objects, Object{
			Identifier: obj.Key,
			Class:      class,
			URL:        s.PublicURL(obj.Key),
			Size:       obj.Size,
		})
		if len(objects) == s.listLimit {
			break
		}
	}
	return objects, nil
}

// Delete removes the object with key id from the folder of class. A key
// outside that folder is reported as not found, as the provider would when
// asked for the wrong resource type.
func (s *MinioStorage) Delete(ctx context.Context, id string, class media.Class) error {
	folder := s.folder(class)
	if folder == "" {
		return fmt.Errorf("delete: %w: %q", media.ErrUnknownClass, class)
	}
	id = strings.TrimPrefix(strings.TrimSpace(id), s.publicBase+"/")
	if id == "" || path.Clean(id) != id {
		return ErrInvalidIdentifier
	}
	if !strings.HasPrefix(id, folder) {
		return ErrNotFound
	}

	if _, err := s.client.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrNotFound
		}
		return fmt.Errorf("stat object %q: %w", id, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", id, err)
	}
	return nil
}

// PublicURL returns the browser-accessible URL for the given key.
// For local MinIO: "http://localhost:9000/media/talmud/images/<uuid>.png"
func (s *MinioStorage) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

// folder is the key prefix of class, with a trailing slash.
func (s *MinioStorage) folder(class media.Class) string {
	ns := class.Namespace()
	if ns == "" {
		return ""
	}
	if s.namespace == "" {
		return ns + "/"
	}
	return s.namespace + "/" + ns + "/"
}

func resourceMetadata(class media.Class) map[string]string {
	if class == media.Image {
		return map[string]string{
			"resource-type":  "image",
			"transformation": "quality=auto,fetch_format=auto",
		}
	}
	return map[string]string{"resource-type": "video"}
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
