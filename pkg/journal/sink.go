package journal

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Sink archives encoded streams.
type Sink interface {
	Put(ctx context.Context, key string, data []byte) error
}

// PutObjectAPI is the part of *s3.Client S3Sink uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink writes streams to an S3 bucket under a key prefix.
//
//	client := journal.NewS3Client(journal.S3Config{Region: "us-east-1"})
//	sink := journal.NewS3Sink(client, "my-bucket", "editstream/")
type S3Sink struct {
	client      PutObjectAPI
	bucket      string
	prefix      string
	contentType string
}

// NewS3Sink creates an S3 sink.
func NewS3Sink(client PutObjectAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client:      client,
		bucket:      bucket,
		prefix:      prefix,
		contentType: "application/octet-stream",
	}
}

// WithContentType sets the Content-Type stored with each object.
func (s *S3Sink) WithContentType(ct string) *S3Sink {
	s.contentType = ct
	return s
}

// Put uploads data as prefix+key.
func (s *S3Sink) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.prefix + key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(s.contentType),
	})
	if err != nil {
		return fmt.Errorf("journal: put s3://%s/%s%s: %w", s.bucket, s.prefix, key, err)
	}
	return nil
}

// S3Config holds the settings NewS3Client needs.
type S3Config struct {
	Region          string
	Endpoint        string // custom endpoint, e.g. a MinIO URL
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds an S3 client from explicit settings. Credentials are
// static when an access key is set; otherwise the client is anonymous.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Source:          "editstream",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(opts)
}

// MemorySink keeps archived streams in memory.
type MemorySink struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{objects: make(map[string][]byte)}
}

// Put stores a copy of data under key.
func (m *MemorySink) Put(_ context.Context, key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = cp
	return nil
}

// Get returns the object stored under key.
func (m *MemorySink) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	return b, ok
}

// Keys returns the stored keys in order.
func (m *MemorySink) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
