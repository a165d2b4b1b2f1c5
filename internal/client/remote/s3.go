package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/mhadley/receiptvault/internal/client/models"
	"github.com/mhadley/receiptvault/internal/logging"
)

// Options configures access to the S3-compatible backend (AWS or MinIO).
type Options struct {
	BaseEndpoint string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
}

// S3Store implements both DocumentStore and BlobStore on one bucket.
//
// Layout:
//
//	users/<owner>/receipts/<id>.json   - receipt documents
//	users/<owner>/images/<uuid>.jpg    - image blobs (fresh key per upload)
type S3Store struct {
	client *s3.Client
	bucket string
	log    logging.Logger
}

func NewS3Store(ctx context.Context, opts Options, log logging.Logger) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: opts.Bucket, log: log.With("component", "remote")}, nil
}

func docPrefix(ownerID string) string {
	return fmt.Sprintf("users/%s/receipts/", ownerID)
}

func docKey(ownerID, id string) string {
	return docPrefix(ownerID) + id + ".json"
}

// NewBlobKey generates a fresh blob location for an owner. Uploads never
// overwrite in place.
func NewBlobKey(ownerID string) string {
	return fmt.Sprintf("users/%s/images/%v.jpg", ownerID, uuid.New())
}

func (s *S3Store) GetCollection(ctx context.Context, ownerID string) ([]models.Receipt, error) {
	prefix := docPrefix(ownerID)

	var result []models.Receipt
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list receipts: %w", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			r, err := s.getDoc(ctx, key)
			if err != nil {
				s.log.Warn(ctx, "skipping unreadable receipt document", "key", key, "error", err)
				continue
			}
			result = append(result, r)
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return result, nil
}

func (s *S3Store) getDoc(ctx context.Context, key string) (models.Receipt, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return models.Receipt{}, fmt.Errorf("get document: %w", err)
	}
	defer out.Body.Close()

	var doc models.ReceiptDoc
	if err := json.NewDecoder(out.Body).Decode(&doc); err != nil {
		return models.Receipt{}, fmt.Errorf("decode document: %w", err)
	}

	id := strings.TrimSuffix(path.Base(key), ".json")
	return doc.Receipt(id), nil
}

func (s *S3Store) Put(ctx context.Context, ownerID, id string, r models.Receipt) error {
	b, err := json.Marshal(r.Doc())
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(docKey(ownerID, id)),
		Body:          bytes.NewReader(b),
		ContentLength: aws.Int64(int64(len(b))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put document %s: %w", id, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, ownerID, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(docKey(ownerID, id)),
	})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// PutBlob uploads image bytes under key and returns the durable reference.
func (s *S3Store) PutBlob(ctx context.Context, key string, body io.Reader, length int64) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(length),
		ContentType:   aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("put blob %s: %w", key, err)
	}
	return key, nil
}

// OpenBlob streams the blob behind ref and reports its total length.
func (s *S3Store) OpenBlob(ctx context.Context, ref string) (io.ReadCloser, int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("open blob %s: %w", ref, err)
	}
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

// DeleteBlob removes the blob behind ref.
func (s *S3Store) DeleteBlob(ctx context.Context, ref string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", ref, err)
	}
	return nil
}

// Blobs adapts the store to the BlobStore interface so the document and
// blob halves can be injected separately.
func (s *S3Store) Blobs() BlobStore {
	return blobAdapter{s}
}

type blobAdapter struct {
	s *S3Store
}

func (a blobAdapter) Put(ctx context.Context, key string, body io.Reader, length int64) (string, error) {
	return a.s.PutBlob(ctx, key, body, length)
}

func (a blobAdapter) Open(ctx context.Context, ref string) (io.ReadCloser, int64, error) {
	return a.s.OpenBlob(ctx, ref)
}

func (a blobAdapter) Delete(ctx context.Context, ref string) error {
	return a.s.DeleteBlob(ctx, ref)
}

var _ DocumentStore = (*S3Store)(nil)
