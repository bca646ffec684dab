package audit

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
)

// S3Config addresses an S3-compatible bucket (AWS or MinIO).
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// ObjectPutter is the part of *s3.Client the exporter uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds a client for cfg. Static credentials are used when an
// access key is set, otherwise the default AWS chain applies.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Exporter uploads pending journal records as one JSON-lines object per run.
type Exporter struct {
	journal *Journal
	put     ObjectPutter
	bucket  string
	prefix  string
	now     func() time.Time
	batch   int
}

func NewExporter(j *Journal, put ObjectPutter, bucket, prefix string) *Exporter {
	if prefix == "" {
		prefix = "audit"
	}
	return &Exporter{journal: j, put: put, bucket: bucket, prefix: prefix, now: time.Now, batch: 1000}
}

// Export ships up to one batch of pending records. It returns the number of
// records shipped and the object key; zero records means nothing was uploaded.
func (x *Exporter) Export(ctx context.Context) (int, string, error) {
	if x.bucket == "" {
		return 0, "", errors.New("audit export: bucket is not configured")
	}

	recs, err := x.journal.Pending(ctx, x.batch)
	if err != nil {
		return 0, "", err
	}
	if len(recs) == 0 {
		return 0, "", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return 0, "", fmt.Errorf("encode audit record: %w", err)
		}
		ids = append(ids, r.ID)
	}

	now := x.now().UTC()
	objID, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return 0, "", fmt.Errorf("audit object id: %w", err)
	}
	key := fmt.Sprintf("%s/%s/%s.jsonl", x.prefix, now.Format("2006/01/02"), objID.String())

	_, err = x.put.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(x.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return 0, "", fmt.Errorf("put audit object: %w", err)
	}

	if err := x.journal.MarkExported(ctx, ids); err != nil {
		return 0, key, err
	}
	return len(recs), key, nil
}
