package vault

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"autobot-go/internal/autobot"
	"autobot-go/internal/config"
)

// S3Vault mirrors objects to an S3 compatible bucket under an optional prefix.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Vault builds a client from the default AWS credential chain. Static
// keys in AUTOBOT_S3_ACCESS_KEY_ID / AUTOBOT_S3_SECRET_ACCESS_KEY take
// precedence, and S3Endpoint points the client at non-AWS providers.
func NewS3Vault(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	id, secret := os.Getenv("AUTOBOT_S3_ACCESS_KEY_ID"), os.Getenv("AUTOBOT_S3_SECRET_ACCESS_KEY")
	if id != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(id, secret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Vault{
		name:     cfg.Name,
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (v *S3Vault) Put(ctx context.Context, key string, r io.Reader) error {
	objectKey, err := v.objectKey(key)
	if err != nil {
		return err
	}

	_, err = v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(objectKey),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", objectKey, err)
	}
	return nil
}

func (v *S3Vault) Get(ctx context.Context, key string, w io.Writer) error {
	objectKey, err := v.objectKey(key)
	if err != nil {
		return err
	}

	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("downloading %s: %w", objectKey, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", objectKey, err)
	}
	return nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

func (v *S3Vault) objectKey(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if v.prefix == "" {
		return key, nil
	}
	return path.Join(v.prefix, key), nil
}

var _ autobot.Vault = (*S3Vault)(nil)
