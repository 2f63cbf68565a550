package sink

import (
	"bytes"
	"context"
	"image"
	"path"
	"strings"

	dimaging "github.com/disintegration/imaging"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// MinioEnvPrefix prefixes the environment variables read by MinioConfigFromEnv.
const MinioEnvPrefix = "CYRILL_MINIO_"

// MinioConfig locates an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"use_ssl"`
	Bucket    string `koanf:"bucket"`
	// Prefix is prepended to every object key.
	Prefix string `koanf:"prefix"`
}

// MinioConfigFromEnv reads CYRILL_MINIO_* variables over local defaults.
func MinioConfigFromEnv() (MinioConfig, error) {
	cfg := MinioConfig{
		Endpoint: "localhost:9000",
		Region:   "us-east-1",
		Bucket:   "augmented",
	}
	k := koanf.New(".")
	err := k.Load(env.Provider(MinioEnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, MinioEnvPrefix))
	}), nil)
	if err != nil {
		return MinioConfig{}, errors.Wrap(err, "reading minio environment")
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return MinioConfig{}, errors.Wrap(err, "decoding minio environment")
	}
	if err := cfg.Validate(); err != nil {
		return MinioConfig{}, err
	}
	return cfg, nil
}

// Validate reports the first missing or malformed field.
func (c MinioConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.Endpoint) == "":
		return errors.New("minio endpoint is required")
	case strings.Contains(c.Endpoint, "://"):
		return errors.Errorf("minio endpoint must not include scheme: %q", c.Endpoint)
	case strings.TrimSpace(c.AccessKey) == "":
		return errors.New("minio access key is required")
	case strings.TrimSpace(c.SecretKey) == "":
		return errors.New("minio secret key is required")
	case strings.TrimSpace(c.Region) == "":
		return errors.New("minio region is required")
	case strings.TrimSpace(c.Bucket) == "":
		return errors.New("minio bucket is required")
	}
	return nil
}

// Key returns the object key for name.
func (c MinioConfig) Key(name string) string {
	if c.Prefix == "" {
		return name
	}
	return path.Join(c.Prefix, name)
}

// Minio uploads outputs to a bucket.
type Minio struct {
	client *minio.Client
	cfg    MinioConfig
}

// NewMinio connects to the configured endpoint and creates the bucket if it
// does not exist.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "minio client")
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "bucket exists %s", cfg.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, errors.Wrapf(err, "make bucket %s", cfg.Bucket)
		}
		klog.Infof("sink: created bucket %s", cfg.Bucket)
	}
	return &Minio{client: client, cfg: cfg}, nil
}

// Put uploads img encoded in the format named by the extension of name, the
// same rule Dir applies.
func (m *Minio) Put(ctx context.Context, name string, img image.Image) error {
	data, contentType, err := encodeObject(name, img)
	if err != nil {
		return err
	}
	return m.put(ctx, name, data, contentType)
}

// encodeObject serializes img for the object key name.
func encodeObject(name string, img image.Image) ([]byte, string, error) {
	format, err := dimaging.FormatFromFilename(name)
	if err != nil {
		return nil, "", errors.Wrapf(err, "encoding %s", name)
	}
	var buf bytes.Buffer
	if err := dimaging.Encode(&buf, img, format); err != nil {
		return nil, "", errors.Wrapf(err, "encoding %s", name)
	}
	return buf.Bytes(), "image/" + strings.ToLower(format.String()), nil
}

// PutManifest uploads data as JSON Lines.
func (m *Minio) PutManifest(ctx context.Context, name string, data []byte) error {
	return m.put(ctx, name, data, "application/x-ndjson")
}

func (m *Minio) put(ctx context.Context, name string, data []byte, contentType string) error {
	key := m.cfg.Key(name)
	_, err := m.client.PutObject(ctx, m.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrapf(err, "uploading %s/%s", m.cfg.Bucket, key)
	}
	return nil
}
