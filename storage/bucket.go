package storage

import (
	"strings"

	"picshelf/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type StorageType uint8

const (
	StorageTypeFile StorageType = 0
	StorageTypeS3   StorageType = 1
)

type Bucket struct {
	Name          string // S3 bucket name
	StorageType   StorageType
	Path          string // Path on a drive or a prefix in a S3 bucket
	Endpoint      string // Custom S3 endpoint (MinIO, etc)
	Region        string
	AuthDetails   string // Authentication details. In case of S3 bucket - "key:secret"
	SSEEncryption string
	PublicURL     string // References are PublicURL + "/" + key when set
}

func BucketFromConfig(cfg *config.Config) *Bucket {
	b := &Bucket{
		Name:          cfg.S3Bucket,
		StorageType:   StorageTypeFile,
		Path:          cfg.StoragePath,
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		SSEEncryption: cfg.S3SSEEncryption,
		PublicURL:     strings.TrimSuffix(cfg.StoragePublicURL, "/"),
	}
	if cfg.S3Key != "" {
		b.AuthDetails = cfg.S3Key + ":" + cfg.S3Secret
	}
	if cfg.StorageType == config.StorageTypeS3 {
		b.StorageType = StorageTypeS3
	}
	return b
}

func (b *Bucket) IsS3() bool {
	return b.StorageType == StorageTypeS3
}

// GetRemotePath prefixes the key with the bucket path (if any)
func (b *Bucket) GetRemotePath(key string) string {
	prefix := strings.Trim(b.Path, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func (b *Bucket) ReferenceFor(key string) string {
	if b.PublicURL == "" {
		return key
	}
	return b.PublicURL + "/" + key
}

// KeyFrom reverses ReferenceFor
func (b *Bucket) KeyFrom(reference string) (string, error) {
	if b.PublicURL == "" {
		return reference, nil
	}
	key, found := strings.CutPrefix(reference, b.PublicURL+"/")
	if !found || key == "" {
		return "", ErrUnknownReference
	}
	return key, nil
}

func (b *Bucket) CreateSVC() (*s3.S3, error) {
	awsConfig := &aws.Config{
		Region: aws.String(b.Region),
	}
	if b.Endpoint != "" {
		awsConfig.Endpoint = aws.String(b.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if key, secret, found := strings.Cut(b.AuthDetails, ":"); found {
		awsConfig.Credentials = credentials.NewStaticCredentials(key, secret, "")
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}
	return s3.New(sess), nil
}
