package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"time"

	"picshelf/models"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type S3Storage struct {
	Bucket   Bucket
	s3Client *s3.S3
}

func NewS3Storage(bucket *Bucket) (*S3Storage, error) {
	client, err := bucket.CreateSVC()
	if err != nil {
		return nil, err
	}
	return &S3Storage{
		Bucket:   *bucket,
		s3Client: client,
	}, nil
}

// Put streams the content to the bucket
func (s *S3Storage) Put(ctx context.Context, name string, reader io.Reader) (Object, error) {
	key := GetPath(models.NewID(), name, time.Now())
	counter := &countingReader{Reader: reader}
	uploader := s3manager.NewUploaderWithClient(s.s3Client)
	input := s3manager.UploadInput{
		Bucket: &s.Bucket.Name,
		Key:    aws.String(s.Bucket.GetRemotePath(key)),
		Body:   counter,
	}
	if mimeType := mime.TypeByExtension(path.Ext(key)); mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}
	if s.Bucket.SSEEncryption != "" {
		input.ServerSideEncryption = &s.Bucket.SSEEncryption
	}
	if _, err := uploader.UploadWithContext(ctx, &input); err != nil {
		return Object{}, err
	}
	return Object{Reference: s.Bucket.ReferenceFor(key), Size: counter.n}, nil
}

// Load downloads an object into writer
func (s *S3Storage) Load(ctx context.Context, reference string, writer io.Writer) (int64, error) {
	key, err := s.Bucket.KeyFrom(reference)
	if err != nil {
		return 0, err
	}
	resp, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: &s.Bucket.Name,
		Key:    aws.String(s.Bucket.GetRemotePath(key)),
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(writer, resp.Body)
}

func (s *S3Storage) Delete(ctx context.Context, reference string) error {
	key, err := s.Bucket.KeyFrom(reference)
	if err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: &s.Bucket.Name,
		Key:    aws.String(s.Bucket.GetRemotePath(key)),
	})
	return err
}
