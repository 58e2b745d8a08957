package utils

import (
	"context"

	"github.com/alwitt/clipsync/common"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Client client for interacting with S3
type S3Client interface {
	/*
		Ready check whether the S3 connection is functional

			@param ctxt context.Context - execution context
	*/
	Ready(ctxt context.Context) error

	/*
		CreateBucket create a bucket. Already existing buckets are not an error.

			@param ctxt context.Context - execution context
			@param bucketName string - the bucket name
	*/
	CreateBucket(ctxt context.Context, bucketName string) error

	/*
		PutFile upload the content of a local file as an object

			@param ctxt context.Context - execution context
			@param bucketName string - target bucket
			@param objectKey string - target object key
			@param filePath string - local file to upload
	*/
	PutFile(ctxt context.Context, bucketName, objectKey, filePath string) error

	/*
		GetFile download an object into a local file

			@param ctxt context.Context - execution context
			@param bucketName string - source bucket
			@param objectKey string - source object key
			@param filePath string - local file to write
	*/
	GetFile(ctxt context.Context, bucketName, objectKey, filePath string) error

	/*
		DeleteObject delete an object

			@param ctxt context.Context - execution context
			@param bucketName string - target bucket
			@param objectKey string - target object key
	*/
	DeleteObject(ctxt context.Context, bucketName, objectKey string) error

	/*
		ListObjects list object keys under a prefix

			@param ctxt context.Context - execution context
			@param bucketName string - target bucket
			@param prefix string - object key prefix
			@returns matching object keys
	*/
	ListObjects(ctxt context.Context, bucketName, prefix string) ([]string, error)
}

// s3ClientImpl implements S3Client
type s3ClientImpl struct {
	goutils.Component
	client *minio.Client
}

/*
NewS3Client define new S3 operation client

	@param config common.S3Config - S3 connection config
	@returns new S3Client
*/
func NewS3Client(config common.S3Config) (S3Client, error) {
	logTags := log.Fields{"module": "utils", "component": "s3-client", "endpoint": config.ServerEndpoint}

	var creds *credentials.Credentials
	if config.Creds != nil {
		creds = credentials.NewStaticV4(config.Creds.AccessKey, config.Creds.SecretAccessKey, "")
	} else {
		creds = credentials.NewIAM("")
	}

	client, err := minio.New(config.ServerEndpoint, &minio.Options{
		Creds: creds, Secure: config.UseTLS,
	})
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define S3 client")
		return nil, err
	}

	return &s3ClientImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		client: client,
	}, nil
}

func (s *s3ClientImpl) Ready(ctxt context.Context) error {
	_, err := s.client.ListBuckets(ctxt)
	return err
}

func (s *s3ClientImpl) CreateBucket(ctxt context.Context, bucketName string) error {
	logTags := s.GetLogTagsForContext(ctxt)

	exists, err := s.client.BucketExists(ctxt, bucketName)
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("bucket", bucketName).
			Error("Unable to query bucket status")
		return err
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctxt, bucketName, minio.MakeBucketOptions{}); err != nil {
		log.WithError(err).WithFields(logTags).WithField("bucket", bucketName).
			Error("Bucket creation failed")
		return err
	}
	log.WithFields(logTags).WithField("bucket", bucketName).Info("Created bucket")
	return nil
}

func (s *s3ClientImpl) PutFile(ctxt context.Context, bucketName, objectKey, filePath string) error {
	logTags := s.GetLogTagsForContext(ctxt)
	if _, err := s.client.FPutObject(
		ctxt, bucketName, objectKey, filePath, minio.PutObjectOptions{},
	); err != nil {
		log.
			WithError(err).
			WithFields(logTags).
			WithField("bucket", bucketName).
			WithField("object", objectKey).
			Error("Object upload failed")
		return err
	}
	return nil
}

func (s *s3ClientImpl) GetFile(ctxt context.Context, bucketName, objectKey, filePath string) error {
	logTags := s.GetLogTagsForContext(ctxt)
	if err := s.client.FGetObject(
		ctxt, bucketName, objectKey, filePath, minio.GetObjectOptions{},
	); err != nil {
		log.
			WithError(err).
			WithFields(logTags).
			WithField("bucket", bucketName).
			WithField("object", objectKey).
			Error("Object fetch failed")
		return err
	}
	return nil
}

func (s *s3ClientImpl) DeleteObject(ctxt context.Context, bucketName, objectKey string) error {
	logTags := s.GetLogTagsForContext(ctxt)
	if err := s.client.RemoveObject(
		ctxt, bucketName, objectKey, minio.RemoveObjectOptions{},
	); err != nil {
		log.
			WithError(err).
			WithFields(logTags).
			WithField("bucket", bucketName).
			WithField("object", objectKey).
			Error("Object deletion failed")
		return err
	}
	return nil
}

func (s *s3ClientImpl) ListObjects(
	ctxt context.Context, bucketName, prefix string,
) ([]string, error) {
	var result []string
	for object := range s.client.ListObjects(ctxt, bucketName, minio.ListObjectsOptions{
		Prefix: prefix, Recursive: true,
	}) {
		if object.Err != nil {
			return nil, object.Err
		}
		result = append(result, object.Key)
	}
	return result, nil
}
