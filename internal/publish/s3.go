package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jongan69/threadiverse/internal/model"
	"github.com/jongan69/threadiverse/internal/util"
)

// S3Uploader implements Uploader against an S3-compatible content bucket.
// A post's content JSON is stored under a hash-derived key, so re-uploading
// identical content yields the same reference.
type S3Uploader struct {
	client *s3.Client
	bucket string
}

func NewS3Uploader(accessKeyID, accessKeySecret, baseEndpoint, bucket string) *S3Uploader {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		publishLogger.Fatal().Err(err).Msg("Error initializing S3 client")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(baseEndpoint)
	})

	return &S3Uploader{
		client: client,
		bucket: bucket,
	}
}

func (u *S3Uploader) Upload(ctx context.Context, post model.Post) (model.ContentRef, error) {
	body, err := json.Marshal(post)
	if err != nil {
		return "", fmt.Errorf("error marshalling post content: %w", err)
	}

	key := fmt.Sprintf("content/%s/%s.json", post.TemplateID, util.ContentHash(body))

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading post content: %w", err)
	}

	ref := model.ContentRef(fmt.Sprintf("s3://%s/%s", u.bucket, key))
	publishLogger.Debug().Str("post_id", string(post.ID)).Str("ref", string(ref)).Msg("Post content uploaded")
	return ref, nil
}
