package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"litrevu/internal/config"
	domain "litrevu/internal/model"
)

// ImageInput is an uploaded file as received from a multipart form.
type ImageInput struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// ImageStore persists normalised images and removes them again.
type ImageStore interface {
	UploadTicketImage(ctx context.Context, img ImageInput) (*domain.UploadResult, error)
	UploadProfilePhoto(ctx context.Context, img ImageInput) (*domain.UploadResult, error)
	DeleteObject(ctx context.Context, key string) error
}

// objectPutter is the slice of the S3 client the media service uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// MediaService stores images in Cloudflare R2 through its S3 API.
type MediaService struct {
	s3Client  objectPutter
	bucket    string
	publicURL string
}

// NewMediaService constructs an S3-compatible client for Cloudflare R2.
func NewMediaService(ctx context.Context, cfg *config.Config) (*MediaService, error) {
	if !cfg.MediaEnabled() {
		return nil, fmt.Errorf("missing Cloudflare R2 configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return newMediaService(s3Client, cfg.R2BucketName, cfg.R2PublicURL), nil
}

func newMediaService(client objectPutter, bucket, publicURL string) *MediaService {
	return &MediaService{
		s3Client:  client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// UploadTicketImage fits the cover inside 800x800 keeping its aspect ratio.
func (s *MediaService) UploadTicketImage(ctx context.Context, img ImageInput) (*domain.UploadResult, error) {
	return s.upload(ctx, img, domain.TicketImageFolder, func(src image.Image) image.Image {
		return imaging.Fit(src, domain.TicketImageMaxWidth, domain.TicketImageMaxHeight, imaging.Lanczos)
	})
}

// UploadProfilePhoto center-crops to a 200x200 square.
func (s *MediaService) UploadProfilePhoto(ctx context.Context, img ImageInput) (*domain.UploadResult, error) {
	return s.upload(ctx, img, domain.ProfilePhotoFolder, func(src image.Image) image.Image {
		return imaging.Fill(src, domain.ProfilePhotoWidth, domain.ProfilePhotoHeight, imaging.Center, imaging.Lanczos)
	})
}

func (s *MediaService) upload(ctx context.Context, img ImageInput, folder string, transform func(image.Image) image.Image) (*domain.UploadResult, error) {
	data, _, err := readAndValidateImage(img.File, img.Header, domain.MaxImageSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := toJPEG(data, transform, 85)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), domain.ImageExt)
	if err := s.putObject(ctx, key, jpegBytes, domain.ContentTypeJPEG, domain.ImageCacheControl); err != nil {
		return nil, err
	}

	return &domain.UploadResult{URL: fmt.Sprintf("%s/%s", s.publicURL, key), Key: key}, nil
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file multipart.File, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if header.Size > maxSize {
		return nil, "", domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", domain.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !domain.IsAllowedImageType(contentType) {
		return nil, "", domain.ErrInvalidImageType
	}

	return data, contentType, nil
}

func toJPEG(data []byte, transform func(image.Image) image.Image, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImageType, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, transform(img), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *MediaService) putObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to r2: %w", err)
	}
	return nil
}

// DeleteObject removes an object by key. An empty key is a no-op.
func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}
