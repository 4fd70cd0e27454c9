package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"quillchat/internal/domain/entity"
	"quillchat/pkg/logger"
)

const (
	attachmentCacheControl = "public, max-age=86400"
	publicURLFormat        = "https://storage.googleapis.com/%s/%s"
)

var extensionsByType = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// AttachmentBucket stores conversation attachments in a Cloud Storage bucket.
type AttachmentBucket struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewAttachmentBucket opens bucket. Browsers read attachments straight from
// the bucket, so a read-only CORS rule is added when the bucket has none.
func NewAttachmentBucket(ctx context.Context, bucket string, opts ...option.ClientOption) (*AttachmentBucket, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	b := &AttachmentBucket{client: client, bucket: bucket, now: time.Now}
	if err := b.ensureReadCORS(ctx); err != nil {
		logger.Warn("Attachment bucket %s: CORS not configured: %v", bucket, err)
	}
	return b, nil
}

func (b *AttachmentBucket) ensureReadCORS(ctx context.Context) error {
	handle := b.client.Bucket(b.bucket)

	attrs, err := handle.Attrs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket attributes: %v", err)
	}
	if len(attrs.CORS) > 0 {
		return nil
	}

	_, err = handle.Update(ctx, storage.BucketAttrsToUpdate{
		CORS: []storage.CORS{{
			MaxAge:          time.Hour,
			Methods:         []string{"GET", "HEAD"},
			Origins:         []string{"*"},
			ResponseHeaders: []string{"Content-Type", "Content-Disposition"},
		}},
	})
	return err
}

// UploadAttachment writes file under folder and makes it publicly readable.
func (b *AttachmentBucket) UploadAttachment(ctx context.Context, file io.Reader, name, contentType, folder string) (*entity.Attachment, error) {
	objectName := ObjectName(folder, name, contentType, b.now())
	obj := b.client.Bucket(b.bucket).Object(objectName)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.ContentDisposition = fmt.Sprintf("inline; filename=%q", name)
	w.CacheControl = attachmentCacheControl

	size, err := io.Copy(w, file)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write attachment %s: %v", objectName, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish attachment %s: %v", objectName, err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return nil, fmt.Errorf("failed to publish attachment %s: %v", objectName, err)
	}

	return &entity.Attachment{
		URL:         fmt.Sprintf(publicURLFormat, b.bucket, objectName),
		Name:        name,
		ContentType: contentType,
		Size:        size,
	}, nil
}

func (b *AttachmentBucket) Close() error {
	return b.client.Close()
}

// ObjectName returns folder/<uuid>-<timestamp><ext>. The extension comes from
// name, or from contentType when name has none.
func ObjectName(folder, name, contentType string, now time.Time) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		ext = extensionsByType[contentType]
	}
	if ext == "" {
		ext = ".bin"
	}

	return fmt.Sprintf("%s/%s-%s%s", strings.Trim(folder, "/"), uuid.NewString(), now.UTC().Format("20060102150405"), ext)
}
