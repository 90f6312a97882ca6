package repository

import (
	"context"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/database"

	errprocess "campus_chat_service/pkg/err"
)

// AttachmentResolver turn caller-supplied object references into resolved
// attachment records. Upload itself happens in the file service; the chat core
// only resolves what was already uploaded.
type AttachmentResolver interface {
	Resolve(ctx context.Context, objectNames []string) ([]domain.Attachment, error)
}

type minioAttachmentResolver struct {
	mc     *database.MinIOClient
	urlTTL time.Duration
}

// NewMinIOAttachmentResolver create an AttachmentResolver backed by the
// shared attachment bucket
func NewMinIOAttachmentResolver(mc *database.MinIOClient, urlTTL time.Duration) AttachmentResolver {
	return &minioAttachmentResolver{
		mc:     mc,
		urlTTL: urlTTL,
	}
}

// Resolve stat every object and presign a GET URL for it; an unknown object
// reference fails the whole batch.
func (r *minioAttachmentResolver) Resolve(ctx context.Context, objectNames []string) ([]domain.Attachment, error) {
	attachments := make([]domain.Attachment, 0, len(objectNames))
	for _, name := range objectNames {
		info, err := r.mc.StatObject(ctx, name)
		if err != nil {
			return nil, errprocess.NotFound("attachment not found: " + name)
		}

		url, err := r.mc.PresignGetURL(ctx, name, r.urlTTL)
		if err != nil {
			return nil, err
		}

		attachments = append(attachments, domain.Attachment{
			Name:       name,
			URL:        url,
			MediaType:  info.ContentType,
			Size:       info.Size,
			UploadedAt: info.LastModified.UnixMilli(),
		})
	}
	return attachments, nil
}
