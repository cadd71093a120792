package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/storage"
)

const (
	avatarPrefix = "avatars/"
	reportPrefix = "reports/"
)

// objectName builds "<kind>-<unix-ms>-<8 hex>.<ext>".
func objectName(kind, ext string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s%s", kind, now.UnixMilli(), uuid.NewString()[:8], ext)
}

// validName rejects anything that is not a bare file name.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && path.Base(name) == name
}

// AvatarStore keeps profile pictures in the object store.
type AvatarStore struct {
	store  storage.ObjectStore
	logger *zap.Logger
}

// NewAvatarStore wraps store for avatars.
func NewAvatarStore(store storage.ObjectStore, logger *zap.Logger) *AvatarStore {
	return &AvatarStore{store: store, logger: logger}
}

// Save stores an uploaded image and returns its name, or the default avatar when up is nil.
func (a *AvatarStore) Save(ctx context.Context, up *Upload) (string, error) {
	if up == nil || up.Reader == nil {
		return domain.DefaultAvatar, nil
	}
	sniffed, err := storage.RequireImage(up.Reader)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return "", ErrAvatarNotImage
		}
		return "", err
	}
	name := objectName("user", sniffed.Extension, time.Now())
	if err := a.store.Put(ctx, avatarPrefix+name, sniffed.Reader, up.Size, sniffed.MIME); err != nil {
		return "", err
	}
	return name, nil
}

// Remove deletes a stored avatar. Failures are logged.
func (a *AvatarStore) Remove(ctx context.Context, name string) {
	if name == "" || name == domain.DefaultAvatar {
		return
	}
	if err := a.store.Delete(ctx, avatarPrefix+name); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		a.logger.Warn("delete avatar", zap.String("file", name), zap.Error(err))
	}
}

// Open streams a stored avatar.
func (a *AvatarStore) Open(ctx context.Context, name string) (*storage.Object, error) {
	return openObject(ctx, a.store, avatarPrefix, name)
}

func openObject(ctx context.Context, store storage.ObjectStore, prefix, name string) (*storage.Object, error) {
	if !validName(name) {
		return nil, ErrFileNotFound
	}
	obj, err := store.Open(ctx, prefix+name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return obj, nil
}
