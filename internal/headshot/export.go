package headshot

import (
	"context"

	"headshot/internal/domain"
	"headshot/internal/storage"
)

// ExportBaseName is the fixed base name of the downloaded result.
const ExportBaseName = "professional-avatar"

// ExportFileName derives the download name from the result's actual MIME
// type rather than assuming PNG, falling back to .png for unknown types.
func ExportFileName(mime string) string {
	switch mime {
	case "image/jpeg":
		return ExportBaseName + ".jpg"
	case "image/webp":
		return ExportBaseName + ".webp"
	default:
		return ExportBaseName + ".png"
	}
}

// Export saves the session's result through the file store and returns the
// storage key. Sessions without a result return domain.ErrNoResultImage so
// callers can treat the export as a no-op.
func Export(ctx context.Context, sess *domain.Session, store *storage.FileStore) (string, error) {
	result, err := sess.Result()
	if err != nil {
		return "", err
	}
	return store.Write(ctx, ExportFileName(result.MIME), result.Data)
}
