package catalog

import (
	"context"
	"io"

	domcat "github.com/fieldstash/toolscout/internal/domain/catalog"
	domdetect "github.com/fieldstash/toolscout/internal/domain/detect"
	"github.com/fieldstash/toolscout/internal/domain/fusion"
)

// Repository persists catalog entries.
type Repository interface {
	Put(ctx context.Context, entry domcat.Entry) (domcat.Entry, error)
	Get(ctx context.Context, id string) (domcat.Entry, error)
	SetBackupRef(ctx context.Context, id, ref string) error
}

// FileStore keeps the original upload bytes on local disk.
type FileStore interface {
	Save(filename string, content []byte) error
	Open(filename string) (io.ReadCloser, error)
	Remove(filename string) error
}

// Backup uploads a copy of the file to remote drive storage. Enabled
// reports whether a backend is configured; Upload returns an opaque
// reference to the remote copy.
type Backup interface {
	Enabled() bool
	Upload(ctx context.Context, filename string, content []byte) (string, error)
}

// Detection fuses tags from the configured detector backends.
type Detection interface {
	Detect(ctx context.Context, image []byte) (fusion.TagSet, []domdetect.Outcome)
}
