package archive

import "fmt"

// Backend types.
const (
	TypeLocalFS = "localfs"
	TypeS3      = "s3"
)

// Config selects and configures a Storage backend.
type Config struct {
	Type string
	Path string // For localfs
	S3   S3Config
}

// New creates the backend named by cfg.Type.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", TypeLocalFS:
		return NewLocalFS(cfg.Path)
	case TypeS3:
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}
