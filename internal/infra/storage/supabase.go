// Package storage archives captured voice clips in Supabase Storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

type Config struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// UploadFunc stores data under key in the configured bucket.
type UploadFunc func(key string, data io.Reader) error

// Archive writes voice clips under date-partitioned, collision-free keys.
type Archive struct {
	upload UploadFunc
	prefix string
	now    func() time.Time
}

// New connects to Supabase. Missing URL or key is a configuration error.
func New(cfg Config) (*Archive, error) {
	if cfg.URL == "" || cfg.ServiceRoleKey == "" {
		return nil, errors.New("missing Supabase configuration: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY required")
	}
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	bucket := cfg.Bucket
	return NewArchive(func(key string, data io.Reader) error {
		_, err := client.Storage.UploadFile(bucket, key, data)
		return err
	}), nil
}

// NewArchive wraps an arbitrary upload function.
func NewArchive(upload UploadFunc) *Archive {
	return &Archive{upload: upload, prefix: "voice", now: time.Now}
}

// Put uploads one clip and returns its object key. filename only contributes its extension.
func (a *Archive) Put(ctx context.Context, clip []byte, filename, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(clip) == 0 {
		return "", errors.New("storage: empty clip")
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".webm"
	}
	if lang == "" {
		lang = "und"
	}
	key := path.Join(a.prefix, a.now().UTC().Format("2006/01/02"), lang, uuid.NewString()+ext)
	if err := a.upload(key, bytes.NewReader(clip)); err != nil {
		return "", fmt.Errorf("failed to upload to Supabase: %w", err)
	}
	return key, nil
}
