package fingerprint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// FileStore keeps the fingerprint in a small file under the user's config
// directory, the closest server-side analogue to browser local storage.
type FileStore struct {
	Path string
}

// NewFileStore places the fingerprint file under dir (or the OS config dir
// when dir is empty).
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		if cfg, err := os.UserConfigDir(); err == nil {
			dir = filepath.Join(cfg, "presence")
		} else {
			dir = "."
		}
	}
	return &FileStore{Path: filepath.Join(dir, "device_id")}
}

// Load reads the persisted fingerprint if one exists.
func (s *FileStore) Load() (string, bool) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(data))
	return id, id != ""
}

// Save writes the fingerprint, creating the directory on first use.
func (s *FileStore) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte(id+"\n"), 0o600)
}

// RedisStore persists fingerprints in Redis, keyed per storage scope. Used
// by server-side tooling where no local filesystem scope exists.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore scopes the fingerprint under the given key.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "presence:device_id"
	}
	return &RedisStore{client: client, key: key}
}

// Load fetches the stored fingerprint.
func (s *RedisStore) Load() (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	id, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		return "", false
	}
	return id, id != ""
}

// Save stores the fingerprint without expiry.
func (s *RedisStore) Save(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Set(ctx, s.key, id, 0).Err()
}
