package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File：每个键一个 <key>.json 文件，对应单机前端的本地存储
// 约束：写入先落临时文件再 rename，避免进程中断留下半截 blob
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kv file dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (s *File) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.dir, safe+".json")
}

func (s *File) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		err = ErrNotFound
	}
	observe("file", "get", err)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *File) Set(_ context.Context, key string, val []byte) error {
	p := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".kv-*")
	if err == nil {
		_, err = tmp.Write(val)
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
		if err == nil {
			err = os.Rename(tmp.Name(), p)
		}
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}
	observe("file", "set", err)
	return err
}

func (s *File) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	observe("file", "del", err)
	return err
}
