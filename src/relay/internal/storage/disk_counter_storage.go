package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/maxogod/session-relay/src/common/logger"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const counterExtension = ".counter"

var keyReplacer = strings.NewReplacer(":", "_", "/", "_", string(os.PathSeparator), "_")

// diskCounterStorage keeps one file per key. The file holds a base64 encoded
// protobuf Struct mapping field names to their current value.
type diskCounterStorage struct {
	basePath string
	mu       sync.Mutex
}

func NewDiskCounterStorage(basePath string) (CounterStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create counter storage dir: %w", err)
	}
	return &diskCounterStorage{basePath: basePath}, nil
}

func (cs *diskCounterStorage) Increment(ctx context.Context, key, field string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	counters, err := cs.readCounters(key)
	if err != nil {
		return 0, err
	}

	next := int64(counters.GetFields()[field].GetNumberValue()) + 1
	counters.Fields[field] = structpb.NewNumberValue(float64(next))

	if err = cs.rewriteFile(key, counters); err != nil {
		return 0, err
	}
	return next, nil
}

func (cs *diskCounterStorage) Get(ctx context.Context, key, field string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	counters, err := cs.readCounters(key)
	if err != nil {
		return 0, err
	}
	return int64(counters.GetFields()[field].GetNumberValue()), nil
}

func (cs *diskCounterStorage) Close() error {
	return nil
}

// ==== Helper functions ====

func (cs *diskCounterStorage) readCounters(key string) (*structpb.Struct, error) {
	counters := &structpb.Struct{Fields: make(map[string]*structpb.Value)}

	encoded, err := os.ReadFile(cs.getFilePath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return counters, nil
		}
		return nil, fmt.Errorf("failed to open counter file: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(encoded)))
	if err != nil {
		return nil, cs.handleCorruption(key, err, "failed to decode counter file")
	}
	if err = proto.Unmarshal(decoded, counters); err != nil {
		return nil, cs.handleCorruption(key, err, "failed to unmarshal counter file")
	}
	if counters.Fields == nil {
		counters.Fields = make(map[string]*structpb.Value)
	}
	return counters, nil
}

// rewriteFile replaces the counter file for key through a temp file and rename.
func (cs *diskCounterStorage) rewriteFile(key string, counters *structpb.Struct) error {
	counterBytes, err := proto.Marshal(counters)
	if err != nil {
		return fmt.Errorf("failed to marshal counters: %w", err)
	}

	path := cs.getFilePath(key)
	tempPath := path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp counter file: %w", err)
	}

	if _, err = file.WriteString(base64.StdEncoding.EncodeToString(counterBytes) + "\n"); err != nil {
		file.Close()
		return fmt.Errorf("failed to write counter file: %w", err)
	}
	if err = file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync counter file: %w", err)
	}
	file.Close()

	if err = os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to replace counter file: %w", err)
	}
	return nil
}

func (cs *diskCounterStorage) getFilePath(key string) string {
	return filepath.Join(cs.basePath, keyReplacer.Replace(key)+counterExtension)
}

func (cs *diskCounterStorage) handleCorruption(key string, cause error, msg string) error {
	logger.Logger.Warnf("[%s] counter file corrupted, resetting file: %v", key, cause)
	empty := &structpb.Struct{Fields: make(map[string]*structpb.Value)}
	if writeErr := cs.rewriteFile(key, empty); writeErr != nil {
		return fmt.Errorf("[%s] failed to rewrite corrupted counter file: %w", key, writeErr)
	}
	return fmt.Errorf("%s: %w", msg, cause)
}
