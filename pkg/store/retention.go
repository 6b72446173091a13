package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cockroachdb/pebble"

	"chatsync/pkg/logger"
	"chatsync/pkg/models"
)

// PurgeOlderThan deletes messages whose timestamp is older than cutoff
// (unix nanos), across all conversations, including their id-index entries.
// batchSize bounds deletions per commit; dryRun only counts. Returns the
// number of messages purged (or that would be).
func (s *Store) PurgeOlderThan(cutoff int64, batchSize int, dryRun bool) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("pebble not opened; call store.Open first")
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	prefix := []byte("chat:")
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	var purged int
	batch := s.db.NewBatch()
	pending := 0
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		key := iter.Key()
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		ts, ok := messageKeyTS(key)
		if !ok || ts >= cutoff {
			continue
		}
		purged++
		if dryRun {
			continue
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err == nil && m.ID != "" {
			_ = batch.Delete(msgIDKey(m.ChatID, m.ID), nil)
		}
		_ = batch.Delete(append([]byte(nil), key...), nil)
		pending++
		if pending >= batchSize {
			if err := batch.Commit(pebble.Sync); err != nil {
				return purged, err
			}
			batch = s.db.NewBatch()
			pending = 0
		}
	}
	if err := iter.Error(); err != nil {
		return purged, err
	}
	if !dryRun && pending > 0 {
		if err := batch.Commit(pebble.Sync); err != nil {
			return purged, err
		}
	}
	logger.Info("retention_purge_done", "purged", purged, "dry_run", dryRun)
	return purged, nil
}

// messageKeyTS extracts the timestamp from a primary message key
// (chat:<id>:msg:<%020d>-<%06d>). Returns false for non-message keys.
func messageKeyTS(key []byte) (int64, bool) {
	i := bytes.Index(key, []byte(":msg:"))
	if i < 0 {
		return 0, false
	}
	rest := key[i+len(":msg:"):]
	j := bytes.IndexByte(rest, '-')
	if j != 20 {
		return 0, false
	}
	ts, err := strconv.ParseInt(string(rest[:j]), 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
