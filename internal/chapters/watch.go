package chapters

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"hhc/scripture-sync/internal/logger"
)

var osStat = os.Stat

// ReindexWatcher flags a Bible dirty whenever a file under the Chapter
// Store root is created, written or removed, whether by StoreChapter or
// by anything else touching the volume (a restore from backup, a second
// process). It does not tell those sources apart. It mirrors the
// Database_State::setExport calls scattered through bibledit's
// database/bibles.cpp, which mark a Bible for re-export any time its
// files change underneath it.
type ReindexWatcher struct {
	watcher *fsnotify.Watcher
	dirty   chan string
}

// WatchRoot starts watching every Bible directory under root for
// filesystem writes, reporting the affected Bible name on Dirty().
func WatchRoot(root string) (*ReindexWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addTree(watcher, root); err != nil {
		watcher.Close()
		return nil, err
	}

	rw := &ReindexWatcher{watcher: watcher, dirty: make(chan string, 64)}
	go rw.loop(root)
	return rw, nil
}

// addTree watches root and every directory beneath it: fsnotify has no
// native recursion, and a chapter revision file lives four levels down
// at <root>/<bible>/<book>/<chapter>/<revision-id>.
func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func (rw *ReindexWatcher) loop(root string) {
	for {
		select {
		case event, ok := <-rw.watcher.Events:
			if !ok {
				close(rw.dirty)
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := osStat(event.Name); err == nil && info.IsDir() {
					rw.watcher.Add(event.Name)
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) == 0 {
				continue
			}
			if bible, ok := bibleFromPath(root, event.Name); ok {
				select {
				case rw.dirty <- bible:
				default:
					logger.GetAppLogger().Warnf("reindex watcher: dirty queue full, dropping signal for %s", bible)
				}
			}
		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			logger.GetAppLogger().Warnf("reindex watcher error: %v", err)
		}
	}
}

// Dirty reports Bible names that may need re-export, deduplication is
// the caller's responsibility.
func (rw *ReindexWatcher) Dirty() <-chan string {
	return rw.dirty
}

// Close stops the watcher.
func (rw *ReindexWatcher) Close() error {
	return rw.watcher.Close()
}

func bibleFromPath(root, path string) (string, bool) {
	rel := strings.TrimPrefix(path, root)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", false
	}
	parts := strings.SplitN(rel, "/", 2)
	return parts[0], true
}
