package spreadsheet

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/table"
)

// DefaultReloadDelay is how long a workbook must stay quiet before it is
// read again. Spreadsheet editors write a file in several steps.
const DefaultReloadDelay = 500 * time.Millisecond

// ExamplesWatcher reloads an example workbook whenever it changes on disk
type ExamplesWatcher struct {
	path     string
	window   Window
	delay    time.Duration
	onChange func(*table.Table)

	watcher   *fsnotify.Watcher
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error

	mu    sync.Mutex
	timer *time.Timer
}

// WatchExamples watches path and calls onChange with the freshly read
// examples after each change. A workbook that fails to load is reported and
// the previous examples stay in use. The directory is watched rather than
// the file so that editors which save by renaming are still seen.
func WatchExamples(path string, w Window, delay time.Duration, onChange func(*table.Table)) (*ExamplesWatcher, error) {
	if delay <= 0 {
		delay = DefaultReloadDelay
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid examples path %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	ew := &ExamplesWatcher{
		path:     abs,
		window:   w,
		delay:    delay,
		onChange: onChange,
		watcher:  fw,
		done:     make(chan struct{}),
	}
	ew.wg.Add(1)
	go ew.loop()

	config.DebugLog("[Spreadsheet] Watching %s for changes", abs)
	return ew, nil
}

// Close stops watching. Pending reloads are dropped. It is safe to call
// more than once and from several goroutines.
func (ew *ExamplesWatcher) Close() error {
	ew.closeOnce.Do(func() {
		close(ew.done)
		ew.closeErr = ew.watcher.Close()
		ew.wg.Wait()

		ew.mu.Lock()
		if ew.timer != nil {
			ew.timer.Stop()
		}
		ew.mu.Unlock()
	})
	return ew.closeErr
}

func (ew *ExamplesWatcher) loop() {
	defer ew.wg.Done()
	for {
		select {
		case <-ew.done:
			return
		case event, ok := <-ew.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != ew.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				ew.schedule()
			}
		case err, ok := <-ew.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[WARN] Examples watcher error: %v\n", err)
		}
	}
}

// schedule restarts the quiet period before a reload
func (ew *ExamplesWatcher) schedule() {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	if ew.timer != nil {
		ew.timer.Stop()
	}
	ew.timer = time.AfterFunc(ew.delay, ew.reload)
}

func (ew *ExamplesWatcher) reload() {
	select {
	case <-ew.done:
		return
	default:
	}

	examples, err := ReadExamples(ew.path, ew.window)
	if err != nil {
		log.Printf("[WARN] Keeping previous examples: %v\n", err)
		return
	}
	log.Printf("[INFO] Reloaded %d example rows from %s\n", examples.Len(), ew.path)
	ew.onChange(examples)
}
