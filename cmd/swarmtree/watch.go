package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory for feature specs",
	Long: `Watch a directory and enqueue feature specs as YAML files appear.

Each .yaml/.yml file dropped into the directory is parsed as a list of
feature specs and enqueued; files present at startup are ingested first.
Ingested files are renamed with a .done suffix so they are not enqueued
twice.

Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	// Ingest anything already present before watching.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read watch directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ingestSpecFile(a, filepath.Join(dir, entry.Name()))
	}
	if err := a.persist(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %s for feature specs...\n", dir)

	// Editors fire several events per save; debounce per path.
	lastSeen := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return a.persist()
		case event, ok := <-watcher.Events:
			if !ok {
				return a.persist()
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if now := time.Now(); now.Sub(lastSeen[event.Name]) < time.Second {
				continue
			} else {
				lastSeen[event.Name] = now
			}
			if ingestSpecFile(a, event.Name) {
				if err := a.persist(); err != nil {
					fmt.Printf("Warning: %v\n", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return a.persist()
			}
			fmt.Printf("Warning: watch error: %v\n", err)
		}
	}
}

// ingestSpecFile enqueues the feature specs in a YAML file and marks the
// file done. Returns true if anything was enqueued.
func ingestSpecFile(a *app, path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return false
	}

	specs, err := loadFeatureSpecs(path)
	if err != nil {
		fmt.Printf("Skipping %s: %v\n", path, err)
		return false
	}

	enqueued := 0
	for _, spec := range specs {
		id, err := a.coord.EnqueueFeature(spec.toFeature())
		if err != nil {
			fmt.Printf("Skipping %q from %s: %v\n", spec.Name, path, err)
			continue
		}
		fmt.Printf("Enqueued %s: %q\n", id, spec.Name)
		enqueued++
	}

	if enqueued > 0 {
		if err := os.Rename(path, path+".done"); err != nil {
			fmt.Printf("Warning: could not mark %s done: %v\n", path, err)
		}
	}
	return enqueued > 0
}
