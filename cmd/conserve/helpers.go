package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/monitor"
	"github.com/fenilsonani/conserve/pkg/conserve"
)

var logger zerolog.Logger

const timeRounding = 10 * time.Millisecond

// openArchive opens the archive at a local path.
func openArchive(path string) (*conserve.Archive, error) {
	return conserve.OpenArchivePath(path)
}

// excludesFromFlags combines --exclude patterns and --exclude-from
// files into one exclusion set.
func excludesFromFlags() (exclude.Exclude, error) {
	patterns := append([]string(nil), flagExclude...)
	for _, file := range flagExcludeFrom {
		data, err := os.ReadFile(file)
		if err != nil {
			return exclude.Nothing(), fmt.Errorf("read exclude file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
	}
	return exclude.FromPatterns(patterns)
}

// cliMonitor routes operation errors and task progress to the logger.
type cliMonitor struct{}

func newMonitor() monitor.Monitor {
	return cliMonitor{}
}

func (cliMonitor) Count(monitor.Counter, int) {}

func (cliMonitor) Error(err error) {
	logger.Warn().Msg(err.Error())
}

type cliTask struct {
	name string
}

func (cliMonitor) StartTask(name string) monitor.Task {
	if !flagNoProgress {
		logger.Info().Str("task", name).Msg("start")
	}
	return &cliTask{name: name}
}

func (t *cliTask) Increment(int) {}
func (t *cliTask) SetTotal(int)  {}
func (t *cliTask) Done() {
	if !flagNoProgress {
		logger.Info().Str("task", t.name).Msg("done")
	}
}

// printBackupStats reports what a backup did, unless --no-stats.
func printBackupStats(s *conserve.BackupStats) {
	if flagNoStats {
		return
	}
	fmt.Printf("Backup complete: %s\n", s.BandId)
	fmt.Printf("  files: %d new, %d modified, %d unchanged\n", s.NewFiles, s.ModifiedFiles, s.UnchangedFiles)
	fmt.Printf("  blocks: %d written (%s), %d deduplicated (%s)\n",
		s.WrittenBlocks, humanize.Bytes(s.CompressedBytes),
		s.DeduplicatedBlocks, humanize.Bytes(s.DeduplicatedBytes))
	if s.SkippedErrors > 0 {
		fmt.Printf("  skipped: %d entries with errors\n", s.SkippedErrors)
	}
	fmt.Printf("  elapsed: %s\n", s.Elapsed.Round(timeRounding))
}

func printRestoreStats(s *conserve.RestoreStats) {
	if flagNoStats {
		return
	}
	fmt.Printf("Restore complete: %d files, %d dirs, %d symlinks\n", s.Files, s.Dirs, s.Symlinks)
	if s.SkippedErrors > 0 {
		fmt.Printf("  skipped: %d entries with errors\n", s.SkippedErrors)
	}
	fmt.Printf("  elapsed: %s\n", s.Elapsed.Round(timeRounding))
}

func printDeleteStats(s *conserve.DeleteStats) {
	if flagNoStats {
		return
	}
	fmt.Printf("  unreferenced blocks: %d (%s)\n",
		s.UnreferencedBlockCount, humanize.Bytes(s.UnreferencedBlockBytes))
	fmt.Printf("  deleted: %d bands, %d blocks\n", s.DeletedBandCount, s.DeletedBlockCount)
	if s.DeletionErrors > 0 {
		fmt.Printf("  deletion errors: %d\n", s.DeletionErrors)
	}
	fmt.Printf("  elapsed: %s\n", s.Elapsed.Round(timeRounding))
}
