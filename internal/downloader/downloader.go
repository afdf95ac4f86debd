package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/spf13/afero"

	"github.com/nse-datasync/extranet-sync/internal/extranet"
	"github.com/nse-datasync/extranet-sync/internal/organizer"
)

const (
	StatusDownloaded        = "downloaded"
	StatusAlreadyDownloaded = "already_downloaded"
	StatusFailed            = "failed"
)

// fetcher streams one remote file's bytes into dst.
type fetcher interface {
	Download(ctx context.Context, segment, folderPath, filename, date string, dst io.Writer) (int64, error)
}

// ledger answers idempotence queries and records completed downloads.
type ledger interface {
	IsDownloaded(fileID, segment string) (bool, error)
	RecordDownload(fileID, fileName, segment, filePath string, fileSize int64, checksum string) error
}

// Result describes the outcome of one file fetch. Size is the byte count
// received over the wire, so an idempotent skip reports zero.
type Result struct {
	Success  bool
	Status   string
	FileName string
	FilePath string
	Size     int64
	Checksum string
	Error    string
}

// Engine fetches individual files: ledger short-circuit, streaming to a
// temp file, gzip expansion and checksum over the final artifact. Partial
// downloads never land under a final name.
type Engine struct {
	fs        afero.Fs
	ledger    ledger
	fetcher   fetcher
	organizer *organizer.Organizer
}

func NewEngine(fs afero.Fs, ledger ledger, fetcher fetcher, organizer *organizer.Organizer) *Engine {
	return &Engine{fs: fs, ledger: ledger, fetcher: fetcher, organizer: organizer}
}

// Fetch downloads a single file into its date directory. Errors are folded
// into the Result rather than returned; one bad file must not abort the
// segment sweep.
func (e *Engine) Fetch(ctx context.Context, segment string, file extranet.FileRecord) Result {
	if file.Name == "" {
		return failed("unknown", "invalid file info")
	}

	done, err := e.ledger.IsDownloaded(file.ID, segment)
	if err != nil {
		slog.Error("Ledger lookup failed", "file", file.Name, "error", err)
	}
	if done {
		slog.Debug("File already downloaded, skipping", "file", file.Name, "segment", segment)
		return Result{Success: true, Status: StatusAlreadyDownloaded, FileName: file.Name}
	}

	targetDir, err := e.organizer.TargetDir(segment, file.Name)
	if err != nil {
		return failed(file.Name, err.Error())
	}

	slog.Info("Downloading file", "file", file.Name, "segment", segment)

	tempPath := filepath.Join(targetDir, file.Name+".tmp")
	size, err := e.streamToTemp(ctx, segment, file, tempPath)
	if err != nil {
		e.removeQuietly(tempPath)
		return failed(file.Name, err.Error())
	}

	finalPath, err := e.materialize(tempPath, targetDir, file.Name)
	if err != nil {
		e.removeQuietly(tempPath)
		return failed(file.Name, err.Error())
	}

	checksum, err := fileChecksum(e.fs, finalPath)
	if err != nil {
		slog.Error("Checksum failed", "file", file.Name, "error", err)
	}

	if err := e.ledger.RecordDownload(file.ID, file.Name, segment, finalPath, size, checksum); err != nil {
		slog.Error("Failed to record download", "file", file.Name, "error", err)
	}

	slog.Info("Download completed", "file", file.Name, "bytes", size, "path", finalPath)
	return Result{
		Success:  true,
		Status:   StatusDownloaded,
		FileName: file.Name,
		FilePath: finalPath,
		Size:     size,
		Checksum: checksum,
	}
}

func (e *Engine) streamToTemp(ctx context.Context, segment string, file extranet.FileRecord, tempPath string) (int64, error) {
	temp, err := e.fs.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	date := organizer.DownloadDate(file.Name)
	size, err := e.fetcher.Download(ctx, segment, file.FolderPath, file.Name, date, temp)
	if closeErr := temp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close temp file: %w", closeErr)
	}
	if err != nil {
		return 0, err
	}
	return size, nil
}

// materialize promotes the temp file to its final name. Gzip files are
// expanded to a sibling without the .gz suffix; if expansion fails the
// compressed artifact is kept under its original name so nothing fetched
// is lost.
func (e *Engine) materialize(tempPath, targetDir, fileName string) (string, error) {
	finalPath := filepath.Join(targetDir, fileName)

	if !strings.HasSuffix(fileName, ".gz") {
		if err := e.fs.Rename(tempPath, finalPath); err != nil {
			return "", fmt.Errorf("promote temp file: %w", err)
		}
		return finalPath, nil
	}

	expandedPath := filepath.Join(targetDir, strings.TrimSuffix(fileName, ".gz"))
	if err := e.decompress(tempPath, expandedPath); err != nil {
		slog.Warn("Could not decompress, keeping compressed file", "file", fileName, "error", err)
		if renameErr := e.fs.Rename(tempPath, finalPath); renameErr != nil {
			return "", fmt.Errorf("keep compressed file: %w", renameErr)
		}
		return finalPath, nil
	}

	e.removeQuietly(tempPath)
	slog.Info("Decompressed file", "from", fileName, "to", filepath.Base(expandedPath))
	return expandedPath, nil
}

func (e *Engine) decompress(srcPath, dstPath string) error {
	src, err := e.fs.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open compressed file: %w", err)
	}
	defer src.Close()

	reader, err := archives.Gz{}.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer reader.Close()

	dst, err := e.fs.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create decompressed file: %w", err)
	}

	if _, err := io.Copy(dst, reader); err != nil {
		dst.Close()
		e.removeQuietly(dstPath)
		return fmt.Errorf("decompress: %w", err)
	}
	return dst.Close()
}

func (e *Engine) removeQuietly(path string) {
	if err := e.fs.Remove(path); err != nil {
		slog.Debug("Could not remove file", "path", path, "error", err)
	}
}

func failed(fileName, reason string) Result {
	return Result{Status: StatusFailed, FileName: fileName, Error: reason}
}
