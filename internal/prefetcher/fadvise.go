package prefetcher

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FadviseHinter opens the target file read-only, without a controlling
// terminal and without updating atime, then issues
// FADV_WILLNEED for the requested region via unix.Fadvise.
type FadviseHinter struct{}

func (FadviseHinter) Hint(path string, offset int64, length int) error {
	flags := unix.O_RDONLY | unix.O_NOCTTY | unix.O_NOATIME
	fd, err := unix.Open(path, flags, 0)
	if err != nil {
		// O_NOATIME is refused for files not owned by the caller on some
		// filesystems; retry without it rather than failing the hint.
		fd, err = unix.Open(path, unix.O_RDONLY|unix.O_NOCTTY, 0)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
	}
	defer unix.Close(fd)

	if err := unix.Fadvise(fd, offset, int64(length), unix.FADV_WILLNEED); err != nil {
		return fmt.Errorf("fadvise: %w", err)
	}
	return nil
}

var _ Hinter = FadviseHinter{}
