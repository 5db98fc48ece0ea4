//go:build unix

package workdir

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func checkOwner(path string, _ os.FileInfo) error {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsafeDirectory, path, err)
	}
	if uid := uint32(unix.Getuid()); st.Uid != uid {
		return fmt.Errorf("%w: %s is owned by uid %d, not %d", ErrUnsafeDirectory, path, st.Uid, uid)
	}
	return nil
}
