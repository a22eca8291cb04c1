package planner

import "golang.org/x/sys/unix"

// UnixMetaProvider resolves FileMeta via golang.org/x/sys/unix.Stat,
// exposing st_dev/st_ino/st_blksize for the Block and Inode sort
// strategies.
type UnixMetaProvider struct{}

func (UnixMetaProvider) Stat(path string) (FileMeta, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return FileMeta{}, err
	}
	return FileMeta{
		DeviceID:  uint64(st.Dev),
		Inode:     st.Ino,
		BlockSize: uint64(st.Blksize),
	}, nil
}
