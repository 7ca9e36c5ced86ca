package logging

import (
	"os"
)

// LogFile is an append-only log file.
type LogFile interface {
	Append(content []byte) (err error)
	Close() error
}

// LogFileSystem creates log directories and opens log files for appending.
type LogFileSystem interface {
	MkDir(dirname string) error
	Open(name string) (f LogFile, err error)
}

// NewLogFileSystem returns the LogFileSystem backed by the local disk.
func NewLogFileSystem() LogFileSystem {
	return &logFileSystemImpl{}
}

type logFileImpl struct {
	f *os.File
}

func (lf *logFileImpl) Append(content []byte) (err error) {
	_, err = lf.f.Write(content)
	return
}

func (lf *logFileImpl) Close() error {
	return lf.f.Close()
}

type logFileSystemImpl struct{}

// MkDir creates the directory with any missing parents. An existing directory is not an error.
func (fs *logFileSystemImpl) MkDir(name string) error {
	return os.MkdirAll(name, 0755)
}

// Open opens the file for appending, creating it when missing.
func (fs *logFileSystemImpl) Open(name string) (LogFile, error) {
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &logFileImpl{f: f}, nil
}
