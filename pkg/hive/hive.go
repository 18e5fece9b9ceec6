package hive

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hivetap/hivetap/internal/reader"
	"github.com/hivetap/hivetap/internal/replay"
	"github.com/hivetap/hivetap/pkg/types"
)

// Open maps the hive at path and returns a read-only Reader over it. The
// image is used as-is; use OpenWithLogs when the hive may be dirty.
func Open(path string, opts OpenOptions) (Reader, error) {
	return reader.Open(path, opts)
}

// OpenBytes returns a Reader over an in-memory hive image.
func OpenBytes(buf []byte, opts OpenOptions) (Reader, error) {
	return reader.OpenBytes(buf, opts)
}

// OpenWithLogs reads the hive at path, replays the transaction logs at
// log1Path and log2Path (either may be ""), and returns a Reader over the
// resulting image. The replay outcome is available from Reader.ReplayReport
// whether or not any log applied; log problems degrade the result rather
// than failing the open.
func OpenWithLogs(path, log1Path, log2Path string, opts OpenOptions) (Reader, error) {
	return OpenWithLogsLogger(path, log1Path, log2Path, opts, nil)
}

// OpenWithLogsLogger is OpenWithLogs with replay decisions logged to the
// given zap logger.
func OpenWithLogsLogger(path, log1Path, log2Path string, opts OpenOptions, logger *zap.Logger) (Reader, error) {
	base, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindIO, Msg: fmt.Sprintf("read hive %s", path), Err: err}
	}
	engine := replay.New(replay.Options{Logger: logger})
	image, report, err := engine.ApplyFiles(base, log1Path, log2Path)
	if err != nil {
		return nil, err
	}
	return reader.OpenReplayed(image, report, opts)
}

// OpenBytesWithLogs replays in-memory logs over an in-memory hive image.
// Nil or empty log slices are reported as unopened.
func OpenBytesWithLogs(base []byte, log1, log2 []byte, opts OpenOptions) (Reader, error) {
	engine := replay.New(replay.Options{})
	image, report, err := engine.Apply(base, log1, log2)
	if err != nil {
		return nil, err
	}
	return reader.OpenReplayed(image, report, opts)
}
