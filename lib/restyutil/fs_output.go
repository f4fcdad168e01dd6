package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// InstrumentOutput receives a fully formatted request/response pair.
type InstrumentOutput interface {
	Write(id string, contents string)
}

// FilesystemOutput writes every message into its own file under a directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears dir and prepares it for new messages.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}

// AttachOutput writes every response the client receives to output, named
// by the order they were received in.
func AttachOutput(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}
	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&idcounter, 1)
		output.Write(
			fmt.Sprintf("%03d_%s.txt", id, res.Request.Method),
			formatHttpMessage(res),
		)
		return nil
	})
}
