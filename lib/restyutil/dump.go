// Package restyutil dumps the http exchanges of a resty client, it is used
// to debug scrapers against a live site.
package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// Output receives one formatted exchange per request.
type Output interface {
	Write(id string, contents string)
}

// DirectoryOutput writes every exchange to its own file.
type DirectoryOutput struct {
	directory string
}

// NewDirectoryOutput empties (or creates) dir.
func NewDirectoryOutput(dir string) (DirectoryOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return DirectoryOutput{}, err
	}
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return DirectoryOutput{}, err
	}
	return DirectoryOutput{directory: dir}, nil
}

func (o DirectoryOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http dump", "id", id, "err", err)
	}
}

// MemoryOutput keeps the exchanges in memory.
type MemoryOutput struct {
	mutex    sync.Mutex
	Contents map[string]string
}

func (o *MemoryOutput) Write(id string, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.Contents == nil {
		o.Contents = make(map[string]string)
	}
	o.Contents[id] = contents
}

// Dump writes every completed exchange of client to output. The form fields
// named in redact are blanked in request bodies. A nil output is a no-op.
func Dump(client *resty.Client, output Output, redact ...string) {
	if output == nil {
		return
	}

	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		n := atomic.AddUint64(&counter, 1)
		id := fmt.Sprintf("%04d-%s", n, strings.ToLower(res.Request.Method))
		output.Write(id, formatExchange(res, redact))
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		n := atomic.AddUint64(&counter, 1)
		id := fmt.Sprintf("%04d-%s-error", n, strings.ToLower(req.Method))
		output.Write(id, fmt.Sprintf("%s %s\n\n%s", req.Method, req.URL, err.Error()))
	})
}
