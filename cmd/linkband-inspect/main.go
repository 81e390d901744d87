package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/container"
)

var preview = flag.Int("preview", 0, "Print the first N records as JSON")

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: linkband-inspect [-preview N] file.bin ...")
		os.Exit(2)
	}

	exitCode := 0
	for _, path := range flag.Args() {
		if err := inspect(path, *preview); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

// inspect validates one container file and prints a one-line summary.
func inspect(path string, preview int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	r, err := container.NewReader(f)
	if err != nil {
		return err
	}
	hdr := r.Header()

	var (
		count       int64
		first, last uint64
	)
	for {
		s, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("after %d records: %w", count, err)
		}
		if count == 0 {
			first = s.Time()
		}
		last = s.Time()
		count++

		if count <= int64(preview) {
			line, err := json.Marshal(s)
			if err != nil {
				return fmt.Errorf("record %d: %w", count, err)
			}
			fmt.Println(string(line))
		}
	}

	created := time.UnixMilli(int64(hdr.CreatedAt)).UTC().Format(time.RFC3339)
	span := time.Duration(last-first) * time.Millisecond
	fmt.Printf("%s: %s v%d.%d, created %s, %d records, %s span, %d bytes\n",
		path, hdr.DataType, hdr.VersionMajor, hdr.VersionMinor, created, count, span, info.Size())
	return nil
}
