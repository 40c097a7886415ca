// Command qfsrecompress rewrites DBPF v1 archives in place, recompressing
// (or decompressing) member resources with the QFS/Refpack codec. Grounded
// on the teacher's examples/file_compressor.go flag handling, trimmed to
// the single -d flag this tool's external interface calls for.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/qfstools/dbpfrecompress/dbpf"
	"github.com/qfstools/dbpfrecompress/internal/xlog"
	"github.com/qfstools/dbpfrecompress/pipeline"
)

var decompress bool

func init() {
	flag.BoolVar(&decompress, "d", false, "decompress mode: strip compression instead of applying it")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "qfsrecompress rewrites DBPF archives in place.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [-d] path [path...]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	if flag.NArg() == 0 || flag.Arg(0) == "help" {
		flag.Usage()
		os.Exit(0)
	}

	op := dbpf.OpCompress
	if decompress {
		op = dbpf.OpDecompress
	}

	opt := pipeline.Options{Op: op, Logger: xlog.Default}

	for _, root := range flag.Args() {
		files, err := pipeline.Walk(root)
		if err != nil {
			xlog.Default.Errorf("%s: %v", root, err)
			continue
		}
		for _, path := range files {
			res := pipeline.RewriteFile(path, opt)
			if res.Err != nil {
				xlog.Default.Errorf("%s: %v", path, res.Err)
			}
		}
	}

	os.Exit(0)
}
