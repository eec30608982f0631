package testdata

import (
	"path/filepath"
	"runtime"
)

// basepath is the root directory of this package.
var basepath string

func init() {
	_, currentFile, _, _ := runtime.Caller(0)
	basepath = filepath.Dir(currentFile)
}

// Path returns the absolute path the given relative file or directory path,
// relative to this testdata/ directory in the user's GOPATH.
// If rel is already absolute, it is returned unmodified.
// Taken from https://github.com/grpc/grpc-go/blob/master/testdata/testdata.go.
func Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}

	return filepath.Join(basepath, rel)
}

// Trip_LondonParis is one trip, London to Paris in an hour, 213.7 mi.
// It has a duplicated location line, a location without speed,
// and a line of unknown type.
//
//	wc -l testing/testdata/trips/london_paris.ndjson
//	8
var Trip_LondonParis = "./trips/london_paris.ndjson"
