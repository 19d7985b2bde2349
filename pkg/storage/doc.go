// Package storage owns the artwork target directory.
//
// The Manager creates the directory, answers whether a file name is already
// present, and writes new files atomically through a temporary file and a
// rename, so an interrupted download never leaves a partial image behind to
// be mistaken for a finished one on the next run.
//
// All operations go through an afero.Fs; production code uses
// afero.NewOsFs and tests use afero.NewMemMapFs.
//
// Usage:
//
//	manager, err := storage.NewManager(afero.NewOsFs(), "data/da-vinci-works")
//	if err != nil {
//	    return err
//	}
//	if !manager.Exists("Mona-Lisa.jpg") {
//	    n, err := manager.Save(body, "Mona-Lisa.jpg")
//	}
package storage
