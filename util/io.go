package util

import (
	"io"

	"github.com/hashicorp/go-multierror"
)

/*
Closes all given objects and returns every close failure aggregated into
one error, or nil. Nil objects are skipped.
*/
func Close(objects ...io.Closer) error {
	var errs *multierror.Error
	for _, object := range objects {
		if object == nil {
			continue
		}
		if err := object.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

/*
Closes all given objects after priorErr occurred. If priorErr is not nil
it is returned with any close failures appended; otherwise the close
failures alone are returned.
*/
func CloseWhileHandlingError(priorErr error, objects ...io.Closer) error {
	err := Close(objects...)
	if priorErr == nil {
		return err
	}
	if err == nil {
		return priorErr
	}
	return multierror.Append(priorErr, err)
}

// Closes all given objects, ignoring any failure.
func CloseWhileSuppressingError(objects ...io.Closer) {
	for _, object := range objects {
		if object != nil {
			object.Close()
		}
	}
}

type FileRemover interface {
	Remove(name string) error
}

// Removes all given files, ignoring any failure.
func RemoveFilesIgnoringErrors(dir FileRemover, files ...string) {
	for _, name := range files {
		dir.Remove(name) // ignore error
	}
}
