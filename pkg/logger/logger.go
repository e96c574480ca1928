package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// New returns a printf-style logger tagged with component, for libraries that
// only accept a Printf sink.
func New(component string) *log.Logger {
	return NewTo(os.Stderr, component)
}

// NewTo is New with an explicit destination.
func NewTo(w io.Writer, component string) *log.Logger {
	return log.New(w, fmt.Sprintf("[%s] ", component), log.LstdFlags|log.Lmsgprefix)
}
