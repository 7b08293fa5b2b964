package assets

import (
	"fmt"
	"sync"
	"time"

	"github.com/bep/godartsass/v2"
)

// Compiler turns SCSS source into compressed CSS.
type Compiler interface {
	Compile(source string, includePaths []string) (string, error)
	Close() error
}

// DefaultSassBinary is the Dart Sass executable looked up on PATH.
const DefaultSassBinary = "sass"

// DartSass compiles through an embedded Dart Sass process. The process is
// started on first use and stays up until Close.
type DartSass struct {
	binary  string
	timeout time.Duration

	mu         sync.Mutex
	transpiler *godartsass.Transpiler
}

// NewDartSass creates a compiler using the given Dart Sass binary.
func NewDartSass(binary string, timeout time.Duration) *DartSass {
	if binary == "" {
		binary = DefaultSassBinary
	}
	return &DartSass{binary: binary, timeout: timeout}
}

// Compile compiles SCSS source, resolving imports against includePaths.
func (d *DartSass) Compile(source string, includePaths []string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transpiler == nil {
		t, err := godartsass.Start(godartsass.Options{
			DartSassEmbeddedFilename: d.binary,
			Timeout:                  d.timeout,
		})
		if err != nil {
			return "", fmt.Errorf("starting dart sass: %w", err)
		}
		d.transpiler = t
	}

	res, err := d.transpiler.Execute(godartsass.Args{
		Source:       source,
		OutputStyle:  godartsass.OutputStyleCompressed,
		SourceSyntax: godartsass.SourceSyntaxSCSS,
		IncludePaths: includePaths,
	})
	if err != nil {
		return "", fmt.Errorf("compiling scss: %w", err)
	}
	return res.CSS, nil
}

// Close stops the Dart Sass process if it was started.
func (d *DartSass) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transpiler == nil {
		return nil
	}
	err := d.transpiler.Close()
	d.transpiler = nil
	return err
}
