package testutil

import (
	"os"
	"path"
	"sync"

	"github.com/spf13/afero"
)

// GatedFs wraps a filesystem and holds every open of files named name until
// Open is called, so a test can look at state while a walk is in flight.
type GatedFs struct {
	afero.Fs
	name string

	entered     chan struct{}
	release     chan struct{}
	enterOnce   sync.Once
	releaseOnce sync.Once
}

func NewGatedFs(fs afero.Fs, name string) *GatedFs {
	return &GatedFs{
		Fs:      fs,
		name:    name,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

// Entered is closed once a gated file has been opened.
func (g *GatedFs) Entered() <-chan struct{} { return g.entered }

// Lift lets held and future opens through.
func (g *GatedFs) Lift() { g.releaseOnce.Do(func() { close(g.release) }) }

func (g *GatedFs) wait(name string) {
	if path.Base(name) != g.name {
		return
	}
	g.enterOnce.Do(func() { close(g.entered) })
	<-g.release
}

func (g *GatedFs) Open(name string) (afero.File, error) {
	g.wait(name)
	return g.Fs.Open(name)
}

func (g *GatedFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	g.wait(name)
	return g.Fs.OpenFile(name, flag, perm)
}
