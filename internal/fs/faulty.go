package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is returned by FaultyFS when a fault has no explicit error.
var ErrInjected = errors.New("fs: injected fault")

// Unlimited disables a Fault's write budget.
const Unlimited = -1

// Fault describes how files matching a pattern misbehave.
type Fault struct {
	// WriteBudget is the number of bytes the file accepts before writes
	// fail. The count survives reopening the same path. Unlimited disables it.
	WriteBudget int64
	// Torn lets the write that crosses the budget store its leading bytes.
	Torn         bool
	FailSync     bool
	FailTruncate bool
	FailClose    bool
	Err          error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// FaultyFS wraps a FileSystem and injects faults into files whose path
// contains a registered pattern. Faults are evaluated on every operation,
// so Heal takes effect on open files.
type FaultyFS struct {
	FileSystem

	mu      sync.Mutex
	faults  map[string]Fault
	written map[string]int64
}

// NewFaultyFS wraps inner, or Default when inner is nil.
func NewFaultyFS(inner FileSystem) *FaultyFS {
	if inner == nil {
		inner = Default
	}
	return &FaultyFS{
		FileSystem: inner,
		faults:     make(map[string]Fault),
		written:    make(map[string]int64),
	}
}

// Inject registers a fault for every path containing pattern.
func (f *FaultyFS) Inject(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[pattern] = fault
}

// Heal removes all faults. Write counters are kept.
func (f *FaultyFS) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.faults)
}

// Written returns the bytes written to name through this filesystem.
func (f *FaultyFS) Written(name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written[name]
}

func (f *FaultyFS) lookup(name string) (Fault, bool) {
	for pattern, fault := range f.faults {
		if strings.Contains(name, pattern) {
			return fault, true
		}
	}
	return Fault{}, false
}

func (f *FaultyFS) fault(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookup(name)
}

// OpenFile opens name through the wrapped filesystem.
func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FileSystem.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, fs: f, name: name}, nil
}

// Truncate fails for paths with FailTruncate set.
func (f *FaultyFS) Truncate(name string, size int64) error {
	if fault, ok := f.fault(name); ok && fault.FailTruncate {
		return fault.err()
	}
	return f.FileSystem.Truncate(name, size)
}

// reserve accounts n bytes against name's budget and returns how many may
// be written. A non-nil error means the write must fail after writing
// the returned prefix.
func (f *FaultyFS) reserve(name string, n int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	used := f.written[name]
	fault, ok := f.lookup(name)
	if !ok || fault.WriteBudget < 0 || used+int64(n) <= fault.WriteBudget {
		f.written[name] = used + int64(n)
		return n, nil
	}
	room := 0
	if fault.Torn && fault.WriteBudget > used {
		room = int(fault.WriteBudget - used)
	}
	f.written[name] = used + int64(room)
	return room, fault.err()
}

type faultyFile struct {
	File
	fs   *FaultyFS
	name string
}

func (ff *faultyFile) WriteAt(p []byte, off int64) (int, error) {
	allowed, ferr := ff.fs.reserve(ff.name, len(p))
	if ferr == nil {
		return ff.File.WriteAt(p, off)
	}
	if allowed > 0 {
		n, _ := ff.File.WriteAt(p[:allowed], off)
		return n, ferr
	}
	return 0, ferr
}

func (ff *faultyFile) Sync() error {
	if fault, ok := ff.fs.fault(ff.name); ok && fault.FailSync {
		return fault.err()
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Truncate(size int64) error {
	if fault, ok := ff.fs.fault(ff.name); ok && fault.FailTruncate {
		return fault.err()
	}
	return ff.File.Truncate(size)
}

func (ff *faultyFile) Close() error {
	if fault, ok := ff.fs.fault(ff.name); ok && fault.FailClose {
		_ = ff.File.Close()
		return fault.err()
	}
	return ff.File.Close()
}
