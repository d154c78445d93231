// Package fs is the filesystem seam of the volume backends.
//
// Backends open and truncate files through a [FileSystem]; production code
// uses [Default] ([LocalFS]) and tests substitute [FaultyFS] to simulate
// torn writes, failing fsyncs and failing truncates:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.Inject("users.db", fs.Fault{WriteBudget: 1024, Torn: true})
//	s, err := store.OpenFile(path, store.WithFileSystem(ffs))
//
// Calls take no context.Context; local file operations cannot be
// interrupted at the syscall level.
package fs
