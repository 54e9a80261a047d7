// Package taskfile parses the project's tasks.star file and executes the
// tasks it declares. Task commands are run with a built-in POSIX shell
// interpreter which behaves the same on every platform.
package taskfile
