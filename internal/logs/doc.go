// Package logs tails the daemon and player log files.
//
// Last returns the final lines of a file with bounded memory, and Follow
// streams lines appended after an offset until its context ends. Follow
// wakes on fsnotify events for the file and restarts from the top when the
// file shrinks below the last offset.
package logs
