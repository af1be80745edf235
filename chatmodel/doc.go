// Package chatmodel defines the values shared by agents and teams:
// error kinds, output parsers and the per-resolution run context.
package chatmodel
