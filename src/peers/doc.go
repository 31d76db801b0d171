// Package peers defines the static peer table of a mesh node.
//
// A peer is a named participant of the mesh, identified by its hostname and
// reachable at a configured address. The table of peers is loaded once, at
// startup, from a JSON object mapping hostnames to addresses:
//
//	{
//	    "_comment": "lab mesh",
//	    "A": "10.0.0.1",
//	    "B": "10.0.0.2"
//	}
//
// The order of the keys in the file is significant: every peer listens on
// BasePort plus its position in the table, so all nodes sharing the same file
// agree on every port without further coordination. Keys starting with an
// underscore are metadata; they are skipped and take no position.
package peers
