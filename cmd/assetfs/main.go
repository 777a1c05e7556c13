// Command assetfs mounts a virtual store, a host directory or a ZIP archive
// and serves its asset map over HTTP.
//
// Usage:
//
//	assetfs [command]
//
// Available Commands:
//
//	serve       Run the asset server
//	map         Print the asset map of a directory or ZIP archive
//	version     Version information
//
// Configuration is read from .env files and ASSETFS_* environment variables.
package main

func main() {
	Cmd()
}
