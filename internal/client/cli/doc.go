// Package cli provides the cupload command line.
//
// NewRootCommand wires configuration (file, environment and flags), the
// upload service and the SQLite history log into cobra subcommands:
//
//	text [TEXT...]        upload text, read from stdin when no arguments
//	file PATH...          upload files, several at once as a batch
//	profiles [list]       list uploaders
//	profiles import FILE  import ShareX .sxcu files into the config file
//	profiles use NAME     change the default uploader
//	history [-n N]        show recent uploads
//	history delete ID     remove one entry
//	decrypt IN [OUT]      open an encrypted upload with its key
//	shell                 interactive loop over the same commands
//
// The shell is driven by runREPL, which only depends on execIface so it can
// be exercised without network or storage.
package cli
