// Package cli implements the interactive MegaVault command line client.
//
// The REPL reads one command per line:
//
//	login                    authenticate (prompts for email and password)
//	ls [prefix]              list files
//	put <local> [key]        upload a file through the multipart routes
//	get <key> <local>        download a file
//	rm <key>                 delete a file
//	share <key>              make a file public and print its public URL
//	unshare <key>            make a file private
//	logout                   end the session
//	help                     show available commands
//	exit | quit              leave the program
//
// Keys may be typed relative to the user's folder; the folder prefix
// reported by the server after login is added when missing.
package cli
