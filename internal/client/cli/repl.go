package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	UploadText(ctx context.Context, text, fileName string) error
	UploadFiles(ctx context.Context, paths []string) error
	ListProfiles(ctx context.Context) error
	UseProfile(ctx context.Context, name string) error
	History(ctx context.Context, limit int) error
	DeleteHistory(ctx context.Context, id string) error
}

const shellHelp = `Available commands:
  text <words...>    upload the rest of the line as text
  file <paths...>    upload files
  (p)rofiles         list uploaders
  use <name|index>   switch uploader
  (h)istory [n]      show the last n uploads
  forget <id>        delete a history entry
  exit | quit        leave the shell`

// runREPL starts a read–eval–print loop over the upload commands.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The prompt shows the active
// uploader (from statusFn). The loop exits on scanner EOF or when the user
// types "exit" or "quit".
//
// Handler errors are printed and the loop goes on, so a failed upload does
// not end the session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("cupload (%s) > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(shellHelp)

		case "text":
			if len(args) == 0 {
				printlnFn("Usage: text <words...>")
				continue
			}
			err = a.UploadText(ctx, strings.Join(args, " "), "text.txt")

		case "file":
			if len(args) == 0 {
				printlnFn("Usage: file <paths...>")
				continue
			}
			err = a.UploadFiles(ctx, args)

		case "p", "profiles":
			err = a.ListProfiles(ctx)

		case "use":
			if len(args) != 1 {
				printlnFn("Usage: use <name|index>")
				continue
			}
			err = a.UseProfile(ctx, args[0])

		case "h", "history":
			limit := 20
			if len(args) > 0 {
				n, perr := strconv.Atoi(args[0])
				if perr != nil || n < 0 {
					printlnFn("Usage: history [n]")
					continue
				}
				limit = n
			}
			err = a.History(ctx, limit)

		case "forget":
			if len(args) != 1 {
				printlnFn("Usage: forget <id>")
				continue
			}
			err = a.DeleteHistory(ctx, args[0])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
