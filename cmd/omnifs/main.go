// Command omnifs is the OmniFS command line client.
//
// Authentication is per invocation: pass -user and -password to log in, run
// one operation and log out, or pass -session to reuse a token from a
// previous "login" invocation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fileverse/omnifs/pkg/client"
	"github.com/fileverse/omnifs/pkg/protocol"
)

const usageText = `Usage: omnifs [flags] <operation> [args...]

Operations:
  login                         Print a session token for later invocations
  logout                        Invalidate the session token
  ls <path>                     List a directory
  mkdir <path>                  Create a directory
  create <path> <data>          Create a file with content
  cat <path>                    Print a file's content
  edit <path> <data> <index>    Write data at a byte offset
  rm <path>                     Delete a file
  rmdir <path>                  Delete an empty directory
  mv <path> <new-path>          Rename a file or directory
  truncate <path>               Discard a file's content
  stat <path>                   Print an entry's metadata
  chmod <path> <octal-mode>     Set an entry's permission bits
  useradd <name> <pass> <role>  Create a user (role 0 normal, 1 admin)
  userdel <name>                Delete a user
  users                         List users
  info                          Print capacity and entry counts
  whoami                        Print the session's identity
  shutdown                      Stop the server
  format                        Wipe the filesystem and user table

Flags:
`

func main() {
	addr := flag.String("addr", "127.0.0.1:9300", "Server address")
	user := flag.String("user", "", "Username to log in with")
	password := flag.String("password", "", "Password to log in with")
	sessionID := flag.String("session", "", "Existing session token (skips login)")
	framing := flag.String("framing", "length", "Message framing: length or scan")
	timeout := flag.Duration("timeout", client.DefaultTimeout, "Per-call timeout")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	mode, err := protocol.ParseFramingMode(*framing)
	if err != nil {
		fail("%v", err)
	}

	conn := client.New(client.Config{
		Address: *addr,
		Timeout: *timeout,
		Framing: mode,
	})
	ctx := context.Background()

	sess, transient, err := openSession(ctx, conn, *sessionID, *user, *password)
	if err != nil {
		fail("login failed: %v", err)
	}

	op, opArgs := args[0], args[1:]

	if op == "login" {
		// The token is the whole point; keep it alive.
		fmt.Println(sess.ID())
		return
	}

	err = runOperation(ctx, sess, op, opArgs)

	// A transient session is cleaned up unless the operation already killed
	// it server-side.
	if transient && op != "logout" && op != "format" && op != "shutdown" {
		if logoutErr := sess.Logout(ctx); logoutErr != nil && err == nil {
			err = logoutErr
		}
	}

	if err != nil {
		if ce, ok := client.AsError(err); ok {
			fail("%s (code %d)", ce.Message, ce.Code)
		}
		fail("%v", err)
	}
}

// openSession resolves the authentication flags into a bound session. The
// second return value reports whether this invocation created the session and
// should tear it down.
func openSession(ctx context.Context, conn *client.Connector, sessionID, user, password string) (*client.Session, bool, error) {
	if sessionID != "" {
		return client.Resume(conn, sessionID), false, nil
	}
	if user == "" {
		return nil, false, fmt.Errorf("either -session or -user/-password is required")
	}
	sess, err := client.Login(ctx, conn, user, password)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

func runOperation(ctx context.Context, sess *client.Session, op string, args []string) error {
	switch op {
	case "logout":
		return sess.Logout(ctx)

	case "ls":
		path := oneArg(args, "ls <path>")
		entries, err := sess.ListDirectory(ctx, path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			kind := "file"
			if e.Type == protocol.EntryTypeDirectory {
				kind = "dir"
			}
			fmt.Printf("%-4s %#o %-12s %8d  %s\n", kind, e.Permissions, e.Owner, e.Size, e.Name)
		}
		return nil

	case "mkdir":
		return sess.CreateDirectory(ctx, oneArg(args, "mkdir <path>"))

	case "create":
		path, data := twoArgs(args, "create <path> <data>")
		return sess.CreateFile(ctx, path, data)

	case "cat":
		content, err := sess.ReadFile(ctx, oneArg(args, "cat <path>"))
		if err != nil {
			return err
		}
		fmt.Print(content)
		return nil

	case "edit":
		if len(args) != 3 {
			fail("usage: edit <path> <data> <index>")
		}
		index, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			fail("invalid index %q", args[2])
		}
		return sess.EditFile(ctx, args[0], args[1], index)

	case "rm":
		return sess.DeleteFile(ctx, oneArg(args, "rm <path>"))

	case "rmdir":
		return sess.DeleteDirectory(ctx, oneArg(args, "rmdir <path>"))

	case "mv":
		path, newPath := twoArgs(args, "mv <path> <new-path>")
		return sess.Rename(ctx, path, newPath)

	case "truncate":
		return sess.TruncateFile(ctx, oneArg(args, "truncate <path>"))

	case "stat":
		meta, err := sess.GetMetadata(ctx, oneArg(args, "stat <path>"))
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"path":        meta.Path,
			"type":        meta.Type,
			"size":        meta.Size,
			"owner":       meta.Owner,
			"permissions": fmt.Sprintf("%#o", meta.Permissions),
			"created_at":  time.Unix(meta.CreatedAt, 0).Format(time.RFC3339),
			"modified_at": time.Unix(meta.ModifiedAt, 0).Format(time.RFC3339),
		})

	case "chmod":
		path, modeStr := twoArgs(args, "chmod <path> <octal-mode>")
		mode, err := strconv.ParseUint(modeStr, 8, 32)
		if err != nil {
			fail("invalid mode %q", modeStr)
		}
		return sess.SetPermissions(ctx, path, uint32(mode))

	case "useradd":
		if len(args) != 3 {
			fail("usage: useradd <name> <pass> <role>")
		}
		role, err := strconv.Atoi(args[2])
		if err != nil {
			fail("invalid role %q", args[2])
		}
		return sess.CreateUser(ctx, args[0], args[1], role)

	case "userdel":
		return sess.DeleteUser(ctx, oneArg(args, "userdel <name>"))

	case "users":
		users, err := sess.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			role := "normal"
			if u.Role == 1 {
				role = "admin"
			}
			state := "active"
			if !u.IsActive {
				state = "inactive"
			}
			fmt.Printf("%-16s %-8s %s\n", u.Username, role, state)
		}
		return nil

	case "info":
		info, err := sess.GetSystemInfo(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"total_size":        info.TotalSize,
			"used_space":        info.UsedSpace,
			"free_space":        info.FreeSpace,
			"total_files":       info.TotalFiles,
			"total_directories": info.TotalDirectories,
		})

	case "whoami":
		info, err := sess.GetSessionInfo(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"username":   info.Username,
			"role":       info.Role,
			"login_time": time.Unix(info.LoginTime, 0).Format(time.RFC3339),
		})

	case "shutdown":
		return sess.Shutdown(ctx)

	case "format":
		return sess.Format(ctx)

	default:
		fail("unknown operation %q (run with no arguments for usage)", op)
		return nil
	}
}

func oneArg(args []string, usage string) string {
	if len(args) != 1 {
		fail("usage: %s", usage)
	}
	return args[0]
}

func twoArgs(args []string, usage string) (string, string) {
	if len(args) != 2 {
		fail("usage: %s", usage)
	}
	return args[0], args[1]
}

func printJSON(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

func fail(format string, v ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}
