package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/customuploader/internal/client/config"
	"github.com/dmitrijs2005/customuploader/internal/cryptox"
	"github.com/dmitrijs2005/customuploader/internal/filex"
	"github.com/dmitrijs2005/customuploader/internal/logging"
	"github.com/dmitrijs2005/customuploader/internal/shared"
)

// appFactory is a test seam for NewApp.
var appFactory = NewApp

// session carries what the persistent pre-run resolved to the subcommands.
type session struct {
	cfgPath string
	cfg     *config.Config
	logger  logging.Logger
}

func (s *session) load(cmd *cobra.Command) error {
	flagPath, err := cmd.Flags().GetString(config.FlagConfig)
	if err != nil {
		return err
	}
	s.cfgPath, _ = config.ResolvePath(flagPath)

	cfg, err := config.LoadConfig(flagPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.cfg = cfg
	s.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	return nil
}

// withApp builds the full upload stack for one command and closes it after.
func (s *session) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *App) error) error {
	ctx := cmd.Context()
	a, err := appFactory(ctx, s.cfg, s.logger, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			s.logger.Warn(ctx, "closing history", "error", cerr)
		}
	}()
	return fn(ctx, a)
}

// configOnly is an App that can only show and select profiles.
func (s *session) configOnly(cmd *cobra.Command) *App {
	return &App{config: s.cfg, logger: s.logger, in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
}

// editFile loads the config file alone, lets fn change it and saves it back.
func (s *session) editFile(fn func(c *config.Config) error) error {
	if s.cfgPath == "" {
		return errors.New("no config file location, pass --config")
	}
	c, err := config.ReadFile(s.cfgPath)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return c.Save(s.cfgPath)
}

// NewRootCommand creates the cupload command tree.
func NewRootCommand(version string) *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:           config.AppName + " [flags] command",
		Short:         "Upload text and files to custom HTTP endpoints",
		Long:          "cupload sends text and files to user-defined upload endpoints described by\nShareX-compatible uploader profiles, optionally encrypting the payload first.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.load(cmd)
		},
	}

	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newTextCommand(s),
		newFileCommand(s),
		newProfilesCommand(s),
		newHistoryCommand(s),
		newDecryptCommand(),
		newShellCommand(s),
	)

	return root
}

func newTextCommand(s *session) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "text [TEXT...]",
		Short: "Upload text given as arguments or read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.UploadText(ctx, strings.Join(args, " "), name)
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "text.txt", "file name reported to the endpoint")

	return cmd
}

func newFileCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:     "file PATH...",
		Aliases: []string{"files"},
		Short:   "Upload one or more files",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.UploadFiles(ctx, args)
			})
		},
	}
}

func newProfilesCommand(s *session) *cobra.Command {
	list := func(cmd *cobra.Command, _ []string) error {
		return s.configOnly(cmd).ListProfiles(cmd.Context())
	}

	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"p"},
		Short:   "Manage uploader profiles",
		Args:    cobra.NoArgs,
		RunE:    list,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List uploader profiles",
			Args:    cobra.NoArgs,
			RunE:    list,
		},
		&cobra.Command{
			Use:   "import FILE.sxcu...",
			Short: "Import ShareX custom uploader files into the config file",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return s.editFile(func(c *config.Config) error {
					for _, path := range args {
						p, err := config.ImportSXCU(path)
						if err != nil {
							return err
						}
						c.AddUploader(*p)
						fmt.Fprintf(cmd.OutOrStdout(), "Imported %q\n", p.Name)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "use NAME|INDEX",
			Short: "Make a profile the default in the config file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return s.editFile(func(c *config.Config) error {
					p, err := c.SelectProfile(args[0])
					if err != nil {
						return err
					}
					c.SelectedUploader = p.Name
					fmt.Fprintf(cmd.OutOrStdout(), "Default uploader is now %q\n", p.Name)
					return nil
				})
			},
		},
	)

	return cmd
}

func newHistoryCommand(s *session) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"h"},
		Short:   "Show recent uploads",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.History(ctx, limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries, 0 for all")

	cmd.AddCommand(&cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a history entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.DeleteHistory(ctx, args[0])
			})
		},
	})

	return cmd
}

// errKeyRequiredForStdin is returned when the key prompt and the ciphertext
// would both come from stdin.
var errKeyRequiredForStdin = errors.New("--key is required when INPUT is -")

// newDecryptCommand opens a payload produced by an encrypted upload. It
// needs no configuration, so it replaces the persistent pre-run.
func newDecryptCommand() *cobra.Command {
	var keyHex string

	cmd := &cobra.Command{
		Use:   "decrypt INPUT [OUTPUT]",
		Short: "Decrypt a downloaded encrypted upload",
		Long:  "Decrypt a downloaded encrypted upload with the hex key printed at upload time.\nINPUT may be - for stdin; without OUTPUT the plaintext goes to stdout.",
		Args:  cobra.RangeArgs(1, 2),
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			key := keyHex
			if key == "" {
				if args[0] == "-" {
					return errKeyRequiredForStdin
				}
				secret, err := GetSecret("Key", cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				key = strings.TrimSpace(string(secret))
				shared.WipeByteArray(secret)
			}

			var output string
			if len(args) == 2 {
				output = args[1]
			}
			return decryptFile(args[0], output, key, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&keyHex, "key", "k", "", "nonce and key as hex, prompted for when empty")

	return cmd
}

func decryptFile(input, output, keyHex string, stdin io.Reader, stdout io.Writer) error {
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = filex.ReadFile(input, 0)
	}
	if err != nil {
		return err
	}

	plain, err := cryptox.Decrypt(data, keyHex)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(plain)

	if output == "" {
		_, err = stdout.Write(plain)
		return err
	}

	if _, err := filex.EnsureParentDir(output); err != nil {
		return err
	}
	return os.WriteFile(output, plain, 0o600)
}

func newShellCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive upload shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *App) error {
				printlnFn("cupload shell (type 'help' for commands)")
				runREPL(ctx, a, a.currentProfile, bufio.NewScanner(cmd.InOrStdin()))
				return nil
			})
		},
	}
}

// Execute runs the command line and returns the process exit code. Failed
// uploads have already been reported on stdout, so only other errors are
// printed.
func Execute(ctx context.Context, version string, args []string) int {
	root := NewRootCommand(version)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, errUploadFailed) {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return 1
}
