package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/flowchat/internal/client"
	"github.com/vovakirdan/flowchat/internal/log"
	"github.com/vovakirdan/flowchat/internal/proto"
)

var (
	host     string
	port     int
	network  string
	verbose  bool
	login    string
	password string
)

var rootCmd = &cobra.Command{
	Use:           "flowchat",
	Short:         "Command line client for a FlowProtocol server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// connect returns a worker that completed the HELLO handshake.
func connect(ctx context.Context) (*client.Worker, error) {
	cfg := client.DefaultConfig()
	cfg.Network = network
	level := "error"
	if verbose {
		level = "debug"
	}
	w := client.NewWorker(proto.NewParser(), cfg, log.New(level, os.Stderr))
	if err := w.Connect(ctx, host, port); err != nil {
		return nil, err
	}
	return w, nil
}

// session returns a connected and authenticated worker.
func session(ctx context.Context) (*client.Worker, error) {
	if login == "" || password == "" {
		return nil, errors.New("--login and --pass are required")
	}
	w, err := connect(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.Authenticate(ctx, login, password); err != nil {
		return nil, err
	}
	return w, nil
}

var helloCmd = &cobra.Command{
	Use:   "hello",
	Short: "Check that the server answers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := connect(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "server at %s:%d is up\n", host, port)
		return nil
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in with --login and --pass and print the session token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := session(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), w.SessionToken())
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Create an account with --login and --pass",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := login
		if len(args) == 1 {
			name = args[0]
		}
		w, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		if err := w.Register(cmd.Context(), login, password, name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", login)
		return nil
	},
}

// defaultTargetLang is used by translate when --to is not given.
const defaultTargetLang = "English"

var (
	sourceLang string
	targetLang string
)

var translateCmd = &cobra.Command{
	Use:   "translate <text>",
	Short: "Translate text between languages (--to defaults to English)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		target := targetLang
		if target == "" {
			target = defaultTargetLang
		}
		out, err := w.Translate(cmd.Context(), strings.Join(args, " "), sourceLang, target)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <recipient> <text>",
	Short: "Send a message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := session(cmd.Context())
		if err != nil {
			return err
		}
		res, err := w.SendMessage(cmd.Context(), args[0], strings.Join(args[1:], " "), sourceLang)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.ResponseMessage)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetch the next pending message",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := session(cmd.Context())
		if err != nil {
			return err
		}
		return printMessage(cmd.Context(), cmd.OutOrStdout(), w, targetLang)
	},
}

func printMessage(ctx context.Context, out io.Writer, w *client.Worker, mode string) error {
	if mode == "" {
		mode = proto.ModeDoNotTranslate
	}
	msg, err := w.GetMessage(ctx, mode)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (#%s): %s\n", msg.SenderName, msg.SenderID, msg.MessageBody)
	return nil
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session",
	Long: `Reads one command per line:

  login <login> <pass>
  register <login> <pass> [name]
  translate <src> <dst> <text>
  send <recipient> <text>
  get [language]
  quit`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		w, err := connect(ctx)
		if err != nil {
			return err
		}
		return runShell(ctx, w, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runShell(ctx context.Context, w *client.Worker, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch verb, args := fields[0], fields[1:]; {
		case verb == "quit" || verb == "exit":
			return nil
		case verb == "login" && len(args) == 2:
			if err = w.Authenticate(ctx, args[0], args[1]); err == nil {
				fmt.Fprintf(out, "signed in as %s\n", w.Login())
			}
		case verb == "register" && len(args) >= 2:
			name := args[0]
			if len(args) > 2 {
				name = strings.Join(args[2:], " ")
			}
			if err = w.Register(ctx, args[0], args[1], name); err == nil {
				fmt.Fprintf(out, "registered %s\n", args[0])
			}
		case verb == "translate" && len(args) >= 3:
			var res string
			if res, err = w.Translate(ctx, strings.Join(args[2:], " "), args[0], args[1]); err == nil {
				fmt.Fprintln(out, res)
			}
		case verb == "send" && len(args) >= 2:
			var res client.SendMessageResult
			if res, err = w.SendMessage(ctx, args[0], strings.Join(args[1:], " "), sourceLang); err == nil {
				fmt.Fprintln(out, res.ResponseMessage)
			}
		case verb == "get":
			err = printMessage(ctx, out, w, strings.Join(args, " "))
		default:
			fmt.Fprintln(out, "unknown command, see --help")
			continue
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&host, "host", proto.Localhost, "server host")
	pf.IntVar(&port, "port", proto.TCPPort, "server port")
	pf.StringVar(&network, "network", proto.TransportTCP, "transport: tcp or udp")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log protocol activity to stderr")
	pf.StringVar(&login, "login", "", "account login")
	pf.StringVar(&password, "pass", "", "account password")
	pf.StringVar(&sourceLang, "from", "Auto Detection", "source language")
	pf.StringVar(&targetLang, "to", "", "target language; get keeps the original and translate uses English when empty")

	rootCmd.AddCommand(helloCmd, authCmd, registerCmd, translateCmd, sendCmd, getCmd, shellCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
