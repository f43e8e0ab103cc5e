package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/disaster37/onstomp"
	"github.com/disaster37/onstomp/client"
)

var (
	flagAddr     string
	flagWS       string
	flagLogin    string
	flagPasscode string
	flagVerbose  bool
)

func registerConnectionFlags(flags *pflag.FlagSet) {
	flags.StringVar(&flagAddr, "addr", "127.0.0.1:61613", "broker address as host:port")
	flags.StringVar(&flagWS, "ws", "", "STOMP-over-WebSocket URL; overrides --addr")
	flags.StringVar(&flagLogin, "login", "", "login header for CONNECT")
	flags.StringVar(&flagPasscode, "passcode", "", "passcode header for CONNECT")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "log session activity")
}

func newLogger() onstomp.Logger {
	if !flagVerbose {
		return onstomp.NilLogger
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	return onstomp.ZeroLogger(log)
}

// connect dials the broker, performs the handshake, and returns a connected session.
func connect() (*client.Session, error) {
	var conn *client.Connection
	var err error
	if flagWS != "" {
		conn, err = client.DialWebSocket(flagWS)
	} else {
		conn, err = client.Dial(flagAddr, nil)
	}
	if err != nil {
		return nil, err
	}
	logger := newLogger()
	conn.Logger = logger
	sess := client.NewSession(conn)
	sess.Logger = logger
	var headers onstomp.Headers
	if flagLogin != "" {
		headers = headers.Append(onstomp.HeaderLogin, flagLogin)
	}
	if flagPasscode != "" {
		headers = headers.Append(onstomp.HeaderPasscode, flagPasscode)
	}
	if err = sess.Connect(headers); err != nil {
		_ = sess.Shutdown()
		return nil, err
	}
	return sess, nil
}

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send DESTINATION BODY",
		Short: "Send one message and wait for its receipt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := connect()
			if err != nil {
				return err
			}
			got := make(chan onstomp.Frame, 1)
			err = sess.Send(args[0], []byte(args[1]), nil, func(f onstomp.Frame) {
				got <- f
			})
			if err != nil {
				_ = sess.Shutdown()
				return err
			}
			select {
			case <-got:
				fmt.Println("receipt received")
			case <-time.After(10 * time.Second):
				fmt.Fprintln(os.Stderr, "no receipt within 10s")
			}
			return sess.DisconnectWithFlush(nil, nil)
		},
	}
	registerConnectionFlags(cmd.Flags())
	return cmd
}

func newListenCmd() *cobra.Command {
	var ack string
	cmd := &cobra.Command{
		Use:   "listen DESTINATION",
		Short: "Subscribe to a destination and print messages until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := connect()
			if err != nil {
				return err
			}
			var headers onstomp.Headers
			if ack != "" {
				headers = headers.Append(onstomp.HeaderAck, ack)
			}
			id, err := sess.Subscribe(args[0], func(f onstomp.Frame) {
				fmt.Printf("%s\n", f.Body)
				if ack == "client" || ack == "client-individual" {
					if e := sess.Ack(f, nil, nil); e != nil {
						fmt.Fprintln(os.Stderr, "ack:", e)
					}
				}
			}, headers, nil)
			if err != nil {
				_ = sess.Shutdown()
				return err
			}
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			if err = sess.Unsubscribe(id, nil, nil); err != nil {
				fmt.Fprintln(os.Stderr, "unsubscribe:", err)
			}
			return sess.DisconnectWithFlush(nil, nil)
		},
	}
	registerConnectionFlags(cmd.Flags())
	cmd.Flags().StringVar(&ack, "ack", "", "subscription ack mode: auto, client, or client-individual")
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:           "onstomp",
		Short:         "Minimal STOMP client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSendCmd(), newListenCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
