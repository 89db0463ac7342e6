// Package commands holds the havenctl sub-commands.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/codr1/StaycationHaven/internal/client"
)

const (
	envServer   = "HAVEN_SERVER"
	envEmployee = "HAVEN_EMPLOYEE_ID"

	defaultServer = "http://localhost:8080"
)

var errNoEmployee = errors.New("acting employee is required: pass --employee or set " + envEmployee)

// AddGlobalFlags registers flags shared by every command.
func AddGlobalFlags(rootCmd *cobra.Command) {
	server := os.Getenv(envServer)
	if server == "" {
		server = defaultServer
	}
	var employee int64
	if raw := os.Getenv(envEmployee); raw != "" {
		employee, _ = strconv.ParseInt(raw, 10, 64)
	}

	flags := rootCmd.PersistentFlags()
	flags.String("server", server, "Base URL of the Staycation Haven server")
	flags.Int64("employee", employee, "ID of the acting employee")
	flags.Bool("json", false, "Print JSON instead of tables")
	flags.BoolP("verbose", "v", false, "Log requests and poll errors")
	flags.Duration("timeout", 10*time.Second, "Per-request timeout")
}

// session is what a command needs once flags are parsed.
type session struct {
	client *client.Client
	logger zerolog.Logger
	json   bool
	out    io.Writer
}

func newSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Flags()
	server, err := flags.GetString("server")
	if err != nil {
		return nil, err
	}
	employee, err := flags.GetInt64("employee")
	if err != nil {
		return nil, err
	}
	if employee <= 0 {
		return nil, errNoEmployee
	}
	asJSON, _ := flags.GetBool("json")
	verbose, _ := flags.GetBool("verbose")
	timeout, _ := flags.GetDuration("timeout")

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Int64("employee_id", employee).Logger()

	httpClient := &http.Client{Timeout: timeout}
	logger.Debug().Str("server", server).Msg("Using server")

	return &session{
		client: client.New(server, employee, client.WithHTTPClient(httpClient)),
		logger: logger,
		json:   asJSON,
		out:    cmd.OutOrStdout(),
	}, nil
}

func (s *session) printJSON(v any) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes tab-separated rows as aligned columns.
func (s *session) table(header string, write func(w io.Writer)) error {
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	write(w)
	return w.Flush()
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, raw)
	}
	return id, nil
}

func pollInterval(cmd *cobra.Command) (time.Duration, error) {
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		return 0, fmt.Errorf("invalid --interval %s: must be positive", interval)
	}
	return interval, nil
}
