// Command segtool inspects and builds segments in a segment store.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/op/go-logging"
	"github.com/spf13/cobra"

	"github.com/balzaczyy/segstore/config"
	"github.com/balzaczyy/segstore/store"
)

var log = logging.MustGetLogger("segtool")

const logFormat = `%{time:15:04:05.000} %{module} %{level:.4s} %{message}`

// Flags shared by every command.
type globals struct {
	configPath string
	storePath  string
	verbose    bool

	cfg *config.Config
}

func setupLogging(w io.Writer, verbose bool) {
	backend := logging.NewLogBackend(w, "", 0)
	logging.SetBackend(logging.NewBackendFormatter(backend, logging.MustStringFormatter(logFormat)))
	level := logging.WARNING
	if verbose {
		level = logging.DEBUG
	}
	logging.SetLevel(level, "")
}

func newRootCmd() *cobra.Command {
	g := new(globals)
	root := &cobra.Command{
		Use:           "segtool",
		Short:         "Build and inspect segments of a segment store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr(), g.verbose)
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			if g.storePath != "" {
				cfg.Store.Type, cfg.Store.Path = "fs", g.storePath
			}
			log.Debugf("Using %v store at %q", cfg.Store.Type, cfg.Store.Path)
			g.cfg = cfg
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVarP(&g.storePath, "store", "s", "", "store directory, overriding the configuration")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(
		newCompoundCmd(g),
		newIndexCmd(g),
		newTermsCmd(g),
		newDocCmd(g),
		newAnalyzeCmd(g),
	)
	return root
}

// Opens the configured store and passes it to fn, closing it afterwards.
func (g *globals) withStore(fn func(s store.Store) error) (err error) {
	s, err := g.cfg.OpenStore(store.DefaultRegistry)
	if err != nil {
		return err
	}
	defer func() {
		if err2 := s.Close(); err == nil {
			err = err2
		}
	}()
	return fn(s)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "segtool:", err)
		os.Exit(1)
	}
}
