// readaloud presses the speech toggles of an HTML page from the terminal.
//
// Usage:
//
//	readaloud play <page.html>
//	readaloud read <page.html> --ids intro,body
//	readaloud controls <page.html>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hammamikhairi/readaloud/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the flags shared by every subcommand.
type options struct {
	v          *viper.Viper
	configFile string
	logFile    string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &options{v: config.New()}

	root := &cobra.Command{
		Use:   "readaloud",
		Short: "Read parts of an HTML page aloud through speech toggles",
		Long: `readaloud finds the <speech-toggle> controls of an HTML page and lets
you press them from the terminal. A pressed control reads the elements
listed in its textids attribute, one after the other, until it finishes
or you press it again.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(opts.envFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default: readaloud.yaml in . or $HOME/.readaloud)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with credentials")
	flags.StringVar(&opts.logFile, "log-file", ".readaloud-logs/readaloud.log", "file to write logs to (use \"stderr\" to log to console)")
	flags.String("log-level", "normal", "log level: off, normal or verbose")
	flags.String("backend", "auto", "speech backend: auto, azure, google or silent")
	flags.String("lang", "", "default narration language (BCP 47)")
	flags.String("cache-dir", "", "directory for the persistent audio cache")
	flags.Bool("disk-cache", true, "persist synthesized audio to disk (reads from disk even when false)")
	flags.Bool("mute", false, "never open the audio device; wait out the audio instead")
	flags.String("redis-url", "", "publish lifecycle events to this Redis server")

	bind(opts.v, flags.Lookup("log-level"), "log_level")
	bind(opts.v, flags.Lookup("backend"), "backend")
	bind(opts.v, flags.Lookup("lang"), "voice.lang")
	bind(opts.v, flags.Lookup("cache-dir"), "cache.dir")
	bind(opts.v, flags.Lookup("disk-cache"), "cache.write")
	bind(opts.v, flags.Lookup("mute"), "mute")
	bind(opts.v, flags.Lookup("redis-url"), "redis.url")

	root.AddCommand(
		newPlayCmd(opts),
		newReadCmd(opts),
		newControlsCmd(opts),
	)
	return root
}
