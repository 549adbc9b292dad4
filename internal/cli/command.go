package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/einvoicefetch/internal"
	"github.com/example/einvoicefetch/internal/config"
)

// CreateRootCommand creates and configures the root cobra command.
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "einvoicefetch",
		Short: "Monthly allowance report fetcher for the e-invoice portal",
		Long: `einvoicefetch logs in to the government e-invoice portal, defeats the
audio CAPTCHA via speech transcription, and downloads the monthly
credit/debit note (折讓單) spreadsheet exports.

During the first week of a month the previous month's report is
fetched as well, since late records keep arriving for a few days.

Credentials are read from the config file or environment:
  portal.ban, portal.user_id, portal.password, portal.User`,
		Args:          cobra.NoArgs,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.einvoicefetch.yaml)")

	// Local flags
	cmd.Flags().StringVarP(&flags.DownloadDir, "download-dir", "d", "", "Download directory (default: XDG user download dir)")
	cmd.Flags().IntVar(&flags.MaxAttempts, "max-attempts", flags.MaxAttempts, "Maximum CAPTCHA attempts before giving up (1-10)")
	cmd.Flags().StringVar(&flags.Transcriber, "transcriber", flags.Transcriber, "Speech-to-text provider: openai or gemini")
	cmd.Flags().BoolVar(&flags.NoHeadless, "no-headless", false, "Run Chrome with a visible window (debugging)")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().BoolVar(&flags.JSONLog, "json-log", false, "Emit logs as JSON")
	cmd.Flags().DurationVar(&flags.StepTimeout, "step-timeout", flags.StepTimeout, "Timeout for individual browser operations")
	cmd.Flags().DurationVar(&flags.TranscribeTimeout, "transcribe-timeout", flags.TranscribeTimeout, "Timeout for one transcription call")
	cmd.Flags().DurationVar(&flags.DownloadTimeout, "download-timeout", flags.DownloadTimeout, "Timeout for the download-completion wait per period")

	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("output.download_dir", cmd.Flags().Lookup("download-dir"))
	viper.BindPFlag("captcha.max_attempts", cmd.Flags().Lookup("max-attempts"))
	viper.BindPFlag("captcha.transcriber", cmd.Flags().Lookup("transcriber"))
	viper.BindPFlag("timeouts.step", cmd.Flags().Lookup("step-timeout"))
	viper.BindPFlag("timeouts.transcribe", cmd.Flags().Lookup("transcribe-timeout"))
	viper.BindPFlag("timeouts.download", cmd.Flags().Lookup("download-timeout"))
}

// InitConfig initializes viper configuration.
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".einvoicefetch" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".einvoicefetch")
	}

	// Environment variables
	viper.SetEnvPrefix("EINVOICEFETCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config.
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("captcha.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config.
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("captcha.gemini_key")
}

// BuildConfig assembles the validated run configuration from flags, the
// viper config file and the environment. Credentials come from the
// portal.* config keys and are never echoed back.
func BuildConfig(flags *Flags) (config.Config, error) {
	cfg := config.Default()

	cfg.Credentials = config.Credentials{
		BAN:       viper.GetString("portal.ban"),
		UserID:    viper.GetString("portal.user_id"),
		Password:  viper.GetString("portal.password"),
		LocalUser: viper.GetString("portal.User"),
	}

	if url := viper.GetString("portal.login_url"); url != "" {
		cfg.LoginURL = url
	}
	if prefix := viper.GetString("portal.dashboard_prefix"); prefix != "" {
		cfg.DashboardPrefix = prefix
	}

	// Bound keys resolve flag-over-config-file automatically.
	cfg.DownloadDir = viper.GetString("output.download_dir")
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = config.DefaultDownloadDir(cfg.Credentials.LocalUser)
	}

	cfg.Transcriber = viper.GetString("captcha.transcriber")
	cfg.OpenAIKey = GetOpenAIKey()
	cfg.GeminiKey = GetGeminiKey()
	cfg.MaxCaptchaAttempts = viper.GetInt("captcha.max_attempts")
	cfg.Headless = !flags.NoHeadless
	cfg.Verbose = flags.Verbose
	cfg.JSONLog = flags.JSONLog
	cfg.StepTimeout = viper.GetDuration("timeouts.step")
	cfg.TranscribeTimeout = viper.GetDuration("timeouts.transcribe")
	cfg.DownloadTimeout = viper.GetDuration("timeouts.download")

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
