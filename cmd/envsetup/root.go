package main

import (
	"fmt"

	"chatrelay/internal/envsetup"
	"chatrelay/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli holds state shared by every subcommand once the root has loaded the
// plan file and logger.
type cli struct {
	cfgFile       string
	logLevel      string
	pythonVersion string
	envName       string

	config envsetup.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "envsetup",
		Short: "Bootstrap the Python environment for the chat relay",
		Long: `envsetup - Python environment bootstrap

Provisions the pinned interpreter with pyenv, creates an isolated virtualenv,
compiles requirements.in into a fully pinned requirements.txt, installs it,
verifies the installed set and launches the application.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "plan file (YAML); defaults apply when omitted")
	flags.StringVar(&c.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&c.pythonVersion, "python", "", "override python_version and the derived env_name")
	flags.StringVar(&c.envName, "env-name", "", "override env_name")

	root.AddCommand(
		c.runCmd(),
		c.lockCmd(),
		c.verifyCmd(),
		c.planCmd(),
		c.activateCmd(),
	)
	return root
}

func (c *cli) setup(*cobra.Command, []string) error {
	logger, err := logging.New(c.logLevel, "local")
	if err != nil {
		return err
	}
	c.logger = logger

	cfg, err := envsetup.LoadConfig(c.cfgFile)
	if err != nil {
		return err
	}
	if c.pythonVersion != "" {
		cfg.PythonVersion = c.pythonVersion
		cfg.EnvName = "venv-" + c.pythonVersion
	}
	if c.envName != "" {
		cfg.EnvName = c.envName
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	c.config = cfg
	return nil
}

func (c *cli) runner(cmd *cobra.Command, dryRun bool) *envsetup.Runner {
	rc := &envsetup.RunContext{
		Config: c.config,
		Env:    envsetup.EnvironFromOS(),
		Exec:   envsetup.OSExecutor{},
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Logger: c.logger,
	}
	return envsetup.NewRunner(rc, envsetup.WithDryRun(dryRun))
}
