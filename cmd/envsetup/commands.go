package main

import (
	"fmt"

	"chatrelay/internal/envsetup"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) runCmd() *cobra.Command {
	var dryRun, skipEntry bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full bootstrap and start the application",
		Long: `Run every step in order, stopping at the first failure:

  1. pyenv install -f <python_version>
  2. pyenv virtualenv <python_version> <env_name>   (skipped when it exists)
  3. activate the environment for later steps
  4. upgrade pip, setuptools, wheel and pip-tools
  5. pip-compile the manifest and normalize the lock
  6. pip install the lock and verify the installed set
  7. start the application`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan := envsetup.BuildPlan(c.config, envsetup.PlanOptions{SkipEntry: skipEntry})
			if err := c.runner(cmd, dryRun).Run(cmd.Context(), plan); err != nil {
				return err
			}
			if !dryRun {
				c.logger.Info("bootstrap complete", zap.String("virtual_env", c.config.EnvPath()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without executing it")
	cmd.Flags().BoolVar(&skipEntry, "skip-entry", false, "stop after verification instead of starting the application")
	return cmd
}

func (c *cli) lockCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Recompile and normalize the lock inside an existing environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runner(cmd, dryRun).Run(cmd.Context(), envsetup.LockPlan(c.config))
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without executing it")
	return cmd
}

func (c *cli) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the installed packages match the lock exactly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.runner(cmd, false).Run(cmd.Context(), envsetup.VerifyPlan(c.config)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ installed packages match", c.config.LockFile)
			return nil
		},
	}
}

func (c *cli) planCmd() *cobra.Command {
	var skipEntry bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved configuration and bootstrap steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "python:      %s\n", c.config.PythonVersion)
			fmt.Fprintf(out, "environment: %s\n", c.config.EnvPath())
			fmt.Fprintf(out, "manifest:    %s\n", c.config.Manifest)
			fmt.Fprintf(out, "lock:        %s\n\n", c.config.LockFile)
			plan := envsetup.BuildPlan(c.config, envsetup.PlanOptions{SkipEntry: skipEntry})
			return c.runner(cmd, true).Run(cmd.Context(), plan)
		},
	}
	cmd.Flags().BoolVar(&skipEntry, "skip-entry", false, "omit the application step")
	return cmd
}

func (c *cli) activateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Print shell commands that activate the environment",
		Long: `A child process cannot change its parent shell, so activation is printed
for the shell to evaluate:

  eval "$(envsetup activate)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !envsetup.EnvReady(c.config) {
				return fmt.Errorf("environment %s does not exist; run `envsetup run --skip-entry` first", c.config.EnvPath())
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), envsetup.ActivationScript(c.config))
			return err
		},
	}
}
